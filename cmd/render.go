package cmd

import (
	"context"
	"fmt"
	"io"
	"net/netip"

	"github.com/fatih/color"
	"github.com/liamg/netradar/coordinator"
	"github.com/liamg/netradar/scan"
	"github.com/schollz/progressbar/v3"
)

var (
	activeColor = color.New(color.FgGreen, color.Bold)
	hostColor   = color.New(color.FgCyan)
	noticeColor = color.New(color.FgYellow)
)

// render drains coordinator events for job and prints them until the job's
// completion event arrives. Cancelling ctx cancels the job; rendering continues
// until the coordinator confirms the job has stopped.
func render(ctx context.Context, coord *coordinator.Coordinator, job *coordinator.Job, out io.Writer, bar *progressbar.ProgressBar) coordinator.CompletionEvent {

	done := ctx.Done()

	for {
		select {
		case <-done:
			done = nil
			job.Cancel()
			_ = bar.Clear()
			noticeColor.Fprintln(out, "Cancelling, waiting for in-flight probes...")

		case ev, ok := <-coord.Events():
			if !ok {
				return coordinator.CompletionEvent{Cancelled: true}
			}
			if ev.JobID != job.ID() {
				continue
			}

			switch ev.Type {
			case coordinator.EventProgress:
				bar.Describe(ev.Progress.Message)
				if ev.Progress.Total > 0 && bar.GetMax() > 0 {
					_ = bar.Set(ev.Progress.Done)
				}

			case coordinator.EventFinding:
				_ = bar.Clear()
				printFinding(out, *ev.Finding)

			case coordinator.EventCompleted:
				_ = bar.Finish()
				fmt.Fprintln(out)
				return *ev.Completion
			}
		}
	}
}

func printFinding(out io.Writer, finding coordinator.FindingEvent) {
	switch finding.Kind {
	case coordinator.KindSegment:
		activeColor.Fprintf(out, "Active segment: %s.x\n", finding.Prefix)
		fmt.Fprintf(out, "\tSample device: %s (%d/tcp %s)\n", finding.SampleHost, finding.Port, scan.DescribePort(int(finding.Port)))
	case coordinator.KindHost:
		addr, err := netip.ParseAddr(finding.Address)
		if err != nil {
			hostColor.Fprintln(out, finding.Address)
			return
		}
		hostColor.Fprintln(out, scan.HostFinding{
			Address:      addr,
			Port:         finding.Port,
			MAC:          finding.MAC,
			Manufacturer: finding.Manufacturer,
		}.String())
	}
}

func newProgressBar(out io.Writer, max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
