package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/liamg/netradar/coordinator"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var segmentStart = "0"
var segmentEnd = "5"

func init() {
	segmentsCmd.Flags().StringVarP(&segmentStart, "start", "s", segmentStart, "First third octet to check (e.g. 0)")
	segmentsCmd.Flags().StringVarP(&segmentEnd, "end", "e", segmentEnd, "Last third octet to check (e.g. 10)")
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Find active /24 segments",
	Long: `Checks each segment of the configured base network (192.168 by default) for a host
answering on a common web port. Only a sample of each segment is probed and the first
answer marks the segment as active.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		coord, reg := newCoordinator(cfg)
		defer coord.Close()

		spec, err := coordinator.ParseSegmentRange(segmentStart, segmentEnd)
		if err != nil {
			return err
		}

		job, err := coord.StartSegments(spec)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		serveMetrics(ctx, cfg.Metrics.Listen, reg)

		out := cmd.OutOrStdout()
		log.Debugf("Starting segment survey %s", job.Target())
		fmt.Fprintf(out, "Scanning segments %s.%d.x to %d.x ...\n\n", cfg.Subnet.Base, spec.Start, spec.End)

		bar := newProgressBar(cmd.ErrOrStderr(), spec.End-spec.Start+1, "[cyan][scanning][reset]")

		completion := render(ctx, coord, job, out, bar)
		printSummary(out, "active segment", completion)
		return nil
	},
}

func printSummary(out io.Writer, noun string, completion coordinator.CompletionEvent) {
	plural := "s"
	if completion.TotalFound == 1 {
		plural = ""
	}
	status := "Survey complete"
	if completion.Cancelled {
		status = "Survey cancelled"
	}
	fmt.Fprintf(out, "%s. Found %d %s%s.\n", status, completion.TotalFound, noun, plural)
}
