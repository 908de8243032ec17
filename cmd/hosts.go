package cmd

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var hostPort int

func init() {
	hostsCmd.Flags().IntVarP(&hostPort, "port", "p", 0, "Port to probe on every host (default 80)")
}

var hostsCmd = &cobra.Command{
	Use:   "hosts <prefix>",
	Short: "Find every reachable host of a /24 segment",
	Long: `Probes hosts .1 to .254 of the given segment (e.g. 192.168.100) on a single port and
prints each host that accepts a connection, as soon as it is found.`,
	Args: cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlag(settings, "host_survey.port", cmd, "port")
	},
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		coord, reg := newCoordinator(cfg)
		defer coord.Close()

		job, err := coord.StartHostSurvey(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		serveMetrics(ctx, cfg.Metrics.Listen, reg)

		out := cmd.OutOrStdout()
		log.Debugf("Starting host survey %s", job.Target())
		fmt.Fprintf(out, "Hunting live hosts on %s ...\n\n", job.Target())

		bar := newProgressBar(cmd.ErrOrStderr(), -1, "[cyan][scanning][reset]")

		completion := render(ctx, coord, job, out, bar)
		printSummary(out, "device", completion)
		return nil
	},
}
