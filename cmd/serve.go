package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/liamg/netradar/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringP("listen", "l", "", "Address to serve the API on (default :8080)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the survey API and websocket event feed",
	PreRun: func(cmd *cobra.Command, args []string) {
		bindFlag(settings, "server.listen", cmd, "listen")
	},
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		coord, reg := newCoordinator(cfg)
		api := server.New(coord, reg, log.StandardLogger())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = api.ListenAndServe(ctx, cfg.Server.Listen)

		coord.Close()
		<-api.Hub().Done()
		return err
	},
}
