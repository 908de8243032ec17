package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/liamg/netradar/config"
	"github.com/liamg/netradar/coordinator"
	"github.com/liamg/netradar/metrics"
	"github.com/liamg/netradar/scan"
	"github.com/liamg/netradar/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var debug bool
var configFile string
var timeoutMS int
var parallelism int
var metricsAddr string
var versionRequested bool

var settings = config.New()

var newProber = func(logger log.FieldLogger) scan.Prober {
	return scan.NewConnectProber(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", configFile, "Config file (default is ./netradar.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&versionRequested, "version", "", versionRequested, "Output version information and exit")
	rootCmd.PersistentFlags().BoolVarP(&debug, "verbose", "v", debug, "Enable verbose logging")
	rootCmd.PersistentFlags().IntVarP(&timeoutMS, "timeout-ms", "t", timeoutMS, "Probe timeout in MS (default 1000)")
	rootCmd.PersistentFlags().IntVarP(&parallelism, "workers", "w", parallelism, "Concurrent probes for host surveys (default 100)")
	rootCmd.PersistentFlags().StringVarP(&metricsAddr, "metrics-addr", "", metricsAddr, "Serve prometheus metrics on this address while surveying")

	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
}

var rootCmd = &cobra.Command{
	Use:   "netradar",
	Short: "Netradar finds live network segments and hosts",
	Long: `Netradar sweeps IPv4 /24 segments for anything answering on common web ports,
and enumerates the reachable hosts of a single segment, using TCP connect probes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if versionRequested {
			return nil
		}
		return loadSettings(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if versionRequested {
			v := version.Version
			if v == "" {
				v = "development version"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "netradar %s\n", v)
			return
		}
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadSettings(cmd *cobra.Command) error {

	if err := config.ReadFile(settings, configFile); err != nil {
		return err
	}

	if cmd.Flags().Changed("timeout-ms") {
		settings.Set("probe.timeout", time.Duration(timeoutMS)*time.Millisecond)
	}
	if cmd.Flags().Changed("workers") {
		settings.Set("host_survey.workers", parallelism)
	}
	if cmd.Flags().Changed("metrics-addr") {
		settings.Set("metrics.listen", metricsAddr)
	}
	if debug {
		settings.Set("log.level", "debug")
	}

	return nil
}

func currentConfig() (*config.Config, error) {
	cfg, err := config.FromViper(settings)
	if err != nil {
		return nil, err
	}
	configureLogging(cfg.Log)
	return cfg, nil
}

func configureLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level '%s', using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{})
	}
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		log.Warnf("Failed to bind flag %s: %s", name, err)
	}
}

// newCoordinator wires the prober, metrics and surveys described by cfg.
func newCoordinator(cfg *config.Config) (*coordinator.Coordinator, *prometheus.Registry) {

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger := log.StandardLogger()
	coord := coordinator.New(newProber(logger), cfg.Coordinator(), logger, metrics.New(reg))
	return coord, reg
}

// serveMetrics exposes reg on addr until ctx is done. It is a no-op for an empty addr.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	go func() {
		log.Debugf("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("Metrics server stopped: %s", err)
		}
	}()
}
