package cmd

import (
	"fmt"
	"net/netip"

	"github.com/liamg/netradar/scan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <address:port>...",
	Short: "Check single endpoints for a TCP handshake",
	Long: `Probes each endpoint once with the configured timeout and reports whether it accepted
a connection. Useful for checking what a survey would see for a known device.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := currentConfig()
		if err != nil {
			return err
		}

		endpoints := make([]scan.Endpoint, 0, len(args))
		for _, arg := range args {
			ap, err := netip.ParseAddrPort(arg)
			if err != nil || !ap.Addr().Is4() || ap.Port() == 0 {
				return fmt.Errorf("invalid endpoint '%s': expected an IPv4 address and port, e.g. 192.168.1.1:80", arg)
			}
			endpoints = append(endpoints, scan.NewEndpoint(ap.Addr(), ap.Port()))
		}

		out := cmd.OutOrStdout()
		for _, result := range scan.ProbeAll(newProber(log.StandardLogger()), endpoints, cfg.Probe.Timeout) {
			if result.Reachable {
				line := fmt.Sprintf("%s\topen", result.Endpoint)
				if name := scan.DescribePort(int(result.Endpoint.Port)); name != "" {
					line += " (" + name + ")"
				}
				hostColor.Fprintln(out, line)
				continue
			}
			fmt.Fprintf(out, "%s\tclosed\n", result.Endpoint)
		}
		return nil
	},
}
