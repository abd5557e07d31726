package simyard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/icarus-itcs/simyard/internal/api"
	"github.com/icarus-itcs/simyard/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP daemon",
	Long: `Run a local HTTP daemon exposing the device manager as JSON over HTTP,
for editors and UI shells that prefer an API over shelling out.

The daemon binds to loopback by default and serves Prometheus metrics
on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())

		a, err := buildApp(metrics.New(reg))
		if err != nil {
			return err
		}
		if serveAddr != "" {
			a.cfg.Server.Addr = serveAddr
		}

		srv := api.New(a.cfg.Server, a.mgr, a.log, reg)
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "bind address (overrides server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
