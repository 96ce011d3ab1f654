package cmd

import (
	"log/slog"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/server"
	"github.com/codehiveofficial/codehive/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagListen  string
	flagMetrics bool
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the message relay",
	Long: `Run the websocket relay that introduces participants, forwards
connection offers and broadcasts document, chat and media-state events.

Examples:
  codehive relay
  codehive relay --listen :8080 --metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{ListenAddr: flagListen, Metrics: flagMetrics})
		if err != nil {
			return err
		}
		ui.PrintInfof("Relay listening on %s", cfg.ListenAddr)
		return server.Run(cmd.Context(), server.Options{
			Addr:    cfg.ListenAddr,
			Metrics: cfg.MetricsEnabled,
			Log:     slog.Default(),
		})
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Address to listen on (default :5000)")
	relayCmd.Flags().BoolVarP(&flagMetrics, "metrics", "m", false, "Expose Prometheus metrics on /metrics")
}
