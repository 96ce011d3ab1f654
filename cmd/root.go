package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/session"
	"github.com/codehiveofficial/codehive/internal/ui"
	"github.com/codehiveofficial/codehive/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagRelayURL   string
	flagSTUN       string
	flagTURN       string
	flagTURNUser   string
	flagTURNPass   string
	flagForceRelay bool
	flagCodec      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codehive",
	Short: "Collaborative coding sessions with video, chat and a shared editor",
	Long: `Codehive joins you to a room where everyone shares one document, a chat
and a mesh of peer-to-peer audio/video calls. A small relay introduces the
participants; media flows directly between them over WebRTC.`,
	Version: version.String(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

// LoadConfig merges the persistent flags with environment and config file.
func LoadConfig(opts config.Options) (*config.Config, error) {
	opts.ConfigFile = flagConfig
	opts.RelayURL = flagRelayURL
	opts.STUNServer = flagSTUN
	opts.TURNServer = flagTURN
	opts.TURNUser = flagTURNUser
	opts.TURNPass = flagTURNPass
	opts.ForceRelay = flagForceRelay
	opts.Codec = flagCodec

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, &session.Error{Op: "load config", Err: err}
	}
	return cfg, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file (default is $HOME/.codehive.yaml)")
	flags.StringVar(&flagRelayURL, "relay-url", "", "Relay websocket URL")
	flags.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	flags.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	flags.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	flags.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	flags.BoolVarP(&flagForceRelay, "force-relay", "r", false, "Force relay mode (TURN only)")
	flags.StringVar(&flagCodec, "codec", "", "Relay wire format: json or msgpack")
}
