package cmd

import (
	"fmt"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/ui"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a new room and join it",
	Long: `Create a room on the relay, print its ID and link, and join it.

Examples:
  codehive create --name alice
  codehive create --name alice --codec msgpack
  codehive create --name alice --turn turn.example.com --force-relay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{})
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		mgr, err := newManager(ctx, cfg)
		if err != nil {
			return err
		}
		defer mgr.LeaveRoom()

		stop := ui.RunConnectionSpinner("Creating room...")
		roomID, err := mgr.CreateRoom(ctx, flagName)
		stop()
		if err != nil {
			return err
		}

		fmt.Println()
		ui.RenderRoomInfo(roomID, cfg.RoomLink(roomID))
		return runRoom(ctx, mgr)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&flagName, "name", "n", defaultName(), "Display name shown to others")
}
