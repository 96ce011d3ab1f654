package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os/user"
	"strings"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/ui"
	"github.com/spf13/cobra"
)

var errNoRoomID = errors.New("room ID cannot be empty")

var joinCmd = &cobra.Command{
	Use:     "join <room-id|url>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room by its ID or by the link printed when it was created.

Examples:
  codehive join brave-otter-lamp --name bob
  codehive join http://localhost:5000/combined/brave-otter-lamp --name bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
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

		stop := ui.RunConnectionSpinner("Joining " + roomID + "...")
		err = mgr.JoinRoom(ctx, roomID, flagName)
		stop()
		if err != nil {
			return err
		}
		ui.PrintSuccessf("Joined %s", roomID)
		return runRoom(ctx, mgr)
	},
}

// parseRoomInput accepts a bare room ID or a room link.
func parseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errNoRoomID
	}
	if strings.Contains(input, "://") {
		return extractRoomIDFromURL(input)
	}
	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse room link: %w", err)
	}

	parts := strings.Split(strings.TrimSuffix(parsedURL.Path, "/"), "/")
	for i, part := range parts {
		if part == "combined" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}

func defaultName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "guest"
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().StringVarP(&flagName, "name", "n", defaultName(), "Display name shown to others")
}
