// Package cli holds the notify-client commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds the flags that override configuration.
type RootOptions struct {
	ServerURL string
	Token     string
	APIAddr   string
	NoConnect bool
	Clear     bool
	EnvFile   string
}

// NewRootCommand creates the notify-client command. Running it without a
// subcommand starts the client.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notify-client",
		Short: "Real-time notification client",
		Long: `Connects to a notification push server over WebSocket, keeps the
latest notifications, renders them to the terminal and exposes a local
control API.

Example:
  notify-client --token "$(cat ~/.notify-token)"
  notify-client --server wss://push.example.com/ws --no-connect`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ServerURL, "server", "", "push server endpoint (overrides NOTIFY_SERVER_URL)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "credential (overrides NOTIFY_TOKEN)")
	cmd.Flags().StringVar(&opts.APIAddr, "api-addr", "", "control API listen address (overrides NOTIFY_API_ADDR)")
	cmd.Flags().BoolVar(&opts.NoConnect, "no-connect", false, "do not connect at startup")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "clear the terminal before each render")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)")

	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
