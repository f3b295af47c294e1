package cli

import (
	"fmt"
	"time"

	"notify-client/internal/auth"
	"notify-client/internal/config"

	"github.com/spf13/cobra"
)

type TokenOptions struct {
	*RootOptions
	Secret string
	UserID string
	TTL    time.Duration
}

// NewTokenCommand creates the token command, which prints a dev server token.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a token accepted by the dev server",
		Long: `Signs an HS256 token for the dev server.

The secret defaults to DEVSERVER_JWT_SECRET and the lifetime to
DEVSERVER_TOKEN_TTL.

Example:
  notify-client token --user alice
  notify-client token --user bob --secret s3cret --ttl 1h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id to embed (required)")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printToken(cmd *cobra.Command, opts *TokenOptions) error {
	cfg, err := config.Load(envFiles(opts.RootOptions)...)
	if err != nil {
		return err
	}

	secret := cfg.DevServer.JWTSecret
	if opts.Secret != "" {
		secret = opts.Secret
	}
	ttl := cfg.DevServer.TokenTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}

	token, err := auth.Issue(secret, opts.UserID, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func envFiles(opts *RootOptions) []string {
	if opts == nil || opts.EnvFile == "" {
		return nil
	}
	return []string{opts.EnvFile}
}
