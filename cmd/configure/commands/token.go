package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vavebg/ops-console/internal/config"
	"github.com/vavebg/ops-console/internal/gate"
)

// NewTokenCmd creates the token command
func NewTokenCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an unlock token",
		Long:  "Mint an unlock token locally using the configured gate secret, for curl-driven debugging",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if code == "" {
				code = cfg.AccessCode
			}

			g := gate.New(cfg.AccessCode, cfg.GateSecret, cfg.UnlockWindow)
			token, expiresAt, err := g.Unlock(code)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			fmt.Println(token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires: %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Access code to exchange (defaults to the configured code)")

	return cmd
}
