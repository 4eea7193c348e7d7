package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ucouncil/portal/backend/go-services/internal/models"
	"github.com/ucouncil/portal/backend/go-services/internal/tokens"
)

func newTokenCommand(d Deps) *cobra.Command {
	var (
		u   models.User
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 bearer token for scripted API access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.Sub == "" {
				return fmt.Errorf("--sub is required")
			}
			cfg, err := d.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			raw, err := tokens.GenerateAccessToken(cfg, &u, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&u.Sub, "sub", "", "member id (token subject)")
	cmd.Flags().StringVar(&u.Name, "name", "", "display name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email")
	cmd.Flags().StringVar(&u.Position, "position", "", "council position")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
