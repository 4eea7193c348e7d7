package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
)

func newSweepCommand(d Deps) *cobra.Command {
	var (
		kind string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Clear edit leases older than the lease TTL once",
		Long: `Run one pass of the stale lease sweep, the same pass the server runs
on its interval. Safe to run while servers are up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, cfg, closeFn, err := d.stores(ctx, kind)
			if err != nil {
				return err
			}
			defer closeFn()
			if ttl <= 0 {
				ttl = cfg.Editing.LeaseTTL
			}
			sw := editing.NewSweeper(stores, editing.WithTTL(ttl), editing.WithSweepClock(d.Clock))
			n, err := sw.RunOnce(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d stale lease(s) older than %s\n", n, ttl)
			return err
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only sweep one kind (handbook, memorandum, policy)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "override the configured lease TTL")
	return cmd
}
