package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLeasesCommand(d Deps) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "leases",
		Short: "List documents currently held by a priority editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, cfg, closeFn, err := d.stores(ctx, kind)
			if err != nil {
				return err
			}
			defer closeFn()

			now := d.Clock.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tID\tHOLDER\tVERSION\tAGE\tSTALE")
			held := 0
			for _, k := range sortedKinds(stores) {
				docs, err := stores[k].ListLeased(ctx)
				if err != nil {
					return fmt.Errorf("list %s leases: %w", k, err)
				}
				for _, doc := range docs {
					age := now.Sub(*doc.PriorityEditStartedAt)
					stale := ""
					if age > cfg.Editing.LeaseTTL {
						stale = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", k, doc.ID, doc.Holder(), doc.Version, formatAge(age), stale)
					held++
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d lease(s) held\n", held)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list one kind")
	return cmd
}
