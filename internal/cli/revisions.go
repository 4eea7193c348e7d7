package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
)

func newRevisionsCommand(d Deps) *cobra.Command {
	var show int64
	cmd := &cobra.Command{
		Use:   "revisions KIND ID",
		Short: "List archived revisions of a document",
		Example: `  portalctl revisions memorandum 5f7c...   # list versions
  portalctl revisions policy 5f7c... --show 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := editing.ParseKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := d.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			src, err := d.OpenRevisions(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open revision archive: %w", err)
			}
			out := cmd.OutOrStdout()
			if show > 0 {
				rev, err := src.Load(ctx, kind, args[1], show)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rev)
			}
			versions, err := src.Versions(ctx, kind, args[1])
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				fmt.Fprintln(out, "no archived revisions")
				return nil
			}
			for _, v := range versions {
				fmt.Fprintf(out, "v%d\n", v)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&show, "show", 0, "print the archived revision with this version")
	return cmd
}
