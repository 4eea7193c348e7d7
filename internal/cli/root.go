// Package cli implements portalctl, the operator tool for edit leases.
package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/ucouncil/portal/backend/go-services/internal/app"
	"github.com/ucouncil/portal/backend/go-services/internal/archive"
	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/internal/storage"
	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// RevisionSource lists and loads archived revisions.
type RevisionSource interface {
	Versions(ctx context.Context, kind editing.Kind, id string) ([]int64, error)
	Load(ctx context.Context, kind editing.Kind, id string, version int64) (*archive.Revision, error)
}

// Deps are the collaborators commands reach for. Tests replace them.
type Deps struct {
	LoadConfig    func() (*config.Config, error)
	OpenStores    func(ctx context.Context, cfg *config.Config) (app.Stores, func(), error)
	OpenRevisions func(ctx context.Context, cfg *config.Config) (RevisionSource, error)
	Clock         editing.Clock
}

// DefaultDeps connects to the configured MongoDB and MinIO.
func DefaultDeps() Deps {
	return Deps{
		LoadConfig: config.LoadConfig,
		OpenStores: func(ctx context.Context, cfg *config.Config) (app.Stores, func(), error) {
			stores, _, closeFn, err := app.MongoStores(ctx, cfg.MongoDB, 3)
			return stores, closeFn, err
		},
		OpenRevisions: func(ctx context.Context, cfg *config.Config) (RevisionSource, error) {
			st, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
			if err != nil {
				return nil, err
			}
			return archive.NewObjectArchiver(st), nil
		},
		Clock: editing.SystemClock,
	}
}

// NewRootCommand builds the portalctl command tree.
func NewRootCommand(d Deps) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Operate council portal edit leases",
		Long: `portalctl inspects and maintains edit-priority leases on handbook
sections, memorandums and policy sections, and reads archived revisions.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetOutput(cmd.ErrOrStderr())
			logger.Init(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSweepCommand(d),
		newLeasesCommand(d),
		newRevisionsCommand(d),
		newTokenCommand(d),
		newVersionCommand(),
	)
	return root
}

// Execute runs portalctl with the default dependencies.
func Execute() error {
	return NewRootCommand(DefaultDeps()).Execute()
}

func (d Deps) stores(ctx context.Context, kindFlag string) (app.Stores, *config.Config, func(), error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	stores, closeFn, err := d.OpenStores(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if kindFlag == "" {
		return stores, cfg, closeFn, nil
	}
	k, err := editing.ParseKind(kindFlag)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return app.Stores{k: stores[k]}, cfg, closeFn, nil
}

func sortedKinds(stores app.Stores) []editing.Kind {
	kinds := make([]editing.Kind, 0, len(stores))
	for k := range stores {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the portalctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portalctl %s\n", Version)
		},
	}
}

func formatAge(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
