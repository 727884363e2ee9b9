package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahearne/cellring/internal/kv"
	"github.com/ahearne/cellring/internal/share"
	"github.com/ahearne/cellring/internal/starred"
)

// StarOptions holds flags shared by the star subcommands.
type StarOptions struct {
	*RootOptions
	Database string
}

// NewStarCommand creates the star command group.
func NewStarCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StarOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "star",
		Short: "Manage starred configurations",
		Long: `List, toggle and remove starred configurations in the shared local
store. The canonical shareable string is the unit of identity: toggling
the same configuration twice is a net no-op, from any number of views.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "cellring.db", "path to the SQLite store")

	cmd.AddCommand(newStarListCommand(opts))
	cmd.AddCommand(newStarToggleCommand(opts))
	cmd.AddCommand(newStarRemoveCommand(opts))

	return cmd
}

func newStarListCommand(opts *StarOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List starred configurations, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStarredStore(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := starred.NewStore(store).LoadAll(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load starred configurations", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.JSON(entries)
			}
			if len(entries) == 0 {
				out.Line("no starred configurations")
				return nil
			}
			for _, e := range entries {
				out.Line("%s  rule %-3d  %s", time.UnixMilli(e.CreatedAt).Format(time.RFC3339), e.Rule, e.Search)
			}
			return nil
		},
	}
}

func newStarToggleCommand(opts *StarOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "toggle <search>",
		Short:         "Star a configuration, or unstar it if already starred",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recognized := share.ParseSearch(args[0])
			if !recognized {
				return NewExitError(ExitCommandError, fmt.Sprintf("search %q carries no recognized parameter", args[0]))
			}

			store, err := openStarredStore(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := starred.NewStore(store).Toggle(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to toggle", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.JSON(entries)
			}
			if starred.IsStarred(entries, cfg.Search()) {
				out.Line("starred %s", cfg.Search())
			} else {
				out.Line("unstarred %s", cfg.Search())
			}
			return nil
		},
	}
}

func newStarRemoveCommand(opts *StarOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <search>",
		Short:         "Remove a starred configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStarredStore(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := starred.NewStore(store).Remove(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "failed to remove", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.JSON(map[string]string{"removed": share.NormalizeSearch(args[0])})
			}
			out.Line("removed %s", share.NormalizeSearch(args[0]))
			return nil
		},
	}
}

func openStarredStore(path string) (*kv.Store, error) {
	store, err := kv.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return store, nil
}
