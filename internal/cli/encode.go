package cli

import (
	"github.com/spf13/cobra"

	"github.com/ahearne/cellring/internal/share"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Rule        int
	Width       int
	Generations int
	Delay       int
	Seeds       []int
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a configuration as its canonical shareable string",
		Long: `Encode a configuration as the canonical query string that identifies
it: "?r=<rule>&w=<width>&g=<generations>&d=<delay>&s=<seed bitset>".
Out-of-range values clamp into bounds.

Example:
  cellring encode --rule 90 --width 101 --seeds 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := share.Config{
				Rule:        opts.Rule,
				Width:       opts.Width,
				Generations: opts.Generations,
				Delay:       opts.Delay,
			}
			if cmd.Flags().Changed("seeds") {
				cfg.Seeds = opts.Seeds
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			search := cfg.Search()
			if opts.Format == "json" {
				return out.JSON(map[string]string{"search": search})
			}
			out.Line("%s", search)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Rule, "rule", share.DefaultRule, "Wolfram rule number (0-255)")
	cmd.Flags().IntVar(&opts.Width, "width", share.DefaultWidth, "row width in cells (1-300)")
	cmd.Flags().IntVar(&opts.Generations, "generations", share.DefaultGenerations, "generation bound (1-500)")
	cmd.Flags().IntVar(&opts.Delay, "delay", share.DefaultDelay, "tick delay in milliseconds (10-5000)")
	cmd.Flags().IntSliceVar(&opts.Seeds, "seeds", nil, "seed cell indices (omit to encode the empty set)")

	return cmd
}
