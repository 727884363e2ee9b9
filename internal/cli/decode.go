package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahearne/cellring/internal/rule"
	"github.com/ahearne/cellring/internal/share"
)

// decodedConfig is the JSON shape of a decoded search string.
type decodedConfig struct {
	Rule        int    `json:"rule"`
	RuleBinary  string `json:"ruleBinary"`
	Width       int    `json:"width"`
	Generations int    `json:"generations"`
	Delay       int    `json:"delay"`
	Seeds       []int  `json:"seeds"`
	Recognized  bool   `json:"recognized"`
	Canonical   string `json:"canonical"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <search>",
		Short: "Decode a shareable string into its resolved configuration",
		Long: `Decode a shareable query string into the configuration it resolves
to. Absent or malformed parameters fall back to defaults; out-of-range
values clamp. The canonical re-encoding is printed alongside.

Example:
  cellring decode "?r=90&w=101&s=AAAAAAAAAAAAIA"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recognized := share.ParseSearch(args[0])

			// The parser clamps, so the strict codec cannot fail here.
			bin, _ := rule.BinaryString(cfg.Rule)
			dec := decodedConfig{
				Rule:        cfg.Rule,
				RuleBinary:  bin,
				Width:       cfg.Width,
				Generations: cfg.Generations,
				Delay:       cfg.Delay,
				Seeds:       cfg.Seeds,
				Recognized:  recognized,
				Canonical:   cfg.Search(),
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.JSON(dec)
			}

			out.Line("rule:        %d (%s)", dec.Rule, dec.RuleBinary)
			out.Line("width:       %d", dec.Width)
			out.Line("generations: %d", dec.Generations)
			out.Line("delay:       %dms", dec.Delay)
			out.Line("seeds:       %s", seedsText(dec.Seeds))
			out.Line("canonical:   %s", dec.Canonical)
			if !dec.Recognized {
				out.Line("note: no recognized parameter, resolved to defaults")
			}
			return nil
		},
	}

	return cmd
}

func seedsText(seeds []int) string {
	if seeds == nil {
		return "(unspecified, random single cell)"
	}
	if len(seeds) == 0 {
		return "(explicit empty row)"
	}
	parts := make([]string, len(seeds))
	for i, s := range seeds {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ",")
}
