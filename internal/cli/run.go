package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahearne/cellring/internal/preset"
	"github.com/ahearne/cellring/internal/share"
	"github.com/ahearne/cellring/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Rule        int
	Width       int
	Generations int
	Delay       int
	Seeds       []int
	Search      string
	Preset      string
	PresetsDir  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a rule headlessly to its generation bound",
		Long: `Run an elementary cellular automaton to completion and print the
space-time diagram (text) or the final snapshot (json).

The configuration comes from --search, from a named --preset, or from
the individual flags. The tick delay is skipped: generations advance as
fast as they compute.

Example:
  cellring run --rule 90 --width 64 --generations 32 --seeds 32
  cellring run --search "?r=30&w=118&g=100&d=10&s=gAAAAA"
  cellring run --preset sierpinski --presets-dir ./presets`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Rule, "rule", share.DefaultRule, "Wolfram rule number (0-255)")
	cmd.Flags().IntVar(&opts.Width, "width", share.DefaultWidth, "row width in cells (1-300)")
	cmd.Flags().IntVar(&opts.Generations, "generations", share.DefaultGenerations, "generation bound (1-500)")
	cmd.Flags().IntVar(&opts.Delay, "delay", share.DefaultDelay, "tick delay in ms, carried into the shareable encoding")
	cmd.Flags().IntSliceVar(&opts.Seeds, "seeds", nil, "seed cell indices (omit for a random single cell)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "shareable query string, overrides the individual flags")
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "preset name to run")
	cmd.Flags().StringVar(&opts.PresetsDir, "presets-dir", "presets", "directory of preset files")

	return cmd
}

func runHeadless(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := resolveRunConfig(opts, cmd)
	if err != nil {
		return err
	}

	snap, err := runToCompletion(cmd.Context(), cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.JSON(snap)
	}

	out.Line("rule %d (%s)  width %d  generations %d", snap.Rule, snap.RuleBinary, snap.Width, snap.Generation)
	out.Line("%s", snap.ShareConfig().Search())
	for _, row := range snap.Rows {
		out.Line("%s", renderRow(row))
	}
	return nil
}

// resolveRunConfig resolves the precedence: --search wins, then
// --preset, then the individual flags.
func resolveRunConfig(opts *RunOptions, cmd *cobra.Command) (share.Config, error) {
	if opts.Search != "" {
		cfg, recognized := share.ParseSearch(opts.Search)
		if !recognized {
			return share.Config{}, NewExitError(ExitCommandError, fmt.Sprintf("search %q carries no recognized parameter", opts.Search))
		}
		return cfg, nil
	}

	if opts.Preset != "" {
		presets, err := preset.LoadDir(opts.PresetsDir)
		if err != nil {
			return share.Config{}, WrapExitError(ExitCommandError, "failed to load presets", err)
		}
		p, ok := preset.Find(presets, opts.Preset)
		if !ok {
			return share.Config{}, NewExitError(ExitCommandError, fmt.Sprintf("preset %q not found in %s", opts.Preset, opts.PresetsDir))
		}
		return p.Config(), nil
	}

	cfg := share.Config{
		Rule:        opts.Rule,
		Width:       opts.Width,
		Generations: opts.Generations,
		Delay:       opts.Delay,
	}
	if cmd.Flags().Changed("seeds") {
		cfg.Seeds = opts.Seeds
	}
	return cfg.Clamped(), nil
}

// runToCompletion drives an engine to its generation bound without the
// configured delay: a free-running ticker fires as fast as the loop
// consumes it, and the engine's own auto-stop ends the run.
func runToCompletion(ctx context.Context, cfg share.Config) (sim.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	var once sync.Once
	engine := sim.New(sim.FromShare(cfg),
		sim.WithTickerFactory(newBurstTicker),
		sim.WithObserver(func(s sim.Snapshot) {
			if !s.Running {
				once.Do(func() { close(done) })
			}
		}),
	)

	loopDone := make(chan error, 1)
	go func() { loopDone <- engine.Run(ctx) }()

	engine.Start()

	select {
	case <-done:
	case <-ctx.Done():
		return sim.Snapshot{}, ctx.Err()
	}

	snap := engine.Snapshot()
	cancel()
	<-loopDone
	return snap, nil
}

// renderRow draws one generation as '#' and '.' cells.
func renderRow(row []uint8) string {
	var b strings.Builder
	b.Grow(len(row))
	for _, v := range row {
		if v == 1 {
			b.WriteByte('#')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// burstTicker delivers a tick whenever the consumer is ready, skipping
// the wall-clock delay for headless runs.
type burstTicker struct {
	ch   chan time.Time
	done chan struct{}
	once sync.Once
}

func newBurstTicker(time.Duration) sim.Ticker {
	t := &burstTicker{ch: make(chan time.Time), done: make(chan struct{})}
	go func() {
		for {
			select {
			case t.ch <- time.Now():
			case <-t.done:
				return
			}
		}
	}()
	return t
}

func (t *burstTicker) C() <-chan time.Time { return t.ch }

func (t *burstTicker) Stop() { t.once.Do(func() { close(t.done) }) }
