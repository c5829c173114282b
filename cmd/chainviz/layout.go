package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

type layoutOptions struct {
	keys    []string
	format  string
	pretty  bool
	static  string
	output  string
	tick    time.Duration
	timeout time.Duration
}

func newLayoutCmd(root *rootOptions) *cobra.Command {
	opts := &layoutOptions{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Expand keys headlessly and print the settled frame",
		Long: `Expands the seed key (or the keys given with --key, in order), runs the
force simulation until it settles and writes the final frame as JSON or
SVG. --static replaces the live simulation with a one-shot layout.`,
		Example: `  chainviz layout --format svg -o graph.svg
  chainviz layout --key one --key two --pretty
  chainviz layout --static circular`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.Context(), root, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringArrayVarP(&opts.keys, "key", "k", nil, "Expansion key to merge (repeatable, default the seed key)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(render.FormatJSON), "Output format: json or svg")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().StringVar(&opts.static, "static", "", "Static layout instead of the simulation: force, circular or hierarchical")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Millisecond, "Simulation tick interval")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Give up when expansion and settling take longer")
	return cmd
}

func runLayout(ctx context.Context, root *rootOptions, opts *layoutOptions, stdout, stderr io.Writer) error {
	format := render.Format(opts.format)
	if format != render.FormatJSON && format != render.FormatSVG {
		return fmt.Errorf("unsupported format %q", opts.format)
	}

	a, err := newApp(root, stderr, "")
	if err != nil {
		return err
	}
	defer a.Close()

	var static visualization.Layout
	if opts.static != "" {
		static, err = visualization.NewLayout(opts.static, &visualization.LayoutConfig{
			Width:  a.cfg.Layout.Width,
			Height: a.cfg.Layout.Height,
		})
		if err != nil {
			return err
		}
	}

	sess, err := a.newSession(opts.tick)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	events, err := sess.Bus().Subscribe(ctx, pubsub.TopicExpansion, pubsub.WithBuffer(16))
	if err != nil {
		return err
	}
	frames, err := sess.Bus().Subscribe(ctx, pubsub.TopicFrames,
		pubsub.WithMode(pubsub.KeepLatest), pubsub.WithBuffer(1))
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()
	defer func() {
		cancel()
		<-runErr
	}()

	keys := opts.keys
	if len(keys) == 0 {
		keys = []string{a.table.Seed()}
	}
	for _, k := range keys {
		if !sess.Expand(k) {
			return session.ErrStopped
		}
		ev, err := waitExpansion(ctx, events)
		if err != nil {
			return err
		}
		if ev.Failed() {
			return fmt.Errorf("expand %s: %s", k, ev.Error)
		}
		a.logger.Info("layout merged key", logging.Key(k), logging.Int("nodes_added", ev.Merge.NodesAdded))
	}

	var f render.Frame
	if static != nil {
		f, err = staticFrame(ctx, sess, a, static)
	} else {
		f, err = waitSettled(ctx, sess, frames)
	}
	if err != nil {
		return err
	}
	a.logger.Info("layout finished", logging.Uint64("seq", f.Seq), logging.Count(len(f.Nodes)))

	return writeFrame(f, opts, format, a.cfg.Layout, stdout)
}

func waitExpansion(ctx context.Context, sub *pubsub.Subscription) (session.ExpansionEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return session.ExpansionEvent{}, fmt.Errorf("waiting for expansion: %w", ctx.Err())
		case msg, ok := <-sub.Channel():
			if !ok {
				return session.ExpansionEvent{}, stoppedOr(ctx, "waiting for expansion")
			}
			if ev, ok := msg.(session.ExpansionEvent); ok {
				return ev, nil
			}
		}
	}
}

// waitSettled returns the first settled frame published after the last
// merge
func waitSettled(ctx context.Context, sess *session.Session, sub *pubsub.Subscription) (render.Frame, error) {
	latest := sess.Latest()
	if latest.Settled {
		return latest, nil
	}
	for {
		select {
		case <-ctx.Done():
			return render.Frame{}, fmt.Errorf("layout did not settle: %w", ctx.Err())
		case msg, ok := <-sub.Channel():
			if !ok {
				return render.Frame{}, stoppedOr(ctx, "layout did not settle")
			}
			if f, ok := msg.(render.Frame); ok && f.Seq >= latest.Seq && f.Settled {
				return f, nil
			}
		}
	}
}

// staticFrame places every node with l and derives a frame on the loop
func staticFrame(ctx context.Context, sess *session.Session, a *app, l visualization.Layout) (render.Frame, error) {
	var (
		f      render.Frame
		layErr error
	)
	err := sess.Inspect(ctx, func(store *graph.Store, _ *visualization.Simulation) {
		positions, err := l.ComputeLayout(store)
		if err != nil {
			layErr = err
			return
		}
		visualization.Apply(store, positions)
		f = render.Derive(store, a.table)
		f.Seq = sess.Latest().Seq
		f.Settled = true
	})
	if err != nil {
		return render.Frame{}, err
	}
	if layErr != nil {
		return render.Frame{}, fmt.Errorf("static layout: %w", layErr)
	}
	return f, nil
}

func stoppedOr(ctx context.Context, what string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, ctx.Err())
	}
	return session.ErrStopped
}

func writeFrame(f render.Frame, opts *layoutOptions, format render.Format, viewport visualization.SimulationConfig, stdout io.Writer) (err error) {
	w := stdout
	if opts.output != "" && opts.output != "-" {
		file, ferr := os.Create(opts.output)
		if ferr != nil {
			return fmt.Errorf("create output: %w", ferr)
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		w = file
	}

	bw := bufio.NewWriter(w)
	if err := render.Export(bw, f, render.ExportOptions{
		Format: format,
		Pretty: opts.pretty,
		Width:  viewport.Width,
		Height: viewport.Height,
	}); err != nil {
		return err
	}
	return bw.Flush()
}
