package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-chainviz/pkg/tui"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore the graph in the terminal",
		Long: `Runs a session and shows it in the terminal. Select a node in the table,
press enter to expand it, m to move it with the arrow keys, or x to
expand any key from the table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the screen belongs to the UI, so logs always go to a file
			a, err := newApp(root, cmd.ErrOrStderr(), logFile)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.newSession(0)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sess.Run(gctx) })
			g.Go(func() error {
				defer cancel()
				return tui.Run(gctx, sess)
			})
			sess.Seed()
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "chainviz.log", "Log file")
	return cmd
}
