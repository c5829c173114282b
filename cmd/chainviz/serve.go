package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-chainviz/pkg/api"
	"github.com/dd0wney/cluso-chainviz/pkg/expansion"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/server"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
	chainviztls "github.com/dd0wney/cluso-chainviz/pkg/tls"
)

const systemMetricsInterval = 15 * time.Second

type serveOptions struct {
	addr   string
	noSeed bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live layout over HTTP and websockets",
		Long: `Runs a session and serves it: GET /graph for snapshots, POST /expand and
/gesture to drive it, and /ws for a stream of frames. SIGHUP reloads the
key table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.noSeed, "no-seed", false, "Start with an empty graph instead of the seed subgraph")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions, cmd *cobra.Command) error {
	a, err := newApp(root, cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	sess, err := a.newSession(0)
	if err != nil {
		return err
	}

	apiServer, err := api.NewServer(sess, api.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RequestRate:    cfg.Server.RequestRate,
		RequestBurst:   cfg.Server.RequestBurst,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	},
		api.WithMetrics(a.metrics),
		api.WithHealth(a.health),
		api.WithLogger(a.logger),
		api.WithVersion(version),
	)
	if err != nil {
		return err
	}
	defer apiServer.Close()

	tlsCfg, err := chainviztls.ServerConfig(cfg.Server.TLS)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler(),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithServerLogger(a.logger),
		server.WithTLSConfig(tlsCfg),
	)
	gs.SetReloadFunc(func() error {
		t, err := a.loadTable()
		if err != nil {
			return err
		}
		if !sess.SwapTable(t) {
			return session.ErrStopped
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return gs.ListenAndServe(gctx) })
	g.Go(func() error {
		gs.WatchReloadSignal(gctx)
		return nil
	})
	g.Go(func() error {
		sampleSystemMetrics(gctx, a)
		return nil
	})
	if cfg.Expansion.Watch && cfg.Expansion.KeyTable != "" {
		watcher := expansion.NewTableWatcher(cfg.Expansion.KeyTable, a.logger)
		g.Go(func() error {
			return watcher.Watch(gctx, func(t *expansion.Table) { sess.SwapTable(t) })
		})
	}

	if !opts.noSeed {
		sess.Seed()
	}
	a.logger.Info("chainviz serving",
		logging.String("addr", cfg.Server.Addr),
		logging.Bool("tls", tlsCfg != nil),
		logging.String("version", version),
		logging.String("seed", a.table.Seed()),
	)

	if err := g.Wait(); err != nil {
		a.logger.Error("chainviz stopped", logging.Error(err))
		return err
	}
	a.logger.Info("chainviz stopped")
	return nil
}

func sampleSystemMetrics(ctx context.Context, a *app) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	a.metrics.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.metrics.UpdateSystemMetrics()
		}
	}
}
