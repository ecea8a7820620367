// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/thoughtmap/internal/api"
	"github.com/starford/thoughtmap/internal/index"
	"github.com/starford/thoughtmap/internal/mcpserver"
	"github.com/starford/thoughtmap/internal/metrics"
	"github.com/starford/thoughtmap/internal/render"
	"github.com/starford/thoughtmap/internal/sse"
	"github.com/starford/thoughtmap/internal/storage"
	"github.com/starford/thoughtmap/internal/thought"
	"github.com/starford/thoughtmap/internal/thoughtservice"
	"github.com/starford/thoughtmap/internal/view"
)

// newLogger builds the structured JSON logger. The MCP server owns stdout,
// so it logs to stderr.
func newLogger(cfg *Config, toStderr bool) *slog.Logger {
	out := os.Stdout
	if toStderr {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openVault prepares storage, the index and a loaded thought service. The
// returned close function releases the index.
func openVault(ctx context.Context, cfg *Config, logger *slog.Logger) (*thoughtservice.Service, *index.DB, storage.Provider, func(), error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := thoughtservice.NewService(store, db, logger.With(slog.String("component", "thoughtservice")))
	if err := svc.Load(ctx); err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("load forest: %w", err)
	}
	return svc, db, store, func() { db.Close() }, nil
}

// newSurface lays out the service's forest with the configured view and
// layout settings.
func newSurface(cfg *Config, svc *thoughtservice.Service, logger *slog.Logger, opts ...view.Option) *view.Surface {
	roots, res := svc.Forest()
	props := view.Props{
		Roots:           roots,
		Resolver:        res,
		MaxVisibleDepth: cfg.View.MaxDepth,
		Width:           cfg.View.Width,
		Height:          cfg.View.Height,
	}
	base := []view.Option{
		view.WithLogger(logger.With(slog.String("component", "surface"))),
		view.WithScale(render.Scale{Base: cfg.Layout.RadiusBase, PerDepth: cfg.Layout.RadiusPerDepth}),
		view.WithLinkDistance(cfg.Layout.LinkDistance),
		view.WithChargeStrength(cfg.Layout.ChargeStrength),
		view.WithFrameInterval(cfg.Layout.FrameInterval),
		view.WithAlphaMin(cfg.Layout.AlphaMin),
	}
	return view.New(props, append(base, opts...)...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.log(false)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, db, store, closeVault, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeVault()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.GraphThrottle, cfg.Events.FrameThrottle)
	defer broker.Close()

	surface := newSurface(cfg, svc, logger)
	defer surface.Close()

	// Node events from the surface go out as SSE.
	surface.UpdateProps(func(p *view.Props) {
		p.OnNodeClick = func(n *thought.Node) {
			broker.Publish(sse.Event{Type: "node.clicked", Data: map[string]string{"id": n.ID}})
		}
		p.OnNodeHover = func(n *thought.Node) {
			id := ""
			if n != nil {
				id = n.ID
			}
			broker.Publish(sse.Event{Type: "node.hovered", Data: map[string]string{"id": id}})
		}
	})

	unsubscribe := surface.Subscribe(func(f render.Frame) { broker.PublishFrame(f) })
	defer unsubscribe()

	// Every reload re-flattens the surface and notifies clients.
	svc.OnChange(func(kind, path string) {
		surface.UpdateProps(func(p *view.Props) {
			p.Roots, p.Resolver = svc.Forest()
		})
		broker.PublishDocEvent(kind, path)
	})

	apiRouter := api.NewRouter(svc, surface, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (unauthenticated).
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher; index changes reload the forest.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, cfg.Vault.Path, logger, svc.HandleIndexEvent); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		// Close the broker first so open event streams return.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := app.log(true)
	svc, _, _, closeVault, err := openVault(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer closeVault()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// RenderOptions control a headless render.
type RenderOptions struct {
	// Ticks bounds the number of simulation steps before drawing.
	Ticks int
	// Highlight marks one node as selected.
	Highlight string
}

// Render lays out the vault without starting a server and writes one SVG
// frame to w. It returns the number of steps taken.
func Render(ctx context.Context, w io.Writer, ro RenderOptions, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}

	logger := app.log(true)
	svc, _, _, closeVault, err := openVault(ctx, app.config, logger)
	if err != nil {
		return 0, err
	}
	defer closeVault()

	// A frame interval of an hour keeps the runner from stepping on its own
	// while Settle drives it.
	surface := newSurface(app.config, svc, logger, view.WithFrameInterval(time.Hour))
	defer surface.Close()

	if ro.Highlight != "" {
		surface.UpdateProps(func(p *view.Props) { p.HighlightedNodeID = ro.Highlight })
	}

	steps := surface.Settle(ro.Ticks)
	if err := surface.Render(w); err != nil {
		return steps, fmt.Errorf("render: %w", err)
	}
	logger.Info("rendered", slog.Int("steps", steps), slog.Int("nodes", surface.Graph().Stats().Nodes))
	return steps, nil
}
