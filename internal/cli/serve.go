package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/custody/internal/api"
	"github.com/erazemk/custody/internal/db"
	"github.com/erazemk/custody/internal/metrics"
	"github.com/erazemk/custody/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				opts.cfg.ListenAddr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				opts.cfg.MetricsAddr = metricsAddr
			}
			return serve(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "API listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (empty disables)")
	return cmd
}

func serve(cmd *cobra.Command, opts *rootOptions) error {
	cfg := opts.cfg
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.DatabasePath); errors.Is(err, os.ErrNotExist) {
		password, err := initDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(cmd.OutOrStdout(), cfg, password)
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}
	added, err := store.SeedUnits(ctx, database, cfg.Units)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DatabasePath, "units_added", added)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	m := metrics.New()
	handler, err := api.NewRouter(api.Options{
		DB:             database,
		JWTSecret:      jwtSecret,
		Metrics:        m,
		Location:       cfg.Location(),
		EquipmentTypes: cfg.EquipmentTypes,
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{newServer(cfg.ListenAddr, handler)}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		servers = append(servers, newServer(cfg.MetricsAddr, mux))
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		ln := listeners[i]
		slog.Info("server started", "addr", ln.Addr().String())
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	slog.Info("server stopped, closing database")
	return err
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
