// Package main is the entrypoint for the rowguardd server.
// The server exposes the row-owned store over HTTP JSON: it resolves the
// acting identity from the warehouse session, scopes every operation to
// that identity's rows, and records an audit trail when a PostgreSQL
// audit store is configured.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rowguard-labs/rowguard/internal/config"
	"github.com/rowguard-labs/rowguard/internal/identity"
	"github.com/rowguard-labs/rowguard/internal/observability"
	"github.com/rowguard-labs/rowguard/internal/schema"
	"github.com/rowguard-labs/rowguard/internal/server"
	"github.com/rowguard-labs/rowguard/internal/storage"
	"github.com/rowguard-labs/rowguard/internal/store"
	"github.com/rowguard-labs/rowguard/internal/warehouse"
	"github.com/rowguard-labs/rowguard/internal/warehouse/connect"

	_ "github.com/lib/pq" // PostgreSQL driver for the audit store
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rowguardd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr       = flag.String("addr", "", "HTTP listen address (default from config)")
		configPath = flag.String("config", "", "Path to config file")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("rowguardd %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if missing := cfg.MissingConnectionSettings(); len(missing) > 0 {
		return fmt.Errorf("incomplete warehouse configuration, missing: %v", missing)
	}

	formSchema := schema.Default()
	if cfg.SchemaFile != "" {
		formSchema, err = schema.LoadFile(cfg.SchemaFile)
		if err != nil {
			return fmt.Errorf("failed to load form schema: %w", err)
		}
	}

	handle := warehouse.NewLazy(connect.Connector(cfg.Warehouse, cfg.Table))
	defer handle.Close()

	resolver := identity.NewResolver(identity.SourceFunc(func(ctx context.Context) (string, error) {
		wh, err := handle.Get(ctx)
		if err != nil {
			return "", err
		}
		return wh.CurrentUser(ctx)
	}))

	// Audit persistence is optional; without it operations are logged as
	// JSON lines on stdout. With it the server refuses to start unless the
	// audit database is reachable and migrated.
	logger := observability.OperationLogger(observability.NewJSONLogger(os.Stdout))
	if cfg.Audit.Enabled {
		db, err := sql.Open("postgres", cfg.Audit.ConnectionString())
		if err != nil {
			return fmt.Errorf("failed to open audit database: %w", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("audit database unreachable: %w", err)
		}

		if err := storage.NewMigrationRunner(db).Run(context.Background()); err != nil {
			return fmt.Errorf("audit migrations failed: %w", err)
		}

		logger, err = observability.NewPersistentLoggerWithWriter(db, os.Stdout)
		if err != nil {
			return fmt.Errorf("failed to create audit logger: %w", err)
		}
		log.Println("Audit persistence enabled")
	}

	st := store.New(handle, cfg.Table.Qualified(), formSchema, store.WithLogger(logger))
	handler := server.New(st, resolver, formSchema, logger, handle, version)

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", cfg.Server.Port)
	}

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  durationOr(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		close(done)
	}()

	log.Printf("rowguardd starting on %s", listenAddr)
	log.Printf("Version: %s, Commit: %s", version, commit)
	log.Printf("Managed table: %s (%s backend)", cfg.Table.Qualified(), cfg.Warehouse.Backend)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Println("Stopped")
	return nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
