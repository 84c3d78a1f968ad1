package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/listcutter/internal/config"
	"github.com/JonMunkholm/listcutter/internal/logging"
	"github.com/JonMunkholm/listcutter/internal/source"
	"github.com/JonMunkholm/listcutter/internal/store"
	"github.com/JonMunkholm/listcutter/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_bytes", cfg.Limits.MaxBytes,
		"max_rows", cfg.Limits.MaxRows,
		"analysis_max_concurrent", cfg.Limits.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"saved_files", cfg.Database.Enabled(),
	)

	ctx := context.Background()
	deps, cleanup, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("failed to open backends", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := web.NewServer(cfg, deps)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openBackends connects the metadata database and the file store. Without
// DATABASE_URL the server runs without saved files.
func openBackends(ctx context.Context, cfg *config.Config) (web.Deps, func(), error) {
	if !cfg.Database.Enabled() {
		slog.Info("no database configured, saved files disabled")
		return web.Deps{}, func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		return web.Deps{}, nil, err
	}
	meta := store.New(pool)
	if cfg.Database.Migrate {
		if err := meta.Migrate(ctx); err != nil {
			pool.Close()
			return web.Deps{}, nil, err
		}
	}

	files, closeFiles, err := openFileStore(ctx, &cfg.Storage)
	if err != nil {
		pool.Close()
		return web.Deps{}, nil, err
	}

	cleanup := func() {
		closeFiles()
		closePool(pool)
	}
	return web.Deps{Files: files, Meta: meta}, cleanup, nil
}

func openFileStore(ctx context.Context, cfg *config.StorageConfig) (source.Store, func(), error) {
	if cfg.UseObjectStore() {
		obj, err := source.NewObjectStore(source.ObjectStoreConfig{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := obj.Ping(ctx); err != nil {
			return nil, nil, err
		}
		slog.Info("using object store", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
		return obj, func() {}, nil
	}

	fs, err := source.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using local file store", "dir", cfg.Dir)
	return fs, func() { fs.Close() }, nil
}

func closePool(pool *pgxpool.Pool) {
	pool.Close()
	slog.Info("database pool closed")
}
