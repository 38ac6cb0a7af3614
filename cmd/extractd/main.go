// CLAUDE:SUMMARY Entry point for the extractd HTTP/MCP service — chi router, shield stack, jobq runner, graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/Valian/extractous-go/dbopen"
	"github.com/Valian/extractous-go/engine"
	"github.com/Valian/extractous-go/extractous"
	"github.com/Valian/extractous-go/jobq"
	"github.com/Valian/extractous-go/shield"
)

const version = "1.0.0"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(engine.Config{
		TesseractPath:   cfg.Tesseract,
		GhostscriptPath: cfg.Ghostscript,
		MaxFetchSize:    cfg.MaxBody,
		Logger:          logger,
	})
	ex := extractous.New(eng, extractous.WithLogger(logger))

	// MCP over stdio replaces the HTTP surface entirely.
	if cfg.MCPTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "extractous",
			Version: version,
		}, nil)
		ex.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio serving")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			slog.Error("MCP server", "error", err)
			os.Exit(1)
		}
		return
	}

	// Jobs DB + queue.
	jobsDB, err := dbopen.Open(cfg.JobsDB, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("jobs db", "error", err)
		os.Exit(1)
	}
	defer jobsDB.Close()

	store := jobq.NewStore(jobsDB)
	if err := store.Init(ctx); err != nil {
		slog.Error("jobs init", "error", err)
		os.Exit(1)
	}
	if err := shield.Init(jobsDB); err != nil {
		slog.Error("shield init", "error", err)
		os.Exit(1)
	}

	runner := jobq.NewRunner(store, ex, jobq.Options{
		Workers: cfg.JobWorkers,
		Logger:  logger,
	})
	runnerDone := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(runnerDone)
	}()

	// Retention sweep: finished jobs stay queryable for JobRetention, then
	// their rows are deleted.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := store.Purge(ctx, cfg.JobRetention)
				if err != nil {
					slog.Warn("job purge", "error", err)
				} else if n > 0 {
					slog.Info("purged finished jobs", "count", n)
				}
			}
		}
	}()

	// Router.
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(jobsDB, cfg.MaxBody) {
		r.Use(mw)
	}
	srv := newServer(ex, store, cfg.AuthToken, cfg.Workers)
	srv.routes(r)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute, // OCR-heavy synchronous calls are slow
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "version", version)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	<-runnerDone
	slog.Info("server stopped")
}
