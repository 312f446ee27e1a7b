package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/cmd"
	"github.com/mangalib-app/mangalib/config"
	"github.com/mangalib-app/mangalib/library"
	"github.com/mangalib-app/mangalib/server"
	"github.com/mangalib-app/mangalib/sources"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the aggregation HTTP server",
	Long: `
Starts the JSON API on the configured address. Configuration comes from the
environment (or a yaml file via --config); a .env file next to the binary is
picked up automatically.`,
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a yaml config file")
	cmd.RootCmd.AddCommand(serveCmd)
}

func run() {
	cfg := config.MustLoad(configPath)
	log := newLogger(cfg.LogLevel)

	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Error("opening store", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := catalog.NewRegistry(sources.All(cfg.SourceTimeout)...)
	agg := catalog.NewAggregator(registry, log)
	srv := server.New(agg, registry, library.New(store), log)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTP.Addr, "sources", registry.Names(), "store", cfg.Storage.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func newStore(cfg config.Storage) (library.Store, error) {
	if strings.EqualFold(cfg.Backend, "sqlite") {
		return library.NewSQLiteStore(cfg.SQLitePath)
	}
	return library.NewMemoryStore(), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
