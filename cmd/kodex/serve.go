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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/infrastructure/toolserver"
	"github.com/kodexhq/kodex/internal/config"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP retrieval server",
		Long: `Start the HTTP tool-call server: every read-side tool from the
toolserver registry, dispatched by one handler mounted at POST / and
POST /tools, framed as {id?, tool, params} -> {id?, ok, result?|error, error_type?, timing_ms}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(flags *globalFlags, host string, port int) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	var cfgOpts []config.AppConfigOption
	if host != "" {
		cfgOpts = append(cfgOpts, config.WithHost(host))
	}
	if port != 0 {
		cfgOpts = append(cfgOpts, config.WithPort(port))
	}
	cfg = cfg.Apply(cfgOpts...)

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger.Error("failed to close kodex client", slog.Any("error", err))
		}
	}()

	slogger := client.Logger.Slog()
	slogger.Info("starting kodex", slog.String("version", version), slog.String("addr", cfg.Addr()))
	slogger.LogAttrs(context.Background(), slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	toolsHandler := toolserver.HTTPHandler(client.Tools)
	router.Post("/", toolsHandler)
	router.Post("/tools", toolsHandler)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return runtimeErrorf("server error: %v", err)
	}
	return nil
}

