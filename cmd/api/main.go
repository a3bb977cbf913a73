package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/intelliinsight/paper-analysis/internal/adapters/http"
	"github.com/intelliinsight/paper-analysis/internal/bootstrap"
	"github.com/intelliinsight/paper-analysis/internal/config"
	"github.com/intelliinsight/paper-analysis/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("paper-analysis-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.UploadUC,
		app.QueryUC,
		app.ManageUC,
		app.ManageUC,
		app.ReportUC,
		httpadapter.RouterOptions{
			Service:        "paper-analysis-api",
			MaxUploadBytes: cfg.MaxUploadBytes,
			Metrics:        app.Metrics,
			UploadRate:     cfg.UploadRatePerSec,
			UploadBurst:    cfg.UploadBurst,
		},
	)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown", "error", err)
	}
}
