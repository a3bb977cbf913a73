package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intelliinsight/paper-analysis/internal/config"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
	"github.com/intelliinsight/paper-analysis/internal/core/usecase"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/classifier/fallback"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/classifier/remote"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/events/nats"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/inspector/pdfdoc"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/report/excel"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/repository/postgres"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/resilience"
	"github.com/intelliinsight/paper-analysis/internal/infrastructure/storage/localfs"
	"github.com/intelliinsight/paper-analysis/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.ServerMetrics

	UploadUC ports.UploadOrchestrator
	QueryUC  ports.AnalysisQueryService
	ManageUC *usecase.ManageAnalysesUseCase
	ReportUC ports.ReportService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	archive, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init upload archive: %w", err)
	}

	serverMetrics := metrics.NewServerMetrics("paper-analysis-api")
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var events ports.EventPublisher
	publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		// lifecycle events are best-effort, the pipeline runs without them
		slog.Warn("nats_unavailable", "url", cfg.NATSURL, "error", err)
	} else {
		events = publisher
	}

	classifyTimeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	remoteClassifier := remote.New(cfg.AIServiceURL, classifyTimeout, remote.WithExecutor(executor))
	fallbackClassifier := fallback.New().WithEngagementCounter(serverMetrics.FallbackCounter())

	uploadUC := usecase.NewUploadAnalysisUseCase(
		repo,
		remoteClassifier,
		fallbackClassifier,
		pdfdoc.New(),
		archive,
		events,
		cfg.MaxUploadBytes,
		classifyTimeout,
	)
	queryUC := usecase.NewQueryAnalysesUseCase(repo)
	manageUC := usecase.NewManageAnalysesUseCase(repo, archive)
	reportUC := usecase.NewReportUseCase(repo, excel.New())

	return &App{
		Config:  cfg,
		Metrics: serverMetrics,

		UploadUC: uploadUC,
		QueryUC:  queryUC,
		ManageUC: manageUC,
		ReportUC: reportUC,

		closeFn: func() {
			if publisher != nil {
				publisher.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
