package ports

import (
	"context"
	"io"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

// AnalysisStore persists analysis records. All operations are atomic at
// single-record granularity.
type AnalysisStore interface {
	Create(ctx context.Context, rec *domain.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	CompleteAnalysis(ctx context.Context, id string, outcome domain.AnalysisOutcome) error
	MarkError(ctx context.Context, id, message string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Query(ctx context.Context, filter domain.ListFilter, skip, limit int) ([]domain.AnalysisRecord, int64, error)
	AggregateStats(ctx context.Context) (domain.Statistics, error)
}

// ClassificationClient calls the external classification service. Timeouts,
// transport errors and malformed payloads are all reported as
// domain.ErrClassifierUnavailable.
type ClassificationClient interface {
	Classify(ctx context.Context, upload domain.Upload) (domain.ClassificationResult, error)
}

// FallbackClassifier produces a deterministic local classification when the
// external service is unreachable. It cannot fail.
type FallbackClassifier interface {
	Classify(fileName string) domain.ClassificationResult
}

// DocumentInspector verifies that an uploaded payload is a structurally
// valid document of the claimed format.
type DocumentInspector interface {
	Inspect(fileName string, data []byte) error
}

// ObjectStorage archives original upload bytes keyed by record id.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ReportExporter renders a record into a downloadable binary artifact.
type ReportExporter interface {
	Export(rec *domain.AnalysisRecord) (*domain.ReportArtifact, error)
}

// EventPublisher emits analysis lifecycle events for downstream consumers.
// Publishing is best-effort from the pipeline's point of view.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, id string) error
	PublishAnalysisFailed(ctx context.Context, id string) error
}
