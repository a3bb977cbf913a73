package ports

import (
	"context"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

// UploadOrchestrator is the inbound contract for the upload-and-classify
// pipeline. Submit either returns a terminal record or a typed error; a
// classifier outage is absorbed by the fallback path and never surfaced.
type UploadOrchestrator interface {
	Submit(ctx context.Context, upload domain.Upload) (*domain.AnalysisRecord, error)
}

// AnalysisQueryService is the inbound read model for filtered, paginated
// listings with aggregate statistics.
type AnalysisQueryService interface {
	List(ctx context.Context, filter domain.ListFilter, page, pageSize int) (*domain.AnalysisPage, error)
}

// AnalysisReader fetches a single record by id.
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
}

// AnalysisDeleter removes records, individually or in batch. Batch deletion
// tolerates absent ids and reports how many records were actually removed.
type AnalysisDeleter interface {
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
}

// ReportService renders the downloadable report for one analysis.
type ReportService interface {
	Render(ctx context.Context, id string) (*domain.ReportArtifact, error)
}
