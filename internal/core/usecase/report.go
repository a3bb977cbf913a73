package usecase

import (
	"context"
	"fmt"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
)

// ReportUseCase fetches a record and hands it to the exporter sink.
type ReportUseCase struct {
	store    ports.AnalysisStore
	exporter ports.ReportExporter
}

func NewReportUseCase(store ports.AnalysisStore, exporter ports.ReportExporter) *ReportUseCase {
	return &ReportUseCase{store: store, exporter: exporter}
}

func (uc *ReportUseCase) Render(ctx context.Context, id string) (*domain.ReportArtifact, error) {
	rec, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	artifact, err := uc.exporter.Export(rec)
	if err != nil {
		return nil, fmt.Errorf("export report for %s: %w", id, err)
	}
	return artifact, nil
}
