package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
)

// ManageAnalysesUseCase covers single-record reads and irreversible deletion,
// single or batch. Deleting a record also drops its archived upload.
type ManageAnalysesUseCase struct {
	store   ports.AnalysisStore
	archive ports.ObjectStorage
}

func NewManageAnalysesUseCase(store ports.AnalysisStore, archive ports.ObjectStorage) *ManageAnalysesUseCase {
	return &ManageAnalysesUseCase{store: store, archive: archive}
}

func (uc *ManageAnalysesUseCase) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	return uc.store.GetByID(ctx, id)
}

func (uc *ManageAnalysesUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	uc.removeArchived(ctx, id)
	return nil
}

func (uc *ManageAnalysesUseCase) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	deleted, err := uc.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("batch delete analyses: %w", err)
	}
	for _, id := range ids {
		uc.removeArchived(ctx, id)
	}
	return deleted, nil
}

func (uc *ManageAnalysesUseCase) removeArchived(ctx context.Context, id string) {
	if uc.archive == nil {
		return
	}
	if err := uc.archive.Remove(ctx, archiveKey(id)); err != nil {
		slog.Warn("remove_archived_upload", "analysis_id", id, "error", err)
	}
}
