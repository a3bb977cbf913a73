package usecase

import (
	"context"
	"fmt"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// QueryAnalysesUseCase serves filtered, paginated listings together with
// aggregate statistics over the completed population.
type QueryAnalysesUseCase struct {
	store ports.AnalysisStore
}

func NewQueryAnalysesUseCase(store ports.AnalysisStore) *QueryAnalysesUseCase {
	return &QueryAnalysesUseCase{store: store}
}

func (uc *QueryAnalysesUseCase) List(ctx context.Context, filter domain.ListFilter, page, pageSize int) (*domain.AnalysisPage, error) {
	if filter.Status == "" {
		filter.Status = domain.StatusCompleted
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	skip := (page - 1) * pageSize
	items, total, err := uc.store.Query(ctx, filter, skip, pageSize)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	// Statistics always describe the full completed population, not the
	// narrowed page.
	stats, err := uc.store.AggregateStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate statistics: %w", err)
	}

	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.AnalysisPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
		Stats:    stats,
	}, nil
}
