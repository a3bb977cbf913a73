package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

var errNoSuchRecord = errors.New("no such record")

type storeFake struct {
	records map[string]*domain.AnalysisRecord

	createErr   error
	completeErr error
	queryErr    error

	markedErrors map[string]string
}

func newStoreFake() *storeFake {
	return &storeFake{
		records:      map[string]*domain.AnalysisRecord{},
		markedErrors: map[string]string{},
	}
}

func (f *storeFake) Create(_ context.Context, rec *domain.AnalysisRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyRec := *rec
	f.records[rec.ID] = &copyRec
	return nil
}

func (f *storeFake) GetByID(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errNoSuchRecord)
	}
	copyRec := *rec
	return &copyRec, nil
}

func (f *storeFake) CompleteAnalysis(_ context.Context, id string, outcome domain.AnalysisOutcome) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	rec, ok := f.records[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "complete analysis", errNoSuchRecord)
	}
	rec.Complete(outcome)
	return nil
}

func (f *storeFake) MarkError(_ context.Context, id, message string) error {
	rec, ok := f.records[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "mark error", errNoSuchRecord)
	}
	rec.Status = domain.StatusError
	rec.ErrorMessage = message
	f.markedErrors[id] = message
	return nil
}

func (f *storeFake) DeleteByID(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete analysis", errNoSuchRecord)
	}
	delete(f.records, id)
	return nil
}

func (f *storeFake) DeleteMany(_ context.Context, ids []string) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := f.records[id]; ok {
			delete(f.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *storeFake) Query(_ context.Context, filter domain.ListFilter, skip, limit int) ([]domain.AnalysisRecord, int64, error) {
	if f.queryErr != nil {
		return nil, 0, f.queryErr
	}

	var matched []domain.AnalysisRecord
	for _, rec := range f.records {
		if !matches(rec, filter) {
			continue
		}
		matched = append(matched, *rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UploadTimestamp.Equal(matched[j].UploadTimestamp) {
			return matched[i].UploadTimestamp.After(matched[j].UploadTimestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if skip >= len(matched) {
		return []domain.AnalysisRecord{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

func matches(rec *domain.AnalysisRecord, filter domain.ListFilter) bool {
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.DocumentType != "" && rec.DocumentType != filter.DocumentType {
		return false
	}
	if filter.Nature != "" && rec.Nature != filter.Nature {
		return false
	}
	if filter.TitleSearch != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(filter.TitleSearch)) {
		return false
	}
	if filter.From != nil && rec.UploadTimestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && rec.UploadTimestamp.After(*filter.To) {
		return false
	}
	return true
}

func (f *storeFake) AggregateStats(_ context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	var typeSum, natureSum float64
	for _, rec := range f.records {
		if rec.Status != domain.StatusCompleted {
			continue
		}
		stats.TotalAnalyses++
		switch rec.DocumentType {
		case domain.TypeConference:
			stats.ConferenceCount++
		case domain.TypeJournal:
			stats.JournalCount++
		}
		switch rec.Nature {
		case domain.NatureImplementation:
			stats.ImplementationCount++
		case domain.NatureTheoretical:
			stats.TheoreticalCount++
		}
		typeSum += rec.TypeConfidence
		natureSum += rec.NatureConfidence
	}
	if stats.TotalAnalyses > 0 {
		stats.AvgTypeConfidence = typeSum / float64(stats.TotalAnalyses)
		stats.AvgNatureConfidence = natureSum / float64(stats.TotalAnalyses)
	}
	return stats, nil
}

type classifierFake struct {
	result domain.ClassificationResult
	err    error
	calls  int
}

func (f *classifierFake) Classify(context.Context, domain.Upload) (domain.ClassificationResult, error) {
	f.calls++
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	return f.result, nil
}

type fallbackFake struct {
	calls int
}

func (f *fallbackFake) Classify(fileName string) domain.ClassificationResult {
	f.calls++
	return domain.ClassificationResult{
		Title:            domain.TitleFromFileName(fileName),
		DocumentType:     string(domain.TypeConference),
		TypeConfidence:   0.81,
		Nature:           string(domain.NatureImplementation),
		NatureConfidence: 0.88,
		Evidence:         []string{"We implemented a novel architecture."},
		Keywords:         []string{"machine learning"},
		Fallback:         true,
	}
}

type inspectorFake struct {
	err error
}

func (f *inspectorFake) Inspect(string, []byte) error {
	return f.err
}

type archiveFake struct {
	saved   map[string]string
	removed []string
	saveErr error
}

func newArchiveFake() *archiveFake {
	return &archiveFake{saved: map[string]string{}}
}

func (f *archiveFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *archiveFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *archiveFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type eventsFake struct {
	completed []string
	failed    []string
}

func (f *eventsFake) PublishAnalysisCompleted(_ context.Context, id string) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *eventsFake) PublishAnalysisFailed(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}
