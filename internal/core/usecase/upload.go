package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
)

const supportedMimeType = "application/pdf"

// UploadAnalysisUseCase drives one upload through the full pipeline:
// validate, create the processing record, classify (falling back locally when
// the remote service is unavailable), and persist the terminal state.
type UploadAnalysisUseCase struct {
	store      ports.AnalysisStore
	classifier ports.ClassificationClient
	fallback   ports.FallbackClassifier
	inspector  ports.DocumentInspector
	archive    ports.ObjectStorage
	events     ports.EventPublisher

	maxUploadBytes  int64
	classifyTimeout time.Duration
}

func NewUploadAnalysisUseCase(
	store ports.AnalysisStore,
	classifier ports.ClassificationClient,
	fallback ports.FallbackClassifier,
	inspector ports.DocumentInspector,
	archive ports.ObjectStorage,
	events ports.EventPublisher,
	maxUploadBytes int64,
	classifyTimeout time.Duration,
) *UploadAnalysisUseCase {
	return &UploadAnalysisUseCase{
		store:           store,
		classifier:      classifier,
		fallback:        fallback,
		inspector:       inspector,
		archive:         archive,
		events:          events,
		maxUploadBytes:  maxUploadBytes,
		classifyTimeout: classifyTimeout,
	}
}

func (uc *UploadAnalysisUseCase) Submit(ctx context.Context, upload domain.Upload) (*domain.AnalysisRecord, error) {
	start := time.Now()

	if err := uc.validate(upload); err != nil {
		return nil, err
	}

	rec := domain.NewAnalysisRecord(
		uuid.NewString(),
		domain.TitleFromFileName(upload.FileName),
		upload.FileName,
		upload.SizeBytes,
		time.Now().UTC(),
	)

	if err := uc.store.Create(ctx, rec); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "create analysis record", err)
	}

	uc.archiveOriginal(ctx, rec.ID, upload)

	result := uc.classify(ctx, upload)
	outcome := domain.MergeClassification(rec.Title, result, time.Since(start))

	if err := uc.store.CompleteAnalysis(ctx, rec.ID, outcome); err != nil {
		uc.markFailed(ctx, rec.ID, "persist classification result: "+err.Error())
		return nil, domain.WrapError(domain.ErrPersistence, "persist analysis result", err)
	}
	rec.Complete(outcome)

	uc.publishCompleted(ctx, rec.ID)
	return rec, nil
}

func (uc *UploadAnalysisUseCase) validate(upload domain.Upload) error {
	if upload.FileName == "" || len(upload.Data) == 0 {
		return domain.WrapError(domain.ErrValidation, "validate upload", fmt.Errorf("no file provided"))
	}
	if upload.MimeType != supportedMimeType {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("unsupported content type %q, only PDF files are allowed", upload.MimeType))
	}
	if upload.SizeBytes > uc.maxUploadBytes {
		return domain.WrapError(domain.ErrValidation, "validate upload",
			fmt.Errorf("file size %d exceeds limit of %d bytes", upload.SizeBytes, uc.maxUploadBytes))
	}
	if err := uc.inspector.Inspect(upload.FileName, upload.Data); err != nil {
		return domain.WrapError(domain.ErrValidation, "inspect upload", err)
	}
	return nil
}

// classify asks the remote service and degrades to the local fallback on any
// failure. A classifier outage never fails the upload.
func (uc *UploadAnalysisUseCase) classify(ctx context.Context, upload domain.Upload) domain.ClassificationResult {
	classifyCtx, cancel := context.WithTimeout(ctx, uc.classifyTimeout)
	defer cancel()

	result, err := uc.classifier.Classify(classifyCtx, upload)
	if err == nil {
		return result
	}

	slog.Warn("classification_fallback_engaged",
		"file", upload.FileName,
		"error", err,
	)
	return uc.fallback.Classify(upload.FileName)
}

// archiveOriginal keeps the raw upload for later inspection. Archive failure
// degrades observability, not the pipeline.
func (uc *UploadAnalysisUseCase) archiveOriginal(ctx context.Context, id string, upload domain.Upload) {
	if uc.archive == nil {
		return
	}
	if err := uc.archive.Save(ctx, archiveKey(id), bytes.NewReader(upload.Data)); err != nil {
		slog.Warn("archive_upload_failed", "analysis_id", id, "error", err)
	}
}

func (uc *UploadAnalysisUseCase) markFailed(ctx context.Context, id, message string) {
	// The request context may already be expired; the error state must still
	// be recorded for later inspection.
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := uc.store.MarkError(failCtx, id, message); err != nil {
		slog.Error("mark_analysis_failed", "analysis_id", id, "error", err)
	}
	uc.publishFailed(failCtx, id)
}

func (uc *UploadAnalysisUseCase) publishCompleted(ctx context.Context, id string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAnalysisCompleted(ctx, id); err != nil {
		slog.Warn("publish_analysis_completed", "analysis_id", id, "error", err)
	}
}

func (uc *UploadAnalysisUseCase) publishFailed(ctx context.Context, id string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAnalysisFailed(ctx, id); err != nil {
		slog.Warn("publish_analysis_failed", "analysis_id", id, "error", err)
	}
}

func archiveKey(id string) string {
	return id + ".pdf"
}
