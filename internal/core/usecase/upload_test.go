package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

const testMaxUploadBytes = 10 << 20

func newUploadUseCase(store *storeFake, classifier *classifierFake, fallback *fallbackFake, archive *archiveFake, events *eventsFake) *UploadAnalysisUseCase {
	return NewUploadAnalysisUseCase(
		store,
		classifier,
		fallback,
		&inspectorFake{},
		archive,
		events,
		testMaxUploadBytes,
		time.Second,
	)
}

func pdfUpload(name string, size int) domain.Upload {
	data := make([]byte, size)
	copy(data, "%PDF-1.4")
	return domain.Upload{
		FileName:  name,
		MimeType:  "application/pdf",
		SizeBytes: int64(size),
		Data:      data,
	}
}

func TestSubmitRejectsUnsupportedMimeType(t *testing.T) {
	store := newStoreFake()
	uc := newUploadUseCase(store, &classifierFake{}, &fallbackFake{}, newArchiveFake(), &eventsFake{})

	upload := pdfUpload("paper.pdf", 128)
	upload.MimeType = "text/plain"

	_, err := uc.Submit(context.Background(), upload)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("no record may be created on validation failure")
	}
}

func TestSubmitRejectsOversizedFile(t *testing.T) {
	store := newStoreFake()
	uc := newUploadUseCase(store, &classifierFake{}, &fallbackFake{}, newArchiveFake(), &eventsFake{})

	upload := pdfUpload("paper.pdf", 64)
	upload.SizeBytes = testMaxUploadBytes + 1

	_, err := uc.Submit(context.Background(), upload)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("no record may be created on validation failure")
	}
}

func TestSubmitRejectsCorruptDocument(t *testing.T) {
	store := newStoreFake()
	uc := NewUploadAnalysisUseCase(
		store,
		&classifierFake{},
		&fallbackFake{},
		&inspectorFake{err: errors.New("not a pdf")},
		newArchiveFake(),
		&eventsFake{},
		testMaxUploadBytes,
		time.Second,
	)

	_, err := uc.Submit(context.Background(), pdfUpload("paper.pdf", 64))
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitSuccessMergesClassifierResult(t *testing.T) {
	store := newStoreFake()
	classifier := &classifierFake{result: domain.ClassificationResult{
		Title:            "Attention Is All You Need",
		DocumentType:     "Journal",
		TypeConfidence:   0.93,
		Nature:           "Theoretical",
		NatureConfidence: 0.87,
		Evidence:         []string{"formal proofs"},
		Keywords:         []string{"transformers"},
	}}
	fallback := &fallbackFake{}
	archive := newArchiveFake()
	events := &eventsFake{}
	uc := newUploadUseCase(store, classifier, fallback, archive, events)

	rec, err := uc.Submit(context.Background(), pdfUpload("attention.pdf", 2048))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if rec.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.Title != "Attention Is All You Need" {
		t.Errorf("expected classifier title, got %q", rec.Title)
	}
	if rec.DocumentType != domain.TypeJournal || rec.Nature != domain.NatureTheoretical {
		t.Errorf("expected Journal/Theoretical, got %s/%s", rec.DocumentType, rec.Nature)
	}
	if rec.ProcessingTimeMs < 0 {
		t.Errorf("processing time must be non-negative, got %d", rec.ProcessingTimeMs)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must not engage on success")
	}
	if _, ok := archive.saved[rec.ID+".pdf"]; !ok {
		t.Errorf("expected original upload archived under record id")
	}
	if len(events.completed) != 1 || events.completed[0] != rec.ID {
		t.Errorf("expected completed event for %s, got %v", rec.ID, events.completed)
	}

	stored, err := store.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("persisted record must be completed, got %s", stored.Status)
	}
}

func TestSubmitEngagesFallbackWhenClassifierFails(t *testing.T) {
	store := newStoreFake()
	classifier := &classifierFake{err: domain.WrapError(domain.ErrClassifierUnavailable, "classify", errors.New("timeout"))}
	fallback := &fallbackFake{}
	uc := newUploadUseCase(store, classifier, fallback, newArchiveFake(), &eventsFake{})

	rec, err := uc.Submit(context.Background(), pdfUpload("my-paper.pdf", 1<<20))
	if err != nil {
		t.Fatalf("classifier outage must not fail the upload, got %v", err)
	}

	if rec.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.Title != "My Paper" {
		t.Errorf("expected title derived from file name, got %q", rec.Title)
	}
	if len(rec.Evidence) == 0 {
		t.Errorf("fallback result must carry evidence")
	}
	if rec.TypeConfidence < 0.70 || rec.TypeConfidence > 0.95 {
		t.Errorf("fallback type confidence out of range: %f", rec.TypeConfidence)
	}
	if fallback.calls != 1 {
		t.Errorf("expected exactly one fallback engagement, got %d", fallback.calls)
	}
}

func TestSubmitPersistFailureMarksRecordError(t *testing.T) {
	store := newStoreFake()
	store.completeErr = errors.New("connection reset")
	events := &eventsFake{}
	uc := newUploadUseCase(store, &classifierFake{}, &fallbackFake{}, newArchiveFake(), events)

	_, err := uc.Submit(context.Background(), pdfUpload("paper.pdf", 256))
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	if len(store.markedErrors) != 1 {
		t.Fatalf("expected record marked as error, got %v", store.markedErrors)
	}
	for id, msg := range store.markedErrors {
		rec := store.records[id]
		if rec.Status != domain.StatusError {
			t.Errorf("expected terminal error status, got %s", rec.Status)
		}
		if !strings.Contains(msg, "connection reset") {
			t.Errorf("expected diagnostic message, got %q", msg)
		}
	}
	if len(events.failed) != 1 {
		t.Errorf("expected failed event, got %v", events.failed)
	}
}

func TestSubmitCreateFailureLeavesNoRecord(t *testing.T) {
	store := newStoreFake()
	store.createErr = errors.New("db down")
	uc := newUploadUseCase(store, &classifierFake{}, &fallbackFake{}, newArchiveFake(), &eventsFake{})

	_, err := uc.Submit(context.Background(), pdfUpload("paper.pdf", 256))
	if !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("expected no record")
	}
}
