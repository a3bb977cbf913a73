package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

type uploadsFake struct {
	lastUpload domain.Upload
	record     *domain.AnalysisRecord
	err        error
}

func (f *uploadsFake) Submit(_ context.Context, upload domain.Upload) (*domain.AnalysisRecord, error) {
	f.lastUpload = upload
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type queriesFake struct {
	lastFilter domain.ListFilter
	lastPage   int
	lastLimit  int
	page       *domain.AnalysisPage
	err        error
}

func (f *queriesFake) List(_ context.Context, filter domain.ListFilter, page, pageSize int) (*domain.AnalysisPage, error) {
	f.lastFilter = filter
	f.lastPage = page
	f.lastLimit = pageSize
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type adminFake struct {
	records      map[string]*domain.AnalysisRecord
	deletedBatch []string
	batchCount   int64
}

func (f *adminFake) GetByID(_ context.Context, id string) (*domain.AnalysisRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get analysis", errNoRecord)
	}
	return rec, nil
}

func (f *adminFake) Delete(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete analysis", errNoRecord)
	}
	delete(f.records, id)
	return nil
}

func (f *adminFake) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	f.deletedBatch = ids
	return f.batchCount, nil
}

type reportsFake struct {
	artifact *domain.ReportArtifact
	err      error
}

func (f *reportsFake) Render(_ context.Context, _ string) (*domain.ReportArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.artifact, nil
}

var errNoRecord = errors.New("no record with that id")

func completedRecord(id string) *domain.AnalysisRecord {
	return &domain.AnalysisRecord{
		ID:               id,
		Title:            "My Paper",
		OriginalFileName: "my-paper.pdf",
		UploadTimestamp:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DocumentType:     domain.TypeConference,
		TypeConfidence:   0.9,
		Nature:           domain.NatureImplementation,
		NatureConfidence: 0.85,
		Evidence:         []string{"We implemented it."},
		Keywords:         []string{"ml"},
		ProcessingTimeMs: 42,
		FileSizeBytes:    1024,
		Status:           domain.StatusCompleted,
		OwnerID:          domain.DefaultOwnerID,
	}
}

type routerFixture struct {
	uploads *uploadsFake
	queries *queriesFake
	admin   *adminFake
	reports *reportsFake
	handler http.Handler
}

func newRouterFixture(options RouterOptions) *routerFixture {
	uploads := &uploadsFake{record: completedRecord(uuid.NewString())}
	queries := &queriesFake{page: &domain.AnalysisPage{
		Items:    []domain.AnalysisRecord{*completedRecord(uuid.NewString())},
		Total:    1,
		Page:     1,
		PageSize: 10,
		Pages:    1,
	}}
	admin := &adminFake{records: map[string]*domain.AnalysisRecord{}}
	reports := &reportsFake{artifact: &domain.ReportArtifact{
		FileName:    "My_Paper_report.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("workbook-bytes"),
	}}
	router := NewRouter(uploads, queries, admin, admin, reports, options)
	return &routerFixture{
		uploads: uploads,
		queries: queries,
		admin:   admin,
		reports: reports,
		handler: router.Handler(),
	}
}

func multipartBody(t *testing.T, field, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadReturnsCompletedRecord(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	body, contentType := multipartBody(t, "file", "my-paper.pdf", []byte("%PDF-1.4 data"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	payload := decodeBody(t, res)
	if payload["success"] != true {
		t.Errorf("expected success=true, got %v", payload["success"])
	}
	if payload["message"] != "PDF analyzed successfully" {
		t.Errorf("unexpected message %v", payload["message"])
	}
	if fixture.uploads.lastUpload.FileName != "my-paper.pdf" {
		t.Errorf("file name not forwarded: %q", fixture.uploads.lastUpload.FileName)
	}
	if fixture.uploads.lastUpload.SizeBytes != int64(len("%PDF-1.4 data")) {
		t.Errorf("size not derived from payload: %d", fixture.uploads.lastUpload.SizeBytes)
	}
}

func TestUploadAcceptsLegacyFieldName(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	body, contentType := multipartBody(t, "pdf", "legacy.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if fixture.uploads.lastUpload.FileName != "legacy.pdf" {
		t.Errorf("legacy field not read: %q", fixture.uploads.lastUpload.FileName)
	}
}

func TestUploadWithoutFileIsRejected(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "application/json")

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["error"] != "No PDF file uploaded" {
		t.Errorf("unexpected error label %v", payload["error"])
	}
}

func TestUploadValidationErrorMapsTo400(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	fixture.uploads.err = domain.WrapError(domain.ErrValidation, "submit upload", errors.New("unsupported file type"))

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadPersistenceFailureMapsTo500WithoutDetails(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	fixture.uploads.err = domain.WrapError(domain.ErrPersistence, "submit upload", errors.New("connection reset"))

	body, contentType := multipartBody(t, "file", "my-paper.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	payload := decodeBody(t, res)
	if payload["message"] != "internal error, see server logs" {
		t.Errorf("diagnostics leaked: %v", payload["message"])
	}
}

func TestUploadRateLimitKicksIn(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{UploadRate: 0.001, UploadBurst: 1})

	send := func() int {
		body, contentType := multipartBody(t, "file", "a.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "10.1.2.3:5555"
		res := httptest.NewRecorder()
		fixture.handler.ServeHTTP(res, req)
		return res.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first upload should pass, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second upload should be throttled, got %d", code)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	fixture := newRouterFixture(RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "fixed-id")

	res := httptest.NewRecorder()
	fixture.handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "fixed-id" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
