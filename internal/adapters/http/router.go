// Package httpadapter exposes the analysis pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
	"github.com/intelliinsight/paper-analysis/internal/core/ports"
	"github.com/intelliinsight/paper-analysis/internal/observability/metrics"
)

// multipart bookkeeping on top of the document size limit
const uploadBodySlack = 1 << 20

type Router struct {
	uploads ports.UploadOrchestrator
	queries ports.AnalysisQueryService
	reader  ports.AnalysisReader
	deleter ports.AnalysisDeleter
	reports ports.ReportService

	service        string
	maxUploadBytes int64
	metrics        *metrics.ServerMetrics
	uploadLimiter  *clientRateLimiter
}

type RouterOptions struct {
	Service        string
	MaxUploadBytes int64
	Metrics        *metrics.ServerMetrics
	UploadRate     float64
	UploadBurst    int
}

func NewRouter(
	uploads ports.UploadOrchestrator,
	queries ports.AnalysisQueryService,
	reader ports.AnalysisReader,
	deleter ports.AnalysisDeleter,
	reports ports.ReportService,
	options RouterOptions,
) *Router {
	maxUploadBytes := options.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	var limiter *clientRateLimiter
	if options.UploadRate > 0 {
		limiter = newClientRateLimiter(options.UploadRate, options.UploadBurst)
	}
	return &Router{
		uploads:        uploads,
		queries:        queries,
		reader:         reader,
		deleter:        deleter,
		reports:        reports,
		service:        options.Service,
		maxUploadBytes: maxUploadBytes,
		metrics:        options.Metrics,
		uploadLimiter:  limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/upload", rateLimitMiddleware(rt.uploadLimiter, http.HandlerFunc(rt.upload)))
	mux.HandleFunc("/analysis", rt.listAnalyses)
	mux.HandleFunc("/analysis/batch-delete", rt.batchDelete)
	mux.HandleFunc("/analysis/", rt.analysisByID)
	mux.HandleFunc("/report/", rt.reportByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes+uploadBodySlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		// older clients send the document under "pdf"
		file, header, err = r.FormFile("pdf")
	}
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, http.StatusBadRequest, "No PDF file uploaded", "Please select a PDF file to upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, http.StatusBadRequest, "No PDF file uploaded", "uploaded file could not be read")
		return
	}

	rec, err := rt.uploads.Submit(r.Context(), domain.Upload{
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		SizeBytes: int64(len(data)),
		Data:      data,
	})
	if err != nil {
		rt.recordUpload("failed", time.Since(start))
		writeDomainError(w, "Analysis failed", err)
		return
	}

	rt.recordUpload("completed", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "PDF analyzed successfully",
		"data":    rec,
	})
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	filter, page, limit, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	result, err := rt.queries.List(r.Context(), filter, page, limit)
	if err != nil {
		writeDomainError(w, "Failed to fetch analyses", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    result.Items,
		"pagination": map[string]any{
			"page":  result.Page,
			"limit": result.PageSize,
			"total": result.Total,
			"pages": result.Pages,
		},
		"statistics": result.Stats,
	})
}

func (rt *Router) analysisByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r.URL.Path, "/analysis/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, "Analysis not found", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    rec,
		})
	case http.MethodDelete:
		if err := rt.deleter.Delete(r.Context(), id); err != nil {
			writeDomainError(w, "Analysis not found", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Analysis deleted successfully",
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (rt *Router) batchDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "request body must be JSON with an ids array")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", "ids must contain at least one analysis id")
		return
	}
	for _, id := range req.IDs {
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", fmt.Sprintf("%q is not a valid analysis id", id))
			return
		}
	}

	deleted, err := rt.deleter.DeleteBatch(r.Context(), req.IDs)
	if err != nil {
		writeDomainError(w, "Failed to delete analyses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("%d analyses deleted successfully", deleted),
		"deletedCount": deleted,
	})
}

func (rt *Router) reportByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r.URL.Path, "/report/")
	if !ok {
		return
	}

	artifact, err := rt.reports.Render(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Report unavailable", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReportRendered()
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

// pathID extracts and validates the trailing id segment. A malformed id is a
// validation failure, not a missing record.
func pathID(w http.ResponseWriter, path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found", "unknown route")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", "analysis id must be a valid UUID")
		return "", false
	}
	return id, true
}

func parseListQuery(r *http.Request) (domain.ListFilter, int, int, error) {
	q := r.URL.Query()
	page := positiveIntParam(q.Get("page"), 1)
	limit := positiveIntParam(q.Get("limit"), 0)

	var filter domain.ListFilter
	if raw := q.Get("type"); raw != "" {
		docType, err := domain.ParseDocumentType(raw)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("type must be Conference or Journal")
		}
		filter.DocumentType = docType
	}
	if raw := q.Get("nature"); raw != "" {
		nature, err := domain.ParseNature(raw)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("nature must be Implementation or Theoretical")
		}
		filter.Nature = nature
	}
	filter.TitleSearch = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("dateFrom"); raw != "" {
		from, err := parseDateParam(raw)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("dateFrom must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		filter.From = &from
	}
	if raw := q.Get("dateTo"); raw != "" {
		to, err := parseDateParam(raw)
		if err != nil {
			return filter, 0, 0, fmt.Errorf("dateTo must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		filter.To = &to
	}
	return filter, page, limit, nil
}

func positiveIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("unrecognized date format")
}

func (rt *Router) recordUpload(outcome string, elapsed time.Duration) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.service, outcome, elapsed)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, map[string]string{
		"error":   label,
		"message": message,
	})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "method not allowed for this route")
}
