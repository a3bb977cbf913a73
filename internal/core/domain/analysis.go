package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

type AnalysisStatus string

const (
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusError      AnalysisStatus = "error"
)

type DocumentType string

const (
	TypeConference DocumentType = "Conference"
	TypeJournal    DocumentType = "Journal"
)

type Nature string

const (
	NatureImplementation Nature = "Implementation"
	NatureTheoretical    Nature = "Theoretical"
)

const (
	MaxTitleLen    = 500
	MaxEvidenceLen = 1000
	MaxKeywordLen  = 50

	DefaultOwnerID = "anonymous"
)

// AnalysisRecord is the persisted outcome of one upload-and-classify cycle.
// Status moves processing -> completed or processing -> error, exactly once;
// both end states are terminal.
type AnalysisRecord struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	OriginalFileName string         `json:"originalFileName"`
	UploadTimestamp  time.Time      `json:"uploadTimestamp"`
	DocumentType     DocumentType   `json:"documentType"`
	TypeConfidence   float64        `json:"typeConfidence"`
	Nature           Nature         `json:"nature"`
	NatureConfidence float64        `json:"natureConfidence"`
	Evidence         []string       `json:"evidence"`
	Keywords         []string       `json:"keywords"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	FileSizeBytes    int64          `json:"fileSizeBytes"`
	Status           AnalysisStatus `json:"status"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	OwnerID          string         `json:"ownerId"`
}

// ClassificationResult is what a classifier (remote or fallback) produces.
// String fields are raw wire values; MergeClassification validates them and
// substitutes safe defaults. Fallback marks a degraded-mode result.
type ClassificationResult struct {
	Title            string   `json:"title"`
	DocumentType     string   `json:"type"`
	TypeConfidence   float64  `json:"type_confidence"`
	Nature           string   `json:"nature"`
	NatureConfidence float64  `json:"nature_confidence"`
	Evidence         []string `json:"evidence"`
	Keywords         []string `json:"keywords"`
	Fallback         bool     `json:"-"`
}

// AnalysisOutcome carries the validated classification fields applied to a
// record when it transitions to completed.
type AnalysisOutcome struct {
	Title            string
	DocumentType     DocumentType
	TypeConfidence   float64
	Nature           Nature
	NatureConfidence float64
	Evidence         []string
	Keywords         []string
	ProcessingTimeMs int64
}

func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case TypeConference, TypeJournal:
		return DocumentType(s), nil
	default:
		return "", WrapError(ErrValidation, "parse document type", fmt.Errorf("unknown value %q", s))
	}
}

func ParseNature(s string) (Nature, error) {
	switch Nature(s) {
	case NatureImplementation, NatureTheoretical:
		return Nature(s), nil
	default:
		return "", WrapError(ErrValidation, "parse nature", fmt.Errorf("unknown value %q", s))
	}
}

// NewAnalysisRecord builds the initial processing-state record created at
// upload time, before any classifier has run.
func NewAnalysisRecord(id, title, fileName string, fileSizeBytes int64, now time.Time) *AnalysisRecord {
	return &AnalysisRecord{
		ID:               id,
		Title:            title,
		OriginalFileName: fileName,
		UploadTimestamp:  now,
		DocumentType:     TypeConference,
		TypeConfidence:   0,
		Nature:           NatureImplementation,
		NatureConfidence: 0,
		Evidence:         []string{},
		Keywords:         []string{},
		FileSizeBytes:    fileSizeBytes,
		Status:           StatusProcessing,
		OwnerID:          DefaultOwnerID,
	}
}

// MergeClassification combines a classifier result with the provisional title
// derived from the file name. Missing or invalid fields fall back to safe
// defaults so the pipeline always completes with a valid record.
func MergeClassification(provisionalTitle string, res ClassificationResult, elapsed time.Duration) AnalysisOutcome {
	title := strings.TrimSpace(res.Title)
	if title == "" {
		title = provisionalTitle
	}

	docType, err := ParseDocumentType(res.DocumentType)
	if err != nil {
		docType = TypeConference
	}
	nature, err := ParseNature(res.Nature)
	if err != nil {
		nature = NatureImplementation
	}

	return AnalysisOutcome{
		Title:            truncate(title, MaxTitleLen),
		DocumentType:     docType,
		TypeConfidence:   normalizeConfidence(res.TypeConfidence),
		Nature:           nature,
		NatureConfidence: normalizeConfidence(res.NatureConfidence),
		Evidence:         truncateAll(res.Evidence, MaxEvidenceLen),
		Keywords:         truncateAll(res.Keywords, MaxKeywordLen),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
}

// Complete applies a validated outcome; it is the only processing -> completed
// transition.
func (r *AnalysisRecord) Complete(outcome AnalysisOutcome) {
	r.Title = outcome.Title
	r.DocumentType = outcome.DocumentType
	r.TypeConfidence = outcome.TypeConfidence
	r.Nature = outcome.Nature
	r.NatureConfidence = outcome.NatureConfidence
	r.Evidence = outcome.Evidence
	r.Keywords = outcome.Keywords
	r.ProcessingTimeMs = outcome.ProcessingTimeMs
	r.Status = StatusCompleted
	r.ErrorMessage = ""
}

// normalizeConfidence maps absent values (<= 0) to the neutral default and
// clamps into [0, 1].
func normalizeConfidence(v float64) float64 {
	if v <= 0 {
		return 0.5
	}
	if v > 1 {
		return 1
	}
	return v
}

// TitleFromFileName derives a human-readable title from an uploaded file
// name: extension stripped, separators normalized to spaces, each word
// title-cased. "my-paper.pdf" becomes "My Paper".
func TitleFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)

	words := strings.Fields(base)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	title := strings.Join(words, " ")
	if title == "" {
		return "Untitled"
	}
	return truncate(title, MaxTitleLen)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func truncateAll(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, truncate(item, limit))
	}
	return out
}
