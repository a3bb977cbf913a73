package domain

import "time"

// ListFilter narrows a listing query. Zero values mean "no constraint";
// Status is defaulted to completed by the query service so records still in
// flight (or failed) never leak into listings.
type ListFilter struct {
	Status       AnalysisStatus
	DocumentType DocumentType
	Nature       Nature
	TitleSearch  string
	From         *time.Time
	To           *time.Time
}

// Statistics aggregates all completed analyses, independent of any listing
// narrowing. Zero matching records yields zero counts and zero means.
type Statistics struct {
	TotalAnalyses       int64   `json:"totalAnalyses"`
	ConferenceCount     int64   `json:"conferenceCount"`
	JournalCount        int64   `json:"journalCount"`
	ImplementationCount int64   `json:"implementationCount"`
	TheoreticalCount    int64   `json:"theoreticalCount"`
	AvgTypeConfidence   float64 `json:"avgTypeConfidence"`
	AvgNatureConfidence float64 `json:"avgNatureConfidence"`
}

// AnalysisPage is one page of a filtered listing plus the aggregate view.
type AnalysisPage struct {
	Items    []AnalysisRecord
	Total    int64
	Page     int
	PageSize int
	Pages    int
	Stats    Statistics
}
