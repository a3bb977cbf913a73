package domain

// Upload is the incoming file as received at the boundary. Data is fully
// buffered; the orchestrator enforces the size limit before any record is
// created.
type Upload struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Data      []byte
}

// ReportArtifact is a rendered, downloadable report for one analysis.
type ReportArtifact struct {
	FileName    string
	ContentType string
	Data        []byte
}
