package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

const analysisColumns = `id, title, original_file_name, upload_timestamp, document_type, type_confidence,
nature, nature_confidence, evidence, keywords, processing_time_ms, file_size_bytes, status, error_message, owner_id`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	original_file_name TEXT NOT NULL,
	upload_timestamp TIMESTAMPTZ NOT NULL,
	document_type TEXT NOT NULL,
	type_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	nature TEXT NOT NULL,
	nature_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	evidence JSONB NOT NULL DEFAULT '[]'::jsonb,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	processing_time_ms BIGINT NOT NULL DEFAULT 0,
	file_size_bytes BIGINT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	owner_id TEXT NOT NULL DEFAULT 'anonymous'
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_upload_timestamp ON analyses(upload_timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_document_type ON analyses(document_type);
CREATE INDEX IF NOT EXISTS idx_analyses_nature ON analyses(nature);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Create(ctx context.Context, rec *domain.AnalysisRecord) error {
	evidenceJSON, keywordsJSON, err := marshalLists(rec.Evidence, rec.Keywords)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (`+analysisColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		rec.ID, rec.Title, rec.OriginalFileName, rec.UploadTimestamp, string(rec.DocumentType), rec.TypeConfidence,
		string(rec.Nature), rec.NatureConfidence, evidenceJSON, keywordsJSON, rec.ProcessingTimeMs,
		rec.FileSizeBytes, string(rec.Status), rec.ErrorMessage, rec.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE id = $1
`, id)

	rec, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get analysis", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	return rec, nil
}

func (r *AnalysisRepository) CompleteAnalysis(ctx context.Context, id string, outcome domain.AnalysisOutcome) error {
	evidenceJSON, keywordsJSON, err := marshalLists(outcome.Evidence, outcome.Keywords)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET title = $2, document_type = $3, type_confidence = $4, nature = $5, nature_confidence = $6,
    evidence = $7, keywords = $8, processing_time_ms = $9, status = $10, error_message = ''
WHERE id = $1 AND status = $11
`,
		id, outcome.Title, string(outcome.DocumentType), outcome.TypeConfidence, string(outcome.Nature),
		outcome.NatureConfidence, evidenceJSON, keywordsJSON, outcome.ProcessingTimeMs,
		string(domain.StatusCompleted), string(domain.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	return requireRowAffected(res, "complete analysis", id)
}

func (r *AnalysisRepository) MarkError(ctx context.Context, id, message string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET status = $2, error_message = $3
WHERE id = $1 AND status = $4
`, id, string(domain.StatusError), message, string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("mark analysis error: %w", err)
	}
	return requireRowAffected(res, "mark analysis error", id)
}

func (r *AnalysisRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return requireRowAffected(res, "delete analysis", id)
}

func (r *AnalysisRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM analyses WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("batch delete analyses: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("batch delete rows affected: %w", err)
	}
	return deleted, nil
}

func (r *AnalysisRepository) Query(ctx context.Context, filter domain.ListFilter, skip, limit int) ([]domain.AnalysisRecord, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	query := fmt.Sprintf(`
SELECT `+analysisColumns+`
FROM analyses%s
ORDER BY upload_timestamp DESC, id DESC
LIMIT $%d OFFSET $%d
`, where, len(args)+1, len(args)+2)
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	items := []domain.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan analysis row: %w", err)
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate analyses: %w", err)
	}
	return items, total, nil
}

func (r *AnalysisRepository) AggregateStats(ctx context.Context) (domain.Statistics, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE document_type = $2),
	COUNT(*) FILTER (WHERE document_type = $3),
	COUNT(*) FILTER (WHERE nature = $4),
	COUNT(*) FILTER (WHERE nature = $5),
	COALESCE(AVG(type_confidence), 0),
	COALESCE(AVG(nature_confidence), 0)
FROM analyses
WHERE status = $1
`,
		string(domain.StatusCompleted),
		string(domain.TypeConference), string(domain.TypeJournal),
		string(domain.NatureImplementation), string(domain.NatureTheoretical),
	)

	var stats domain.Statistics
	if err := row.Scan(
		&stats.TotalAnalyses,
		&stats.ConferenceCount, &stats.JournalCount,
		&stats.ImplementationCount, &stats.TheoreticalCount,
		&stats.AvgTypeConfidence, &stats.AvgNatureConfidence,
	); err != nil {
		return domain.Statistics{}, fmt.Errorf("aggregate analysis stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	var docType, nature, status string
	var evidenceRaw, keywordsRaw []byte

	if err := row.Scan(
		&rec.ID, &rec.Title, &rec.OriginalFileName, &rec.UploadTimestamp, &docType, &rec.TypeConfidence,
		&nature, &rec.NatureConfidence, &evidenceRaw, &keywordsRaw, &rec.ProcessingTimeMs,
		&rec.FileSizeBytes, &status, &rec.ErrorMessage, &rec.OwnerID,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(evidenceRaw, &rec.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(keywordsRaw, &rec.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	rec.DocumentType = domain.DocumentType(docType)
	rec.Nature = domain.Nature(nature)
	rec.Status = domain.AnalysisStatus(status)
	return &rec, nil
}

func marshalLists(evidence, keywords []string) ([]byte, []byte, error) {
	if evidence == nil {
		evidence = []string{}
	}
	if keywords == nil {
		keywords = []string{}
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal evidence: %w", err)
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal keywords: %w", err)
	}
	return evidenceJSON, keywordsJSON, nil
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

func buildWhere(filter domain.ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.DocumentType != "" {
		add("document_type = $%d", string(filter.DocumentType))
	}
	if filter.Nature != "" {
		add("nature = $%d", string(filter.Nature))
	}
	if filter.TitleSearch != "" {
		add("title ILIKE $%d", "%"+escapeLike(filter.TitleSearch)+"%")
	}
	if filter.From != nil {
		add("upload_timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("upload_timestamp <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
