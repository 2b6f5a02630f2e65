package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/entity"
)

const reportsDDL = `
CREATE TABLE IF NOT EXISTS reports (
	id               UUID PRIMARY KEY,
	owner_id         UUID NOT NULL,
	file_name        TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	file_type        TEXT NOT NULL,
	extracted_text   TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	abnormalities    JSONB NOT NULL DEFAULT '[]',
	recommendations  JSONB NOT NULL DEFAULT '[]',
	plain_english    TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	doctor_comments  TEXT NOT NULL DEFAULT '',
	reviewed_by      UUID,
	reviewed_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_owner_created_idx ON reports (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS reports_status_idx ON reports (status);
`

const reportColumns = `id, owner_id, file_name, file_path, file_type, extracted_text,
	summary, abnormalities, recommendations, plain_english,
	status, doctor_comments, reviewed_by, reviewed_at, created_at, updated_at`

// PostgresRepository implements ReportRepository on a pgx pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{pool: pool, logger: logger}
}

// EnsureSchema creates the reports table if it does not exist.
func (p *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, reportsDDL)
	return err
}

func (p *PostgresRepository) Create(ctx context.Context, r *entity.Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	abn, err := json.Marshal(sliceOrEmpty(r.Abnormalities))
	if err != nil {
		return fmt.Errorf("marshal abnormalities: %w", err)
	}
	rec, err := json.Marshal(sliceOrEmpty(r.Recommendations))
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.OwnerID, r.FileName, r.FilePath, string(r.FileType), r.ExtractedText,
		r.Summary, abn, rec, r.PlainEnglish,
		string(r.Status), r.DoctorComments, r.ReviewedBy, r.ReviewedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (p *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Report, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Report{}, ErrNotFound
	}
	return r, err
}

func (p *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]entity.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE owner_id = $1 ORDER BY created_at DESC`
	args := []any{ownerID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (p *PostgresRepository) ListPending(ctx context.Context) ([]entity.Report, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE status = $1 ORDER BY created_at DESC`,
		string(constants.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// ApplyReview is conditional on status still being pending, so the losing
// side of a review race gets ErrAlreadyReviewed instead of a silent
// last-write-wins.
func (p *PostgresRepository) ApplyReview(ctx context.Context, id uuid.UUID, rev entity.Review) (entity.Report, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE reports
		SET status = $2, doctor_comments = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $6
		WHERE id = $1 AND status = $7
		RETURNING `+reportColumns,
		id, string(rev.Decision), rev.Comments, rev.ReviewerID, rev.ReviewedAt, time.Now().UTC(),
		string(constants.StatusPending),
	)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish missing from already-reviewed.
		if _, gerr := p.GetByID(ctx, id); gerr != nil {
			return entity.Report{}, gerr
		}
		return entity.Report{}, ErrAlreadyReviewed
	}
	return r, err
}

func (p *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (entity.Report, error) {
	var r entity.Report
	var fileType, status string
	var abn, rec []byte

	err := row.Scan(
		&r.ID, &r.OwnerID, &r.FileName, &r.FilePath, &fileType, &r.ExtractedText,
		&r.Summary, &abn, &rec, &r.PlainEnglish,
		&status, &r.DoctorComments, &r.ReviewedBy, &r.ReviewedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return entity.Report{}, err
	}
	r.FileType = constants.FileFormat(fileType)
	r.Status = constants.ReportStatus(status)
	if err := json.Unmarshal(abn, &r.Abnormalities); err != nil {
		return entity.Report{}, fmt.Errorf("decode abnormalities: %w", err)
	}
	if err := json.Unmarshal(rec, &r.Recommendations); err != nil {
		return entity.Report{}, fmt.Errorf("decode recommendations: %w", err)
	}
	return r, nil
}

func scanReports(rows pgx.Rows) ([]entity.Report, error) {
	var out []entity.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
