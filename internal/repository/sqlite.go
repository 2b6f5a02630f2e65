package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/entity"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS reports (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	file_name        TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	file_type        TEXT NOT NULL,
	extracted_text   TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	abnormalities    TEXT NOT NULL DEFAULT '[]',
	recommendations  TEXT NOT NULL DEFAULT '[]',
	plain_english    TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	doctor_comments  TEXT NOT NULL DEFAULT '',
	reviewed_by      TEXT,
	reviewed_at      TIMESTAMP,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_owner_created_idx ON reports (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS reports_status_idx ON reports (status);
`

const sqliteColumns = `id, owner_id, file_name, file_path, file_type, extracted_text,
	summary, abnormalities, recommendations, plain_english,
	status, doctor_comments, reviewed_by, reviewed_at, created_at, updated_at`

// SQLiteRepository implements ReportRepository on an embedded sqlite file
// for single-binary deployments.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialize writers; sqlite handles one at a time anyway.
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (s *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteDDL)
	return err
}

func (s *SQLiteRepository) Close() error { return s.db.Close() }

func (s *SQLiteRepository) Create(ctx context.Context, r *entity.Report) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (`+sqliteColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID.String(), r.OwnerID.String(), r.FileName, r.FilePath, string(r.FileType), r.ExtractedText,
		r.Summary, string(abn), string(rec), r.PlainEnglish,
		string(r.Status), r.DoctorComments, uuidPtrToString(r.ReviewedBy), r.ReviewedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SQLiteRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM reports WHERE id = ?`, id.String())
	r, err := scanSQLiteReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Report{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]entity.Report, error) {
	q := `SELECT ` + sqliteColumns + ` FROM reports WHERE owner_id = ? ORDER BY created_at DESC`
	args := []any{ownerID.String()}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	return scanSQLiteReports(rows)
}

func (s *SQLiteRepository) ListPending(ctx context.Context) ([]entity.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM reports WHERE status = ? ORDER BY created_at DESC`,
		string(constants.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	defer rows.Close()
	return scanSQLiteReports(rows)
}

func (s *SQLiteRepository) ApplyReview(ctx context.Context, id uuid.UUID, rev entity.Review) (entity.Report, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET status = ?, doctor_comments = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(rev.Decision), rev.Comments, rev.ReviewerID.String(), rev.ReviewedAt, time.Now().UTC(),
		id.String(), string(constants.StatusPending),
	)
	if err != nil {
		return entity.Report{}, fmt.Errorf("apply review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return entity.Report{}, err
	}
	if n == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return entity.Report{}, gerr
		}
		return entity.Report{}, ErrAlreadyReviewed
	}
	return s.GetByID(ctx, id)
}

func (s *SQLiteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSQLiteReport(row rowScanner) (entity.Report, error) {
	var r entity.Report
	var id, ownerID, fileType, status string
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	var abn, rec string

	err := row.Scan(
		&id, &ownerID, &r.FileName, &r.FilePath, &fileType, &r.ExtractedText,
		&r.Summary, &abn, &rec, &r.PlainEnglish,
		&status, &r.DoctorComments, &reviewedBy, &reviewedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return entity.Report{}, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return entity.Report{}, fmt.Errorf("decode report id: %w", err)
	}
	if r.OwnerID, err = uuid.Parse(ownerID); err != nil {
		return entity.Report{}, fmt.Errorf("decode owner id: %w", err)
	}
	r.FileType = constants.FileFormat(fileType)
	r.Status = constants.ReportStatus(status)
	if reviewedBy.Valid {
		rb, err := uuid.Parse(reviewedBy.String)
		if err != nil {
			return entity.Report{}, fmt.Errorf("decode reviewer id: %w", err)
		}
		r.ReviewedBy = &rb
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		r.ReviewedAt = &at
	}
	if err := json.Unmarshal([]byte(abn), &r.Abnormalities); err != nil {
		return entity.Report{}, fmt.Errorf("decode abnormalities: %w", err)
	}
	if err := json.Unmarshal([]byte(rec), &r.Recommendations); err != nil {
		return entity.Report{}, fmt.Errorf("decode recommendations: %w", err)
	}
	return r, nil
}

func scanSQLiteReports(rows *sql.Rows) ([]entity.Report, error) {
	var out []entity.Report
	for rows.Next() {
		r, err := scanSQLiteReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func uuidPtrToString(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	return u.String()
}
