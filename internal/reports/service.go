package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/ai"
	"github.com/medinsight/medinsight/internal/common"
	"github.com/medinsight/medinsight/internal/entity"
	"github.com/medinsight/medinsight/internal/extract"
	"github.com/medinsight/medinsight/internal/filestore"
	"github.com/medinsight/medinsight/internal/repository"
)

// Upload is one submitted document.
type Upload struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Service runs the document-to-insight pipeline and governs the report
// lifecycle. Each Submit call is an independent sequential pipeline; runs
// only contend at the repository.
type Service struct {
	logger    *slog.Logger
	repo      repository.ReportRepository
	users     repository.UserDirectory
	extractor extract.TextExtractor
	analyzer  ai.Analyzer
	files     filestore.FileStore
	retry     ai.RetryConfig
}

func NewService(
	logger *slog.Logger,
	repo repository.ReportRepository,
	users repository.UserDirectory,
	extractor extract.TextExtractor,
	analyzer ai.Analyzer,
	files filestore.FileStore,
	retry ai.RetryConfig,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = ai.DefaultRetryConfig
	}
	return &Service{
		logger:    logger,
		repo:      repo,
		users:     users,
		extractor: extractor,
		analyzer:  analyzer,
		files:     files,
		retry:     retry,
	}
}

// Classify maps a declared MIME type + filename onto a format category,
// gated on the size ceiling. Runs before any extraction work so oversized
// or unknown payloads fail fast.
func Classify(mimeType, fileName string, size int) (constants.FileFormat, error) {
	if size > constants.MaxUploadBytes {
		return "", common.UnsupportedFormat(
			fmt.Sprintf("file exceeds the %d MiB limit", constants.MaxUploadBytes>>20))
	}
	format := constants.MapMIMEToFormat(mimeType)
	if format == "" {
		return "", common.UnsupportedFormat(fmt.Sprintf("unsupported file type: %q", mimeType))
	}
	// text/plain covers several extensions; the extension settles pdf-named
	// text files and the like only when it maps to the same family.
	if extFormat := constants.MapExtToFormat(filepath.Ext(fileName)); extFormat != "" && extFormat != format {
		return "", common.UnsupportedFormat(
			fmt.Sprintf("file extension %q does not match declared type %q", filepath.Ext(fileName), mimeType))
	}
	return format, nil
}

// Submit runs classify -> extract -> analyze -> persist. All-or-nothing: no
// report row is ever created in a half-analyzed state.
func (s *Service) Submit(ctx context.Context, subject entity.Subject, up Upload) (View, error) {
	start := time.Now()
	format, err := Classify(up.MIMEType, up.FileName, len(up.Data))
	if err != nil {
		return View{}, err
	}

	s.logger.Info("reports.submit.start",
		"req_id", common.RequestIDFromContext(ctx),
		"owner_id", subject.ID,
		"file_name", up.FileName,
		"format", format,
		"bytes", len(up.Data),
	)

	res, err := s.extractor.Extract(ctx, up.Data, format)
	if err != nil {
		if errors.Is(err, common.ErrExtractionFailed) || errors.Is(err, common.ErrUnsupportedFormat) {
			return View{}, err
		}
		return View{}, common.ExtractionFailed("failed to extract text from file", false, err)
	}

	// Abort before spending a paid AI call on a blank document.
	text := res.Text
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("reports.submit.empty_extraction",
			"owner_id", subject.ID, "file_name", up.FileName, "format", format)
		return View{}, common.EmptyExtraction()
	}

	analysis, err := ai.WithRetry(ctx, s.retry, func(ctx context.Context) (ai.AnalysisResult, error) {
		return s.analyzer.AnalyzeReport(ctx, text)
	})
	if err != nil {
		return View{}, err
	}

	id := uuid.New()
	key := id.String()
	if ext := constants.NormalizeExt(filepath.Ext(up.FileName)); ext != "" {
		key += "." + ext
	}
	storedPath, err := s.files.Save(ctx, key, up.Data, up.MIMEType)
	if err != nil {
		s.logger.Error("reports.submit.store_file_failed", "report_id", id, "error", err)
		return View{}, common.NewAppError("FILE_STORE", "failed to store uploaded file", common.ErrInternal)
	}

	report := entity.Report{
		ID:              id,
		OwnerID:         subject.ID,
		FileName:        up.FileName,
		FilePath:        storedPath,
		FileType:        format,
		ExtractedText:   text,
		Summary:         analysis.Summary,
		Abnormalities:   analysis.Abnormalities,
		Recommendations: analysis.Recommendations,
		PlainEnglish:    analysis.PlainEnglish,
		Status:          constants.StatusPending,
	}
	if err := s.repo.Create(ctx, &report); err != nil {
		if rmErr := s.files.Remove(ctx, storedPath); rmErr != nil {
			s.logger.Warn("reports.submit.orphan_file", "path", storedPath, "error", rmErr)
		}
		s.logger.Error("reports.submit.persist_failed", "report_id", id, "error", err)
		return View{}, common.NewAppError("PERSIST", "failed to save report", common.ErrInternal)
	}

	s.logger.Info("reports.submit.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"report_id", report.ID,
		"owner_id", subject.ID,
		"format", format,
		"analysis_kind", analysis.Kind,
		"abnormalities", len(analysis.Abnormalities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return toView(report), nil
}

// ListOwn returns the subject's reports newest-first, without privileged fields.
func (s *Service) ListOwn(ctx context.Context, subject entity.Subject) ([]View, error) {
	rs, err := s.repo.ListByOwner(ctx, subject.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list own reports: %w", err)
	}
	return toViews(rs), nil
}

// Get returns full report detail for the owner or a reviewer role.
func (s *Service) Get(ctx context.Context, subject entity.Subject, id uuid.UUID) (View, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return View{}, common.NotFound("report")
		}
		return View{}, fmt.Errorf("get report: %w", err)
	}
	if !subject.IsOwnerOf(r) && !subject.Role.CanReview() {
		return View{}, common.Forbidden()
	}
	return toView(r), nil
}

// ListPending returns the reviewer queue, each entry annotated with the
// owner's name/email only.
func (s *Service) ListPending(ctx context.Context, subject entity.Subject) ([]PendingView, error) {
	if !subject.Role.CanReview() {
		return nil, common.Forbidden()
	}
	rs, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}

	out := make([]PendingView, 0, len(rs))
	for _, r := range rs {
		ident, err := s.users.GetIdentity(ctx, r.OwnerID)
		if err != nil {
			s.logger.Warn("reports.pending.identity_lookup_failed", "owner_id", r.OwnerID, "error", err)
		}
		out = append(out, PendingView{
			View:       toView(r),
			OwnerName:  ident.Name,
			OwnerEmail: ident.Email,
		})
	}
	return out, nil
}

// Review transitions a pending report to a terminal decision. Re-reviewing
// a terminal report fails with an invalid-decision error rather than
// silently overwriting the first reviewer's outcome.
func (s *Service) Review(ctx context.Context, subject entity.Subject, id uuid.UUID, decision, comments string) (View, error) {
	if !subject.Role.CanReview() {
		return View{}, common.Forbidden()
	}
	d, ok := constants.ParseDecision(decision)
	if !ok {
		return View{}, common.InvalidDecision(`status must be either "approved" or "rejected"`)
	}

	r, err := s.repo.ApplyReview(ctx, id, entity.Review{
		Decision:   d,
		Comments:   comments,
		ReviewerID: subject.ID,
		ReviewedAt: time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return View{}, common.NotFound("report")
		case errors.Is(err, repository.ErrAlreadyReviewed):
			return View{}, common.InvalidDecision("report has already been reviewed")
		default:
			return View{}, fmt.Errorf("apply review: %w", err)
		}
	}

	s.logger.Info("reports.review.ok",
		"report_id", id, "reviewer_id", subject.ID, "decision", d)
	return toView(r), nil
}

// Delete removes a report (owner or admin) and invalidates the stored file.
func (s *Service) Delete(ctx context.Context, subject entity.Subject, id uuid.UUID) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return common.NotFound("report")
		}
		return fmt.Errorf("get report: %w", err)
	}
	if !subject.IsOwnerOf(r) && subject.Role != constants.RoleAdmin {
		return common.Forbidden()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return common.NotFound("report")
		}
		return fmt.Errorf("delete report: %w", err)
	}
	// The physical delete is the file store's concern; losing it only
	// orphans bytes, never report rows.
	if err := s.files.Remove(ctx, r.FilePath); err != nil {
		s.logger.Warn("reports.delete.file_remove_failed", "report_id", id, "error", err)
	}

	s.logger.Info("reports.delete.ok", "report_id", id, "subject_id", subject.ID)
	return nil
}
