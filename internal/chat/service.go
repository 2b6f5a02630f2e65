package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/internal/ai"
	"github.com/medinsight/medinsight/internal/common"
	"github.com/medinsight/medinsight/internal/entity"
	"github.com/medinsight/medinsight/internal/repository"
)

// recentReportLimit bounds how many of the caller's reports feed the
// conversational context.
const recentReportLimit = 3

// Reply is one AI chat turn.
type Reply struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Service assembles conversational context from persisted reports and
// relays one stateless chat turn. Nothing here is persisted.
type Service struct {
	logger  *slog.Logger
	repo    repository.ReportRepository
	chatter ai.Chatter
}

func NewService(logger *slog.Logger, repo repository.ReportRepository, chatter ai.Chatter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, chatter: chatter}
}

// Chat answers one message. If reportID is non-nil, that report's analysis
// is included only when the caller owns it; a non-owned id degrades to
// empty context rather than an authorization error, since chat is
// best-effort. Otherwise the caller's most recent reports are used.
func (s *Service) Chat(ctx context.Context, subject entity.Subject, message string, reportID *uuid.UUID) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, common.NewAppError("INVALID_INPUT", "message is required", common.ErrInvalidInput)
	}

	reportContext, err := s.buildContext(ctx, subject, reportID)
	if err != nil {
		return Reply{}, err
	}

	s.logger.Info("chat.turn.start",
		"req_id", common.RequestIDFromContext(ctx),
		"subject_id", subject.ID,
		"has_report_id", reportID != nil,
		"context_len", len(reportContext),
	)

	answer, err := s.chatter.Chat(ctx, message, reportContext)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Message: answer, Timestamp: time.Now().UTC()}, nil
}

func (s *Service) buildContext(ctx context.Context, subject entity.Subject, reportID *uuid.UUID) (string, error) {
	if reportID != nil {
		r, err := s.repo.GetByID(ctx, *reportID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", nil
			}
			return "", fmt.Errorf("load report for chat: %w", err)
		}
		if !subject.IsOwnerOf(r) {
			return "", nil
		}
		return fmt.Sprintf("Report Summary: %s\nAbnormalities: %s\nRecommendations: %s",
			r.Summary,
			strings.Join(r.Abnormalities, ", "),
			strings.Join(r.Recommendations, ", ")), nil
	}

	recent, err := s.repo.ListByOwner(ctx, subject.ID, recentReportLimit)
	if err != nil {
		return "", fmt.Errorf("load recent reports for chat: %w", err)
	}
	parts := make([]string, 0, len(recent))
	for _, r := range recent {
		parts = append(parts, fmt.Sprintf("Report: %s\nAbnormalities: %s",
			r.Summary, strings.Join(r.Abnormalities, ", ")))
	}
	return strings.Join(parts, "\n\n"), nil
}
