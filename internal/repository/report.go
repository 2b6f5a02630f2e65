package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/internal/entity"
)

// Repository-level conditions the service maps onto its error taxonomy.
var (
	ErrNotFound = errors.New("report not found")
	// ErrAlreadyReviewed signals a conditional review update that found the
	// report outside the pending state. Two racing reviewers cannot both win.
	ErrAlreadyReviewed = errors.New("report already reviewed")
)

// ReportRepository persists Report rows. Writes are serialized per document
// by the backing engine; ApplyReview must be conditional on the report
// still being pending.
type ReportRepository interface {
	Create(ctx context.Context, r *entity.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (entity.Report, error)
	// ListByOwner returns the owner's reports ordered newest-first.
	// limit <= 0 means no limit.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]entity.Report, error)
	// ListPending returns all pending reports ordered newest-first.
	ListPending(ctx context.Context) ([]entity.Report, error)
	// ApplyReview atomically transitions a pending report to the decision in
	// rev. Returns ErrNotFound if the id does not resolve and
	// ErrAlreadyReviewed if the report left the pending state first.
	ApplyReview(ctx context.Context, id uuid.UUID, rev entity.Review) (entity.Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserDirectory resolves owner identities for reviewer listings. Identity
// management lives outside this service; only name/email are consumed.
type UserDirectory interface {
	GetIdentity(ctx context.Context, userID uuid.UUID) (entity.OwnerIdentity, error)
}
