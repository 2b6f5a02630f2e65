package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
)

// Report is the persisted record of one uploaded document plus its
// AI-derived analysis and review state.
//
// FileName, FileType, FilePath and ExtractedText are immutable after
// creation. The AI fields are written once at creation and never mutated.
// Review fields change only through the review transition.
type Report struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	FileName      string
	FilePath      string
	FileType      constants.FileFormat
	ExtractedText string

	Summary         string
	Abnormalities   []string
	Recommendations []string
	PlainEnglish    string

	Status         constants.ReportStatus
	DoctorComments string
	ReviewedBy     *uuid.UUID
	ReviewedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review captures one review transition.
type Review struct {
	Decision   constants.ReportStatus
	Comments   string
	ReviewerID uuid.UUID
	ReviewedAt time.Time
}

// OwnerIdentity is the minimal identity attached to pending listings.
// Never carries credential fields.
type OwnerIdentity struct {
	Name  string
	Email string
}
