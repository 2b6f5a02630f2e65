package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/entity"
)

// View is the report shape returned to callers. The raw extracted text and
// the underlying file path are privileged fields and are excluded for every
// role, owner and reviewer included.
type View struct {
	ID              uuid.UUID              `json:"id"`
	FileName        string                 `json:"fileName"`
	FileType        constants.FileFormat   `json:"fileType"`
	Summary         string                 `json:"summary"`
	Abnormalities   []string               `json:"abnormalities"`
	Recommendations []string               `json:"recommendations"`
	PlainEnglish    string                 `json:"plainEnglish"`
	Status          constants.ReportStatus `json:"status"`
	DoctorComments  string                 `json:"doctorComments"`
	ReviewedAt      *time.Time             `json:"reviewedAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// PendingView annotates a pending report with the minimal identity of its
// owner for the reviewer queue.
type PendingView struct {
	View
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
}

func toView(r entity.Report) View {
	abn := r.Abnormalities
	if abn == nil {
		abn = []string{}
	}
	rec := r.Recommendations
	if rec == nil {
		rec = []string{}
	}
	return View{
		ID:              r.ID,
		FileName:        r.FileName,
		FileType:        r.FileType,
		Summary:         r.Summary,
		Abnormalities:   abn,
		Recommendations: rec,
		PlainEnglish:    r.PlainEnglish,
		Status:          r.Status,
		DoctorComments:  r.DoctorComments,
		ReviewedAt:      r.ReviewedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toViews(rs []entity.Report) []View {
	out := make([]View, 0, len(rs))
	for _, r := range rs {
		out = append(out, toView(r))
	}
	return out
}
