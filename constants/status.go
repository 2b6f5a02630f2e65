package constants

// ReportStatus is the canonical review status for a persisted report.
type ReportStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending  ReportStatus = "pending"  // initial; awaiting doctor review
	StatusApproved ReportStatus = "approved" // terminal
	StatusRejected ReportStatus = "rejected" // terminal
)

// IsTerminal reports whether a status has no outgoing transitions.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseDecision validates a review decision value. Only the two terminal
// statuses are legal decisions; "pending" has no incoming transition.
func ParseDecision(v string) (ReportStatus, bool) {
	switch ReportStatus(v) {
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}
