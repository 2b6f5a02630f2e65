package constants

// Role of an authenticated subject. Identity issuance lives outside this
// service; roles arrive on the subject and are only checked here.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// CanReview reports whether the role may drive review transitions and see
// the pending queue.
func (r Role) CanReview() bool {
	return r == RoleDoctor || r == RoleAdmin
}
