package entity

import (
	"github.com/google/uuid"

	"github.com/medinsight/medinsight/constants"
)

// Subject is the authenticated actor performing an operation. Identity is
// issued elsewhere; this core only consumes id + role.
type Subject struct {
	ID   uuid.UUID
	Role constants.Role
}

// IsOwnerOf reports whether the subject owns the given report.
func (s Subject) IsOwnerOf(r Report) bool {
	return s.ID == r.OwnerID
}
