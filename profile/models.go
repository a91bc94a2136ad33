package profile

import (
	"time"

	"gigflow/auth"
)

// Profile captures the subset of user data exposed via the public API layer,
// with review aggregates folded in.
type Profile struct {
	ID          string
	FullName    string
	Role        auth.Role
	Bio         *string
	Skills      []string
	Rating      float64
	ReviewCount int
	CreatedAt   time.Time
}
