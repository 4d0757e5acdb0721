package auth

import "fmt"

// AdminChecker validates that a user is the configured administrator.
// Privileged actions (resend trigger) are gated on this identity; a
// zero admin ID disables them entirely.
type AdminChecker struct {
	adminID int64
}

// NewAdminChecker creates an AdminChecker for the configured admin
// identity. A zero ID is allowed and means "no admin configured".
func NewAdminChecker(adminID int64) *AdminChecker {
	return &AdminChecker{adminID: adminID}
}

// Configured reports whether an admin identity is set at all.
func (ac *AdminChecker) Configured() bool {
	return ac.adminID != 0
}

// IsAdmin reports whether the user is the configured administrator.
func (ac *AdminChecker) IsAdmin(userID int64) bool {
	return ac.adminID != 0 && userID == ac.adminID
}

// String describes the checker for log prefixes.
func (ac *AdminChecker) String() string {
	if ac.adminID == 0 {
		return "AdminChecker(unconfigured)"
	}
	return fmt.Sprintf("AdminChecker(%d)", ac.adminID)
}
