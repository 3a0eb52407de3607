package domain

import (
	"strings"
	"time"
)

// User status constants.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a registered account and the credential/session principal.
// Secret material (password hash, token hashes) is never serialized outward.
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	PasswordHash  string `json:"-"`
	Role          Role   `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`

	// Password reset token state; present only while a reset is outstanding.
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`

	// Email verification token state.
	EmailVerificationTokenHash string     `json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ClearPasswordResetToken removes any outstanding reset token state.
func (u *User) ClearPasswordResetToken() {
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpiresAt = nil
}

// ClearEmailVerificationToken removes any outstanding verification token state.
func (u *User) ClearEmailVerificationToken() {
	u.EmailVerificationTokenHash = ""
	u.EmailVerificationExpiresAt = nil
}

// NormalizeEmail lowercases and trims an email address so lookups and the
// storage uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidStatuses returns the set of valid account statuses.
func ValidStatuses() []string {
	return []string{StatusActive, StatusInactive}
}

// IsValidStatus checks whether the given status string is a valid account status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Principal is the authenticated identity attached to a request: a
// denormalized snapshot of the user taken at login or session refresh.
// It goes stale if the user record changes until the next refresh.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// PrincipalFromUser builds the session snapshot for the given user.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
