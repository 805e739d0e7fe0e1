package models

import "time"

// Session is the authenticated caller passed explicitly into every store call.
type Session struct {
	UserID      string
	Role        Role
	IsAdmin     bool
	IsVerified  bool
	IsSuspended bool
	TokenID     string
	IssuedAt    time.Time
}

// NewSession builds a session from a freshly loaded user.
func NewSession(u *User, tokenID string, issuedAt time.Time) *Session {
	return &Session{
		UserID:      u.ID,
		Role:        u.Role,
		IsAdmin:     u.IsAdmin,
		IsVerified:  u.IsVerified,
		IsSuspended: u.IsSuspended,
		TokenID:     tokenID,
		IssuedAt:    issuedAt,
	}
}
