package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the community role a user registers with.
type Role string

const (
	RoleTeacher  Role = "teacher"
	RoleParent   Role = "parent"
	RoleEducator Role = "educator"
	RoleAdmin    Role = "admin"
)

// RequiresWorkEmail reports whether accounts of this role must supply a work email.
func (r Role) RequiresWorkEmail() bool {
	return r == RoleTeacher || r == RoleEducator
}

// UserStats holds the denormalized profile counters.
type UserStats struct {
	Posts     int64 `gorm:"not null;default:0" json:"posts" validate:"gte=0"`
	Following int64 `gorm:"not null;default:0" json:"following" validate:"gte=0"`
	Followers int64 `gorm:"not null;default:0" json:"followers" validate:"gte=0"`
}

// User represents a community member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Email           string    `gorm:"size:255;uniqueIndex;not null" json:"email" validate:"required,email,max=255"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	DisplayName     string    `gorm:"size:128;not null" json:"display_name" validate:"required,max=128"`
	Role            Role      `gorm:"size:16;not null;index" json:"role" validate:"required,oneof=teacher parent educator admin"`
	IsAdmin         bool      `gorm:"not null;default:false" json:"is_admin"`
	IsVerified      bool      `gorm:"not null;default:false;index" json:"is_verified"`
	IsSuspended     bool      `gorm:"not null;default:false" json:"is_suspended"`
	SuspendedReason string    `gorm:"size:512" json:"suspended_reason,omitempty"`
	ProfilePicture  string    `gorm:"size:1024" json:"profile_picture,omitempty" validate:"omitempty,uri,max=1024"`
	BannerImage     string    `gorm:"size:1024" json:"banner_image,omitempty" validate:"omitempty,uri,max=1024"`
	Bio             string    `gorm:"type:text" json:"bio,omitempty" validate:"max=500"`
	WorkEmail       string    `gorm:"size:255" json:"work_email,omitempty" validate:"omitempty,email,max=255"`
	Stats           UserStats `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Trusted reports whether the account may be shown as a trusted voice.
// Parents never go through verification.
func (u *User) Trusted() bool {
	return u.Role == RoleParent || u.IsAdmin || u.IsVerified
}

// NeedsVerification reports whether an admin still has to verify the account.
func (u *User) NeedsVerification() bool {
	return !u.Trusted()
}

// AssignRole sets the role and derives IsAdmin from it. This is the only place IsAdmin is computed.
func (u *User) AssignRole(role Role) {
	u.Role = role
	u.IsAdmin = role == RoleAdmin
}

// BeforeCreate assigns an id and normalizes the email.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	return nil
}
