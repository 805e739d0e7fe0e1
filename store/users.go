package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/deep3/social/models"
	"github.com/deep3/social/utils"
)

const minPasswordLen = 6

// webmailDomains cannot be used as proof of employment.
var webmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
}

// RegisterInput is what a visitor submits to create an account.
type RegisterInput struct {
	Email       string      `json:"email" binding:"required"`
	Password    string      `json:"password" binding:"required"`
	DisplayName string      `json:"display_name" binding:"required"`
	Role        models.Role `json:"role" binding:"required"`
	WorkEmail   string      `json:"work_email"`
}

// ProfileUpdate carries the profile fields a user may change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName    *string `json:"display_name"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
	BannerImage    *string `json:"banner_image"`
}

// Register creates an unverified account. Admin accounts cannot be self registered.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	workEmail := strings.ToLower(strings.TrimSpace(in.WorkEmail))

	if in.Role == models.RoleAdmin {
		return nil, &models.ValidationError{Field: "role", Reason: "cannot be self-assigned"}
	}
	if len(in.Password) < minPasswordLen {
		return nil, &models.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	if in.Role.RequiresWorkEmail() {
		if workEmail == "" {
			return nil, &models.ValidationError{Field: "work_email", Reason: "is required for teacher and educator accounts"}
		}
		if isWebmail(workEmail) {
			return nil, &models.ValidationError{Field: "work_email", Reason: "must be an institutional address"}
		}
	}

	now := s.clock()
	user := &models.User{
		Email:       email,
		DisplayName: utils.PlainText(in.DisplayName),
		WorkEmail:   workEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	user.AssignRole(in.Role)
	if err := models.Validate(user); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, &models.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
	}
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	db, cancel := s.begin(ctx)
	defer cancel()
	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, wrap("register", err)
	}
	s.log.Info("user registered", zapUser(user)...)
	return user, nil
}

func isWebmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	return webmailDomains[email[at+1:]]
}

// Authenticate checks email and password. Unknown emails and wrong passwords are indistinguishable.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	db, cancel := s.begin(ctx)
	defer cancel()

	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, wrap("authenticate", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	db, cancel := s.begin(ctx)
	defer cancel()
	user, err := loadUser(db, id)
	if err != nil {
		return nil, wrap("get user", err)
	}
	return user, nil
}

// UpdateProfile applies the non nil fields of in to the caller's own profile.
func (s *Store) UpdateProfile(ctx context.Context, sess *models.Session, in ProfileUpdate) (*models.User, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthenticated
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	var user *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = loadUser(tx, sess.UserID); err != nil {
			return err
		}
		updates := map[string]any{}
		if in.DisplayName != nil {
			user.DisplayName = utils.PlainText(*in.DisplayName)
			updates["display_name"] = user.DisplayName
		}
		if in.Bio != nil {
			user.Bio = utils.PlainText(*in.Bio)
			updates["bio"] = user.Bio
		}
		if in.ProfilePicture != nil {
			user.ProfilePicture = strings.TrimSpace(*in.ProfilePicture)
			updates["profile_picture"] = user.ProfilePicture
		}
		if in.BannerImage != nil {
			user.BannerImage = strings.TrimSpace(*in.BannerImage)
			updates["banner_image"] = user.BannerImage
		}
		if len(updates) == 0 {
			return nil
		}
		if err := models.Validate(user); err != nil {
			return err
		}
		user.UpdatedAt = s.clock()
		updates["updated_at"] = user.UpdatedAt
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, wrap("update profile", err)
	}
	return user, nil
}

// GrantAdmin promotes an existing account to admin. It is only reachable from the operator CLI.
func (s *Store) GrantAdmin(ctx context.Context, email string) (*models.User, error) {
	db, cancel := s.begin(ctx)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user", email)
			}
			return err
		}
		user.AssignRole(models.RoleAdmin)
		user.IsVerified = true
		user.UpdatedAt = s.clock()
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"role":        user.Role,
			"is_admin":    true,
			"is_verified": true,
			"updated_at":  user.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, wrap("grant admin", err)
	}
	s.log.Warn("admin granted", zapUser(&user)...)
	return &user, nil
}

// SessionFor builds a session from the current stored state of a user.
func (s *Store) SessionFor(ctx context.Context, userID, tokenID string) (*models.Session, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.NewSession(user, tokenID, s.clock()), nil
}

func loadUser(tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", id)
		}
		return nil, err
	}
	return &user, nil
}
