package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurante-go/models"
	"restaurante-go/utils"
)

// AuthService handles the email-verification registration gate and the
// token-based password reset flow. Login stays in the handler; there is
// no session state beyond the JWT.
type AuthService struct {
	DB     *gorm.DB
	Mailer *utils.Mailer
}

func NewAuthService(db *gorm.DB, mailer *utils.Mailer) *AuthService {
	return &AuthService{DB: db, Mailer: mailer}
}

const (
	verificationTTL = 24 * time.Hour
	resetTokenTTL   = time.Hour

	// Transient SQLite write-lock errors are retried this many times
	// with a fixed backoff. This is the only retry policy in the system.
	writeRetries = 5
	retryBackoff = 100 * time.Millisecond
)

// Register stores a pending registration and emails a verification
// link. The account does not exist until the link is followed.
func (s *AuthService) Register(username, email, password, phone, address string, role models.Role) (*models.PendingRegistration, error) {
	if username == "" {
		return nil, Validationf("username", "is required")
	}
	if email == "" {
		return nil, Validationf("email", "is required")
	}
	if len(password) < 8 {
		return nil, Validationf("password", "must be at least 8 characters")
	}
	if role == "" {
		role = models.RoleClient
	}

	var existing models.User
	err := s.DB.Where("email = ? OR username = ?", email, username).First(&existing).Error
	if err == nil {
		return nil, Validationf("email", "already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hasher := models.User{}
	if err := hasher.HashPassword(password); err != nil {
		return nil, err
	}

	pending := models.PendingRegistration{
		Username:     username,
		Email:        email,
		PasswordHash: hasher.Password,
		Role:         role,
		Phone:        phone,
		Address:      address,
		ExpiresAt:    time.Now().Add(verificationTTL),
	}
	if err := s.DB.Create(&pending).Error; err != nil {
		return nil, err
	}

	s.Mailer.VerificationEmail(email, username, pending.ID.String())
	return &pending, nil
}

// Verify promotes a pending registration into a real user account and
// discards the pending record.
func (s *AuthService) Verify(token string) (*models.User, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return nil, Validationf("token", "malformed verification token")
	}

	var user models.User
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var pending models.PendingRegistration
		if err := tx.First(&pending, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "pending registration"}
			}
			return err
		}
		if time.Now().After(pending.ExpiresAt) {
			return InvalidStatef("verification link has expired")
		}

		var existing models.User
		err := tx.Where("email = ? OR username = ?", pending.Email, pending.Username).First(&existing).Error
		if err == nil {
			return Validationf("email", "already registered")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.User{
			Username: pending.Username,
			Email:    pending.Email,
			Password: pending.PasswordHash,
			Role:     pending.Role,
			Phone:    pending.Phone,
			Address:  pending.Address,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Delete(&pending).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset issues a reset token and emails the link. To
// avoid account probing it reports success even when the email is
// unknown.
func (s *AuthService) RequestPasswordReset(email string) error {
	var user models.User
	err := s.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := models.PasswordResetToken{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.withWriteRetry(func() error { return s.DB.Create(&token).Error }); err != nil {
		return err
	}

	s.Mailer.PasswordResetEmail(user.Email, user.Username, token.ID.String())
	return nil
}

// CheckPasswordResetToken reports whether a reset token is still usable.
// The emailed reset link lands here before the form asks for a new
// password.
func (s *AuthService) CheckPasswordResetToken(tokenString string) error {
	id, err := uuid.Parse(tokenString)
	if err != nil {
		return Validationf("token", "malformed reset token")
	}

	var token models.PasswordResetToken
	if err := s.DB.First(&token, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "reset token"}
		}
		return err
	}
	if token.UsedAt != nil {
		return InvalidStatef("reset token already used")
	}
	if time.Now().After(token.ExpiresAt) {
		return InvalidStatef("reset token has expired")
	}
	return nil
}

// ConfirmPasswordReset consumes a token and overwrites the user's
// password. The write is retried on transient lock errors.
func (s *AuthService) ConfirmPasswordReset(tokenString, newPassword string) error {
	if len(newPassword) < 8 {
		return Validationf("password", "must be at least 8 characters")
	}
	id, err := uuid.Parse(tokenString)
	if err != nil {
		return Validationf("token", "malformed reset token")
	}

	return s.withWriteRetry(func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			var token models.PasswordResetToken
			if err := tx.Preload("User").First(&token, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Entity: "reset token"}
				}
				return err
			}
			if token.UsedAt != nil {
				return InvalidStatef("reset token already used")
			}
			if time.Now().After(token.ExpiresAt) {
				return InvalidStatef("reset token has expired")
			}

			user := token.User
			if err := user.HashPassword(newPassword); err != nil {
				return err
			}
			if err := tx.Model(&user).Update("password", user.Password).Error; err != nil {
				return err
			}
			return tx.Model(&token).Update("used_at", tx.NowFunc()).Error
		})
	})
}

// withWriteRetry retries a write a few times with a fixed backoff when
// SQLite reports a transient lock. Non-transient errors return at once.
func (s *AuthService) withWriteRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		err = fn()
		if err == nil || !isTransientLock(err) {
			return err
		}
		time.Sleep(retryBackoff)
	}
	return err
}

func isTransientLock(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
