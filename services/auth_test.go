package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurante-go/models"
)

func TestRegisterAndVerify_CreatesAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)

	pending, err := svc.Register("maria", "maria@example.com", "secretpass", "555-0100", "Main St 1", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, pending.Role, "registration defaults to the client role")

	// No account exists until the link is followed.
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	user, err := svc.Verify(pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "maria", user.Username)
	assert.Equal(t, "555-0100", user.Phone)
	require.NoError(t, user.CheckPassword("secretpass"))

	// The pending record is consumed.
	var pendingCount int64
	require.NoError(t, db.Model(&models.PendingRegistration{}).Count(&pendingCount).Error)
	assert.EqualValues(t, 0, pendingCount)

	// The same token cannot be replayed.
	_, err = svc.Verify(pending.ID.String())
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRegister_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)
	var validation *ValidationError

	_, err := svc.Register("", "a@example.com", "secretpass", "", "", "")
	require.ErrorAs(t, err, &validation)

	_, err = svc.Register("ana", "", "secretpass", "", "", "")
	require.ErrorAs(t, err, &validation)

	_, err = svc.Register("ana", "ana@example.com", "short", "", "", "")
	require.ErrorAs(t, err, &validation)
}

func TestRegister_RejectsTakenEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)
	createClient(t, db, "carlos")

	_, err := svc.Register("carlos2", "carlos@example.com", "secretpass", "", "", "")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestVerify_RejectsExpiredOrBadTokens(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)

	_, err := svc.Verify("not-a-uuid")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = svc.Verify("2f6af33e-6f4a-4fa6-9c21-000000000000")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	pending, err := svc.Register("maria", "maria@example.com", "secretpass", "", "", "")
	require.NoError(t, err)
	require.NoError(t, db.Model(pending).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = svc.Verify(pending.ID.String())
	var invalidState *InvalidStateError
	require.ErrorAs(t, err, &invalidState)
}

func TestRequestPasswordReset_SilentOnUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)

	require.NoError(t, svc.RequestPasswordReset("nobody@example.com"))

	var count int64
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "unknown emails must not produce tokens")
}

func TestPasswordReset_FullFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)
	user := createClient(t, db, "carlos")

	require.NoError(t, svc.RequestPasswordReset(user.Email))

	var token models.PasswordResetToken
	require.NoError(t, db.First(&token, "user_id = ?", user.ID).Error)

	// The emailed link checks the token before the form submits.
	require.NoError(t, svc.CheckPasswordResetToken(token.ID.String()))

	require.NoError(t, svc.ConfirmPasswordReset(token.ID.String(), "newpassword"))

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	require.NoError(t, updated.CheckPassword("newpassword"))
	require.Error(t, updated.CheckPassword("password123"))

	// A consumed token cannot be used again, and its link goes stale.
	err := svc.ConfirmPasswordReset(token.ID.String(), "anotherpass")
	var invalidState *InvalidStateError
	require.ErrorAs(t, err, &invalidState)
	require.ErrorAs(t, svc.CheckPasswordResetToken(token.ID.String()), &invalidState)
}

func TestCheckPasswordResetToken_Rejections(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)

	var validation *ValidationError
	require.ErrorAs(t, svc.CheckPasswordResetToken("not-a-uuid"), &validation)

	var notFound *NotFoundError
	require.ErrorAs(t, svc.CheckPasswordResetToken("2f6af33e-6f4a-4fa6-9c21-000000000000"), &notFound)

	user := createClient(t, db, "carlos")
	require.NoError(t, svc.RequestPasswordReset(user.Email))
	var token models.PasswordResetToken
	require.NoError(t, db.First(&token, "user_id = ?", user.ID).Error)
	require.NoError(t, db.Model(&token).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	var invalidState *InvalidStateError
	require.ErrorAs(t, svc.CheckPasswordResetToken(token.ID.String()), &invalidState)
}

func TestConfirmPasswordReset_Rejections(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, nil)
	user := createClient(t, db, "carlos")
	var validation *ValidationError

	err := svc.ConfirmPasswordReset("not-a-uuid", "newpassword")
	require.ErrorAs(t, err, &validation)

	err = svc.ConfirmPasswordReset("2f6af33e-6f4a-4fa6-9c21-000000000000", "short")
	require.ErrorAs(t, err, &validation, "short password is rejected before the lookup")

	require.NoError(t, svc.RequestPasswordReset(user.Email))
	var token models.PasswordResetToken
	require.NoError(t, db.First(&token, "user_id = ?", user.ID).Error)
	require.NoError(t, db.Model(&token).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	err = svc.ConfirmPasswordReset(token.ID.String(), "newpassword")
	var invalidState *InvalidStateError
	require.ErrorAs(t, err, &invalidState)
}

func TestWithWriteRetry_RetriesTransientLocks(t *testing.T) {
	svc := NewAuthService(newTestDB(t), nil)

	attempts := 0
	err := svc.withWriteRetry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "the write succeeds on the third attempt")
}

func TestWithWriteRetry_NonTransientErrorsFailFast(t *testing.T) {
	svc := NewAuthService(newTestDB(t), nil)

	attempts := 0
	boom := errors.New("UNIQUE constraint failed: users.email")
	err := svc.withWriteRetry(func() error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts, "non-lock errors must not be retried")
}

func TestWithWriteRetry_GivesUpAfterFiveAttempts(t *testing.T) {
	svc := NewAuthService(newTestDB(t), nil)

	attempts := 0
	err := svc.withWriteRetry(func() error {
		attempts++
		return errors.New("database table is locked: password_reset_tokens")
	})
	require.Error(t, err)
	assert.Equal(t, 5, attempts)
}
