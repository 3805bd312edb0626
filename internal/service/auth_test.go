package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func annInput() RegisterInput {
	return RegisterInput{Email: "ann@example.com", Username: "ann", Name: "Ann Lee", Password: "correct horse"}
}

func registerAndConfirm(t *testing.T, h *authHarness, in RegisterInput) *model.User {
	t.Helper()
	ctx := context.Background()

	pending, err := h.auth.Register(ctx, in)
	require.NoError(t, err)
	user, err := h.auth.ConfirmEmail(ctx, pending.ID)
	require.NoError(t, err)
	return user
}

func TestRegisterThenConfirm_CreatesVerifiedUser(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	pending, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)
	assert.NotEmpty(t, pending.ID)
	assert.Equal(t, "ann@example.com", pending.Email)
	assert.Equal(t, "Ann Lee", pending.Name)
	assert.NotEqual(t, "correct horse", pending.PasswordHash)

	h.clock.Advance(14 * time.Minute)

	user, err := h.auth.ConfirmEmail(ctx, pending.ID)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.EmailVerified)
	require.NotNil(t, user.EmailVerifiedAt)
	assert.True(t, user.EmailVerifiedAt.Equal(h.clock.Now()))
	assert.Equal(t, "public", user.ProfileVisibility)
	assert.True(t, h.codec.VerifyPassword(user.PasswordHash, "correct horse"))

	_, err = h.store.Pending().GetByID(ctx, pending.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "pending row must be gone")

	_, err = h.auth.ConfirmEmail(ctx, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConfirmEmail_AtWindowEdgeStillWorks(t *testing.T) {
	h := newAuthHarness(t, false)

	pending, err := h.auth.Register(context.Background(), annInput())
	require.NoError(t, err)

	h.clock.Advance(15 * time.Minute)
	_, err = h.auth.ConfirmEmail(context.Background(), pending.ID)
	assert.NoError(t, err)
}

func TestConfirmEmail_ExpiredDeletesPending(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	pending, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)

	h.clock.Advance(15*time.Minute + time.Second)

	_, err = h.auth.ConfirmEmail(ctx, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrExpired)

	_, err = h.auth.ConfirmEmail(ctx, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.store.Users().FindByEmailOrUsername(ctx, "ann@example.com", "ann")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestConfirmEmail_UnknownID(t *testing.T) {
	h := newAuthHarness(t, false)

	_, err := h.auth.ConfirmEmail(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegister_ConflictsWithConfirmedUser(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"same email", RegisterInput{Email: "ann@example.com", Username: "someone", Name: "X", Password: "password1"}},
		{"same username", RegisterInput{Email: "other@example.com", Username: "ann", Name: "X", Password: "password1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Register(ctx, tt.in)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestRegister_ConflictLeavesUnrelatedPendingAlone(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	bob, err := h.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Username: "bob", Name: "Bob", Password: "password1"})
	require.NoError(t, err)

	// email matches ann, username matches bob's pending row
	_, err = h.auth.Register(ctx, RegisterInput{Email: "ann@example.com", Username: "bob", Name: "X", Password: "password1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = h.store.Pending().GetByID(ctx, bob.ID)
	assert.NoError(t, err, "a rejected registration must not delete pending rows")
}

func TestRegister_TwiceReplacesPending(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	first, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	second, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = h.auth.ConfirmEmail(ctx, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	user, err := h.auth.ConfirmEmail(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
}

func TestConfirmEmail_RollsBackOnUserConflict(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	pending, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)

	// a user with the same email appears after the pending row was created
	require.NoError(t, h.db.Create(&model.User{Email: "ann@example.com", Username: "someoneelse", Name: "X", PasswordHash: "h"}).Error)

	_, err = h.auth.ConfirmEmail(ctx, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = h.store.Pending().GetByID(ctx, pending.ID)
	assert.NoError(t, err, "pending row must survive the rolled back confirmation")
}

func TestLogin_IssuesTokenPairAndSession(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	user := registerAndConfirm(t, h, annInput())

	for _, identifier := range []string{"ann@example.com", "ann"} {
		t.Run(identifier, func(t *testing.T) {
			res, err := h.auth.Login(ctx, identifier, "correct horse")
			require.NoError(t, err)
			assert.Equal(t, user.ID, res.User.ID)

			claims, err := h.tokens.VerifyAccessToken(res.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.ID)
			assert.Equal(t, "ann", claims.Username)

			sessions, err := h.store.Sessions().FindActive(ctx, h.clock.Now())
			require.NoError(t, err)

			var matched *model.RefreshToken
			for i := range sessions {
				if h.codec.VerifyRefreshSecret(res.RefreshToken, sessions[i].TokenHash) {
					matched = &sessions[i]
				}
			}
			require.NotNil(t, matched, "refresh secret must match a stored session")
			assert.NotEqual(t, res.RefreshToken, matched.TokenHash)
			assert.Equal(t, user.ID, matched.UserID)
			assert.WithinDuration(t, h.clock.Now().Add(30*24*time.Hour), matched.ExpiresAt, time.Second)
		})
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	_, wrongPassword := h.auth.Login(ctx, "ann", "wrong password")
	_, noUser := h.auth.Login(ctx, "nobody", "correct horse")

	require.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, noUser, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), noUser.Error())
	assert.Equal(t, apperrors.GetErrorMessage(wrongPassword), apperrors.GetErrorMessage(noUser))
}

func TestLogin_PendingUserCannotLogIn(t *testing.T) {
	h := newAuthHarness(t, false)
	_, err := h.auth.Register(context.Background(), annInput())
	require.NoError(t, err)

	_, err = h.auth.Login(context.Background(), "ann", "correct horse")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefresh_RotatesOnce(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	user := registerAndConfirm(t, h, annInput())

	login, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	pair, err := h.auth.RefreshAccessToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	claims, err := h.tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)

	_, err = h.auth.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	// the new secret works exactly once as well
	_, err = h.auth.RefreshAccessToken(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	all, err := h.store.Sessions().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3, "rotated sessions are revoked in place, not deleted")
}

func TestRefresh_ExpiredSessionRejected(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	login, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	h.clock.Advance(RefreshTokenLifetime + time.Second)
	_, err = h.auth.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
}

func TestRefresh_UnknownAndEmptySecret(t *testing.T) {
	h := newAuthHarness(t, false)

	_, err := h.auth.RefreshAccessToken(context.Background(), "not-a-real-secret")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	_, err = h.auth.RefreshAccessToken(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
}

func TestRefresh_ReuseRevokesAllSessionsWhenEnabled(t *testing.T) {
	h := newAuthHarness(t, true)
	ctx := context.Background()
	user := registerAndConfirm(t, h, annInput())

	stolen, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)
	other, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	rotated, err := h.auth.RefreshAccessToken(ctx, stolen.RefreshToken)
	require.NoError(t, err)

	_, err = h.auth.RefreshAccessToken(ctx, stolen.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	for _, secret := range []string{rotated.RefreshToken, other.RefreshToken} {
		_, err = h.auth.RefreshAccessToken(ctx, secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
	}

	active, err := h.store.Sessions().FindActive(ctx, h.clock.Now())
	require.NoError(t, err)
	for _, s := range active {
		assert.NotEqual(t, user.ID, s.UserID)
	}
}

func TestRefresh_ReuseKeepsSessionsWhenDisabled(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	stolen, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)
	rotated, err := h.auth.RefreshAccessToken(ctx, stolen.RefreshToken)
	require.NoError(t, err)

	_, err = h.auth.RefreshAccessToken(ctx, stolen.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	_, err = h.auth.RefreshAccessToken(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestLogout_RevokesOnce(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	login, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	ok, err := h.auth.Logout(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.auth.Logout(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.auth.RefreshAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
}

func TestLogout_WorksOnExpiredSession(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	registerAndConfirm(t, h, annInput())

	login, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	h.clock.Advance(RefreshTokenLifetime + time.Hour)
	ok, err := h.auth.Logout(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

// barrier holds the first n callers of a gorm callback on table until all of
// them have arrived.
func barrier(n int32, table string) func(*gorm.DB) {
	var arrived int32
	release := make(chan struct{})
	return func(db *gorm.DB) {
		if db.Statement.Table != table {
			return
		}
		if atomic.AddInt32(&arrived, 1) == n {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	}
}

func TestRegister_ConcurrentSameEmailHasOneWinner(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	// Both callers pass the pre-checks before either inserts, so only the
	// unique index can separate them.
	require.NoError(t, h.db.Callback().Create().
		Before("gorm:begin_transaction").
		Register("test:register_barrier", barrier(2, "unconfirmed_users")))

	inputs := []RegisterInput{
		{Email: "race@example.com", Username: "racer_one", Name: "One", Password: "password1"},
		{Email: "race@example.com", Username: "racer_two", Name: "Two", Password: "password2"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.auth.Register(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	var count int64
	require.NoError(t, h.db.Model(&model.UnconfirmedUser{}).Where("email = ?", "race@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefresh_ConcurrentSameSecretHasOneWinner(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()
	user := registerAndConfirm(t, h, annInput())

	login, err := h.auth.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)

	// Both callers load the same active session before either revokes it.
	require.NoError(t, h.db.Callback().Query().
		After("gorm:query").
		Register("test:refresh_barrier", barrier(2, "refresh_tokens")))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.auth.RefreshAccessToken(ctx, login.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
	}
	assert.Equal(t, 1, wins)

	all, err := h.store.Sessions().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2, "only the winner may open a new session")
}
