package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPendingJanitor_Sweep(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	stale, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)

	h.clock.Advance(20 * time.Hour)
	fresh, err := h.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Username: "bob", Name: "Bob", Password: "password1"})
	require.NoError(t, err)

	h.clock.Advance(5 * time.Hour)
	j := NewPendingJanitor(h.store.Pending(), 24*time.Hour, time.Minute, h.clock.Now)

	n, err := j.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = h.store.Pending().GetByID(ctx, stale.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	_, err = h.store.Pending().GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestPendingJanitor_StaleLinkStillExpired(t *testing.T) {
	h := newAuthHarness(t, false)
	ctx := context.Background()

	pending, err := h.auth.Register(ctx, annInput())
	require.NoError(t, err)

	h.clock.Advance(16 * time.Minute)
	j := NewPendingJanitor(h.store.Pending(), 24*time.Hour, time.Minute, h.clock.Now)
	n, err := j.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = h.auth.ConfirmEmail(ctx, pending.ID)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestPendingJanitor_RunStopsOnCancel(t *testing.T) {
	h := newAuthHarness(t, false)
	require.NoError(t, h.store.Pending().Create(context.Background(), &model.UnconfirmedUser{
		ID: "old", Email: "old@example.com", Username: "old", Name: "Old", PasswordHash: "h",
		CreatedAt: h.clock.Now().Add(-48 * time.Hour),
	}))

	j := NewPendingJanitor(h.store.Pending(), 24*time.Hour, time.Hour, h.clock.Now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := h.store.Pending().GetByID(context.Background(), "old")
		return errors.Is(err, gorm.ErrRecordNotFound)
	}, 5*time.Second, 10*time.Millisecond, "first sweep runs immediately")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
