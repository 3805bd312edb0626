package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/repository"
	"github.com/Payphone-Digital/socialhub/pkg/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

var testArgon2 = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type authHarness struct {
	db     *gorm.DB
	store  *repository.Store
	codec  *CredentialCodec
	tokens *TokenIssuer
	clock  *testClock
	auth   *AuthService
}

func newAuthHarness(t *testing.T, revokeOnReuse bool) *authHarness {
	t.Helper()

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "auth.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })
	require.NoError(t, database.AutoMigrate(db))

	clock := newTestClock()
	store := repository.NewStore(db)
	codec := NewCredentialCodec(testArgon2, bcrypt.MinCost)
	tokens := NewTokenIssuer(testJWTSecret, 15*time.Minute, "socialhub").WithClock(clock.Now)

	return &authHarness{
		db:     db,
		store:  store,
		codec:  codec,
		tokens: tokens,
		clock:  clock,
		auth: NewAuthService(store, codec, tokens, AuthConfig{
			ConfirmationWindow: 15 * time.Minute,
			RevokeOnReuse:      revokeOnReuse,
			Now:                clock.Now,
		}),
	}
}
