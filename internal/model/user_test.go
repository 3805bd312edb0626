package model

import (
	"testing"
	"time"
)

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{"active", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"expires exactly now", RefreshToken{ExpiresAt: now}, true},
		{"expired", RefreshToken{ExpiresAt: now.Add(-time.Second)}, false},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}

	for _, tt := range tests {
		if got := tt.token.Usable(now); got != tt.want {
			t.Errorf("%s: Usable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUnconfirmedUser_ExpiresAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u := UnconfirmedUser{CreatedAt: created}
	if got := u.ExpiresAt(15 * time.Minute); !got.Equal(created.Add(15 * time.Minute)) {
		t.Errorf("ExpiresAt() = %v", got)
	}
}
