package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationPreferences toggles which activity notifications a user receives
type NotificationPreferences struct {
	Likes    bool `json:"likes"`
	Comments bool `json:"comments"`
	Follows  bool `json:"follows"`
	Messages bool `json:"messages"`
}

// DefaultNotificationPreferences enables every notification kind
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Likes: true, Comments: true, Follows: true, Messages: true}
}

// User is a confirmed account. Rows are only created by email confirmation.
type User struct {
	ID                      uint                                        `gorm:"primaryKey" json:"id"`
	Email                   string                                      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username                string                                      `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Name                    string                                      `gorm:"size:100;not null" json:"name"`
	PasswordHash            string                                      `gorm:"size:255;not null" json:"-"`
	Bio                     *string                                     `gorm:"size:500" json:"bio,omitempty"`
	Image                   *string                                     `gorm:"size:2048" json:"image,omitempty"`
	CoverImage              *string                                     `gorm:"size:2048" json:"coverImage,omitempty"`
	EmailVerified           bool                                        `gorm:"not null" json:"emailVerified"`
	EmailVerifiedAt         *time.Time                                  `json:"emailVerifiedAt,omitempty"`
	ProfileVisibility       string                                      `gorm:"size:16;not null;default:public" json:"profileVisibility"`
	NotificationPreferences datatypes.JSONType[NotificationPreferences] `json:"notificationPreferences"`
	CreatedAt               time.Time                                   `json:"createdAt"`
	UpdatedAt               time.Time                                   `json:"updatedAt"`
}

// UnconfirmedUser is a pending registration waiting for its email link to be
// followed. The ID is a random UUID because it travels in the link.
type UnconfirmedUser struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username     string    `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null;index" json:"createdAt"`
}

// ExpiresAt reports when the confirmation link stops working
func (u *UnconfirmedUser) ExpiresAt(window time.Duration) time.Time {
	return u.CreatedAt.Add(window)
}

// RefreshToken is one refresh session. Only the hash of the secret is kept.
// Consumed tokens are revoked in place; rows go only with their user.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;index"`
	User      User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string     `gorm:"size:255;not null"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// Usable reports whether the session can still be exchanged at now
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && !t.ExpiresAt.Before(now)
}
