package dto

import "github.com/Payphone-Digital/socialhub/internal/model"

// SafeUser is what a user may see about themselves
type SafeUser struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Image    *string `json:"image"`
	Email    string  `json:"email"`
}

func NewSafeUser(u *model.User) SafeUser {
	return SafeUser{ID: u.ID, Username: u.Username, Name: u.Name, Image: u.Image, Email: u.Email}
}

type MeResponse struct {
	User SafeUser `json:"user"`
}

// PublicProfile is what anyone may see about a user
type PublicProfile struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Name       string  `json:"name"`
	Image      *string `json:"image"`
	Bio        *string `json:"bio"`
	CoverImage *string `json:"coverImage"`
}

func NewPublicProfile(u *model.User) PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Image:      u.Image,
		Bio:        u.Bio,
		CoverImage: u.CoverImage,
	}
}

type SettingsResponse struct {
	ProfileVisibility       string                        `json:"profileVisibility"`
	NotificationPreferences model.NotificationPreferences `json:"notificationPreferences"`
}

func NewSettingsResponse(u *model.User) SettingsResponse {
	return SettingsResponse{
		ProfileVisibility:       u.ProfileVisibility,
		NotificationPreferences: u.NotificationPreferences.Data(),
	}
}

// UpdateSettingsRequest is a partial update; absent fields stay unchanged
type UpdateSettingsRequest struct {
	ProfileVisibility       *string                         `json:"profileVisibility" binding:"omitempty,oneof=public followers private"`
	NotificationPreferences *NotificationPreferencesRequest `json:"notificationPreferences"`
}

type NotificationPreferencesRequest struct {
	Likes    *bool `json:"likes"`
	Comments *bool `json:"comments"`
	Follows  *bool `json:"follows"`
	Messages *bool `json:"messages"`
}

// Apply overlays the set fields onto current
func (r *NotificationPreferencesRequest) Apply(current model.NotificationPreferences) model.NotificationPreferences {
	if r == nil {
		return current
	}
	if r.Likes != nil {
		current.Likes = *r.Likes
	}
	if r.Comments != nil {
		current.Comments = *r.Comments
	}
	if r.Follows != nil {
		current.Follows = *r.Follows
	}
	if r.Messages != nil {
		current.Messages = *r.Messages
	}
	return current
}
