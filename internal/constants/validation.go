package constants

import "time"

// Field Length Limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinNameLength     = 1
	MaxNameLength     = 100
	MaxEmailLength    = 255
	MaxBioLength      = 500
	MaxURLLength      = 2048
)

// Token and registration lifetimes
const (
	AccessTokenExpiry  = 15 * time.Minute
	ConfirmationWindow = 15 * time.Minute
)

// Validation Patterns
const (
	UsernamePattern = `^[A-Za-z0-9_]+$`
)

// Profile visibility values
const (
	VisibilityPublic    = "public"
	VisibilityFollowers = "followers"
	VisibilityPrivate   = "private"
)
