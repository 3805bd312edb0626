package constants

// Application Information
const (
	AppName    = "socialhub"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Default Application Settings
const (
	DefaultPort        = "4000"
	DefaultEnvironment = EnvDevelopment
	DefaultJWTSecret   = "dev_secret_change_me"
)

// Redis Key Prefixes
const (
	KeyPrefix          = AppName + ":"
	KeyPrefixRateLimit = KeyPrefix + "ratelimit:"
)

// Rate limit buckets
const (
	RateLimitBucketAPI  = "api"
	RateLimitBucketAuth = "auth"
)

// Event subjects, relative to the configured prefix
const (
	EventUserRegistered = "auth.user.registered"
	EventUserConfirmed  = "auth.user.confirmed"
	EventUserLoggedIn   = "auth.user.logged_in"
)

// Frontend paths used by the confirmation redirect and mails
const (
	FrontendPathEmailConfirmed    = "/email-confirmed"
	FrontendPathConfirmationError = "/email-confirmation-error"
	FrontendPathLogin             = "/login"
	FrontendPathHelp              = "/help"
	ConfirmEmailPath              = "/api/auth/confirm-email"
)
