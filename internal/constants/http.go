package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
	HeaderRetryAfter     = "Retry-After"
)

// HTTP Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized   = "Unauthorized"
	MsgBadRequest     = "Invalid request format"
	MsgValidation     = "Validation failed"
	MsgInternalError  = "Internal server error"
	MsgTooManyRequest = "Rate limit exceeded"
)

// Auth flow messages
const (
	MsgRegistrationAccepted = "Registration successful. Please check your email to confirm your account."
	MsgAuthFailed           = "Authentication failed"
	MsgRefreshFailed        = "Token refresh failed"
	MsgLogoutFailed         = "Logout failed"
	MsgRegisterFailed       = "Registration failed"
)
