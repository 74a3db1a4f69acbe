package i18nx

// Error message keys
const (
	// Client errors
	KeyInvalid               = "invalid"
	KeyValidationFailed      = "validation_failed"
	KeyValidationFailedField = "validation_failed_field"
	KeyNotFound              = "not_found"
	KeyMethodNotAllowed      = "method_not_allowed"
	KeyConflict              = "conflict"
	KeyInvalidAuthCode       = "invalid_auth_code"
	KeyTooManyRequests       = "too_many_requests"

	// Server errors
	KeyInternalError      = "internal_error"
	KeyServiceUnavailable = "service_unavailable"

	// Collaborator failures
	KeyStoreReadFailed  = "store_read_failed"
	KeyStoreWriteFailed = "store_write_failed"
	KeyNotifyFailed     = "notify_failed"
)

// Success message keys
const (
	KeyAuthCodeSent     = "auth_code_sent"
	KeyAuthCodeVerified = "auth_code_verified"
	KeyHealthy          = "healthy"
)

// Validation message keys, matching ozzo-validation error codes plus project rules
const (
	ValidationRequired         = "validation_required"
	ValidationLengthTooLong    = "validation_length_too_long"
	ValidationLengthOutOfRange = "validation_length_out_of_range"
	ValidationMatchInvalid     = "validation_match_invalid"
	ValidationIsEmail          = "validation_is_email"
	ValidationNotBlank         = "validation_not_blank"
)

// Field names as they appear on the wire
const (
	FieldSiteID       = "siteId"
	FieldUserID       = "userId"
	FieldCompanyEmail = "companyEmail"
	FieldCompanyName  = "companyName"
	FieldUserEmail    = "userEmail"
	FieldAuthCode     = "authCode"
)
