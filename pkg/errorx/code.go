package errorx

type Code string

func (c Code) String() string {
	return string(c)
}

const (
	// Success codes
	CodeSuccess Code = "SUCCESS"

	// Client errors (4xx)
	CodeInvalid          Code = "INVALID"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeConflict         Code = "CONFLICT"
	CodeInvalidAuthCode  Code = "INVALID_AUTH_CODE"
	CodeTooManyRequests  Code = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeUpstreamError      Code = "UPSTREAM_SERVICE_ERROR"

	// Collaborator failures
	CodeStoreReadFailed  Code = "STORE_READ_FAILED"
	CodeStoreWriteFailed Code = "STORE_WRITE_FAILED"
	CodeNotifyFailed     Code = "NOTIFY_FAILED"
)
