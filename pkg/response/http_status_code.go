package response

const (
	ErrCodeSuccess = 20000 // Success

	ErrCodeParamInvalid  = 40001 // Request body or path parameter invalid
	ErrCodeTokenRequired = 40002 // Connect without a token
	ErrCodeUnauthorized  = 40101 // Missing or wrong credentials
	ErrCodeNotFound      = 40401 // Resource not found
	ErrCodeNotConnected  = 40901 // Transport is not open
	ErrCodeRateLimited   = 42901 // Too many requests

	ErrCodeInternal       = 50001 // Unexpected failure
	ErrCodeManagerStopped = 50301 // Connection manager no longer running
)

// message
var msg = map[int]string{
	ErrCodeSuccess: "success",

	ErrCodeParamInvalid:  "invalid parameter",
	ErrCodeTokenRequired: "token is required to connect",
	ErrCodeUnauthorized:  "unauthorized",
	ErrCodeNotFound:      "not found",
	ErrCodeNotConnected:  "not connected",
	ErrCodeRateLimited:   "rate limit exceeded",

	ErrCodeInternal:       "internal error",
	ErrCodeManagerStopped: "connection manager stopped",
}

// Message returns the default text for code
func Message(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return "unknown error"
}
