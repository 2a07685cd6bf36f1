package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization flow errors
	ErrAuthorizationDenied  = fmt.Errorf("authorization denied by user")
	ErrStateMismatch        = fmt.Errorf("authorization state mismatch")
	ErrAuthorizationTimeout = fmt.Errorf("authorization timed out")
	ErrAuthenticationFailed = fmt.Errorf("authentication failed")
	ErrSessionExpired       = fmt.Errorf("session expired")
	ErrInsufficientScope    = fmt.Errorf("insufficient authorization scope")
	ErrNoRefreshToken       = fmt.Errorf("no refresh token available")

	// Transport and API errors
	ErrTransport  = fmt.Errorf("transport failure")
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
