package routes

import (
	"errors"
	"net/http"

	jwt "outpass-control/internal/jwt"
	"outpass-control/internal/outpass"
)

// HTTPError represents an error with an associated HTTP status code and user message
type HTTPError struct {
	Err        error    // The underlying error
	StatusCode int      // HTTP status code
	Message    string   // User-friendly message
	StopCodes  []string // Optional stop codes for client-side handling
	Internal   bool     // Whether this is an internal error (hide details from user)
}

// ErrorInfo contains error metadata for user-facing errors
type ErrorInfo struct {
	Message   string   // User-friendly message
	StopCodes []string // Optional stop codes for client-side application
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
		Internal:   statusCode >= 500,
	}
}

// Routes-specific errors (that don't conflict with other packages)
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")

	// Authorization errors
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// Gate station errors
	ErrStationIDRequired      = errors.New("station_id is required")
	ErrStationPendingApproval = errors.New("station pending approval")
	ErrStationRejected        = errors.New("station rejected")
	ErrStationNotFound        = errors.New("station not found")
	ErrStationIDInvalid       = errors.New("station id verification failed")
	ErrClientIPMismatch       = errors.New("client IP mismatch")

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")

	// Internal errors
	ErrInternalServer     = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Storage provider errors
	ErrStorageProviderNotFound = errors.New("storage provider not found")
)

// errorStatusMap maps errors to HTTP status codes
var errorStatusMap = map[error]int{
	// 400 Bad Request
	ErrInvalidRequest:     http.StatusBadRequest,
	ErrMissingParameter:   http.StatusBadRequest,
	ErrStationIDRequired:  http.StatusBadRequest,
	outpass.ErrValidation: http.StatusBadRequest,

	// 401 Unauthorized
	ErrUnauthorized:       http.StatusUnauthorized,
	jwt.ErrNonValidToken:  http.StatusUnauthorized,
	ErrInvalidCredentials: http.StatusUnauthorized,

	// 403 Forbidden
	ErrInsufficientPermissions: http.StatusForbidden,
	ErrAccountDisabled:         http.StatusForbidden,
	ErrStationRejected:         http.StatusForbidden,
	ErrStationIDInvalid:        http.StatusForbidden,
	ErrClientIPMismatch:        http.StatusForbidden,
	outpass.ErrForbidden:       http.StatusForbidden,

	// 404 Not Found
	ErrStationNotFound:  http.StatusNotFound,
	outpass.ErrNotFound: http.StatusNotFound,

	// 409 Conflict
	outpass.ErrInvalidState: http.StatusConflict,

	// 202 Accepted (for pending operations)
	ErrStationPendingApproval: http.StatusAccepted,

	// 500 Internal Server Error
	ErrInternalServer:          http.StatusInternalServerError,
	ErrStorageProviderNotFound: http.StatusInternalServerError,
	outpass.ErrFatal:           http.StatusInternalServerError,

	// 503 Service Unavailable
	ErrServiceUnavailable:  http.StatusServiceUnavailable,
	outpass.ErrUnavailable: http.StatusServiceUnavailable,
}

// errorInfoMap maps errors to user-friendly messages and optional stop codes
var errorInfoMap = map[error]ErrorInfo{
	// Authentication
	ErrUnauthorized: {
		Message:   "Authentication required",
		StopCodes: []string{"AUTH_REQUIRED"},
	},
	jwt.ErrNonValidToken: {
		Message:   "Invalid or expired authentication token",
		StopCodes: []string{"AUTH_INVALID_TOKEN"},
	},
	ErrInvalidCredentials: {
		Message:   "Invalid credentials provided",
		StopCodes: []string{"AUTH_INVALID_CREDENTIALS"},
	},
	ErrAccountDisabled: {
		Message:   "Account has been disabled",
		StopCodes: []string{"ACCOUNT_DISABLED"},
	},

	// Authorization
	ErrInsufficientPermissions: {
		Message:   "You don't have permission to perform this action",
		StopCodes: []string{"INSUFFICIENT_PERMISSIONS"},
	},
	outpass.ErrForbidden: {
		Message:   "Access denied",
		StopCodes: []string{"FORBIDDEN"},
	},

	// Outpass lifecycle
	outpass.ErrValidation: {
		Message:   "Request validation failed",
		StopCodes: []string{"VALIDATION_FAILED"},
	},
	outpass.ErrInvalidState: {
		Message:   "The request is no longer in a state where this action is possible",
		StopCodes: []string{"INVALID_STATE"},
	},
	outpass.ErrNotFound: {
		Message:   "Record not found",
		StopCodes: []string{"NOT_FOUND"},
	},
	outpass.ErrUnavailable: {
		Message:   "Service is temporarily unavailable, try again",
		StopCodes: []string{"UNAVAILABLE"},
	},
	outpass.ErrFatal: {
		Message: "An internal error occurred",
	},

	// Gate stations
	ErrStationIDRequired: {
		Message:   "Station ID is required",
		StopCodes: []string{"STATION_ID_REQUIRED"},
	},
	ErrStationPendingApproval: {
		Message:   "Station is pending approval",
		StopCodes: []string{"STATION_PENDING"},
	},
	ErrStationRejected: {
		Message:   "Station access has been rejected",
		StopCodes: []string{"STATION_REJECTED"},
	},
	ErrStationNotFound: {
		Message:   "Station not found",
		StopCodes: []string{"STATION_NOT_FOUND"},
	},
	ErrStationIDInvalid: {
		Message:   "Station ID failed verification",
		StopCodes: []string{"STATION_ID_INVALID"},
	},
	ErrClientIPMismatch: {
		Message:   "Request from unauthorized IP address",
		StopCodes: []string{"IP_MISMATCH"},
	},

	// Validation
	ErrInvalidRequest: {
		Message:   "Invalid request format",
		StopCodes: []string{"INVALID_REQUEST"},
	},
	ErrMissingParameter: {
		Message:   "Required parameter is missing",
		StopCodes: []string{"MISSING_PARAMETER"},
	},

	// Internal (no stop codes for internal errors)
	ErrInternalServer: {
		Message: "An internal error occurred",
	},
	ErrStorageProviderNotFound: {
		Message: "Storage service is not available",
	},
	ErrServiceUnavailable: {
		Message: "Service is temporarily unavailable",
	},
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	// Check if it's already an HTTPError
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	// Check direct match
	if status, ok := errorStatusMap[err]; ok {
		return status
	}

	// Check if error wraps a known error
	for knownErr, status := range errorStatusMap {
		if errors.Is(err, knownErr) {
			return status
		}
	}

	// Default to 500 Internal Server Error
	return http.StatusInternalServerError
}

// GetErrorInfo returns error information including message and stop codes
func GetErrorInfo(err error) ErrorInfo {
	// Check if it's an HTTPError with custom info
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ErrorInfo{
			Message:   httpErr.Message,
			StopCodes: httpErr.StopCodes,
		}
	}

	// Check direct match
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Check if error wraps a known error
	for knownErr, info := range errorInfoMap {
		if errors.Is(err, knownErr) {
			return info
		}
	}

	// For unknown errors, return a generic message for 5xx, specific for others
	status := GetErrorStatus(err)
	if status >= 500 {
		return ErrorInfo{Message: "An internal error occurred"}
	}
	return ErrorInfo{Message: err.Error()}
}

// GetErrorMessage returns a user-friendly message for an error
func GetErrorMessage(err error) string {
	return GetErrorInfo(err).Message
}
