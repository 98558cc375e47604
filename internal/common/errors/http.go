// internal/common/errors/http.go
package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPStatusMapping maps internal error codes to HTTP response codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeValidationFailed:   http.StatusBadRequest,
	ErrCodeInvalidPhoneNumber: http.StatusBadRequest,
	ErrCodeAuthRequired:       http.StatusUnauthorized,
	ErrCodeNotOwner:           http.StatusForbidden,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeNotConfigured:      http.StatusUnprocessableEntity,
	ErrCodeProviderFailed:     http.StatusBadGateway,
	ErrCodeProviderTimeout:    http.StatusGatewayTimeout,
	ErrCodeCryptoFailed:       http.StatusInternalServerError,
	ErrCodeDatabaseFailed:     http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for a code, 500 when unmapped.
func HTTPStatus(code ErrorCode) int {
	if status, exists := HTTPStatusMapping[code]; exists {
		return status
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error *StandardError `json:"error"`
}

// WriteHTTP renders err as a JSON error response with the mapped status.
func WriteHTTP(w http.ResponseWriter, err error) {
	stdErr := AsStandard(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(errorResponse{Error: stdErr})
}
