package domain

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrUnknownField  = errors.New("unknown field")
	ErrUnprocessable = errors.New("unprocessable")
)

// Auth failure codes, surfaced verbatim in error responses.
const (
	AuthCodeMissingHeader       = "MissingAuthHeader"
	AuthCodeMalformedHeader     = "MalformedHeader"
	AuthCodeInvalidHeaderFormat = "InvalidHeaderFormat"
	AuthCodeKeyNotFound         = "KeyNotFound"
	AuthCodeTokenExpired        = "TokenExpired"
	AuthCodeInvalidClaims       = "InvalidClaims"
	AuthCodeInvalidHeader       = "InvalidHeader"
	AuthCodeUnauthorized        = "Unauthorized"
)

// AuthError is a token-verification or permission failure. It carries the
// HTTP status to respond with and a short description for the caller.
type AuthError struct {
	Code        string
	Status      int
	Description string
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Description
}

func NewAuthError(code string, status int, description string) *AuthError {
	return &AuthError{Code: code, Status: status, Description: description}
}

// Unauthenticated builds a 401 AuthError for a token-verification failure.
func Unauthenticated(code, description string) *AuthError {
	return NewAuthError(code, http.StatusUnauthorized, description)
}

func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
