package domain

import (
	"errors"
	"net/http"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrStockNotFound       = errors.New("stock not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrNotificationFailure = errors.New("notification failure")
)

// ErrorInfo is the stable client-facing description of an error
type ErrorInfo struct {
	Code    string
	Message string
	Status  int
}

var errorTable = []struct {
	err  error
	info ErrorInfo
}{
	{ErrValidation, ErrorInfo{"InvalidInput", "Invalid input", http.StatusBadRequest}},
	{ErrInsufficientFunds, ErrorInfo{"InsufficientFunds", "Insufficient balance", http.StatusBadRequest}},
	{ErrInsufficientShares, ErrorInfo{"InsufficientShares", "Insufficient shares", http.StatusBadRequest}},
	{ErrStockNotFound, ErrorInfo{"StockNotFound", "Stock not found", http.StatusNotFound}},
	{ErrUserNotFound, ErrorInfo{"UserNotFound", "User not found", http.StatusNotFound}},
	{ErrUserAlreadyExists, ErrorInfo{"UserAlreadyExists", "User already exists", http.StatusConflict}},
	{ErrInvalidCredentials, ErrorInfo{"InvalidCredentials", "Invalid credentials", http.StatusUnauthorized}},
}

// Describe maps an error to its client-facing code, message and HTTP status.
// Anything unrecognised is an internal error and carries no detail.
func Describe(err error) ErrorInfo {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.info
		}
	}
	return ErrorInfo{"InternalError", "Internal server error", http.StatusInternalServerError}
}

// IsExpected reports whether err is a domain outcome rather than a system failure
func IsExpected(err error) bool {
	return Describe(err).Status < http.StatusInternalServerError
}

// ErrorCode returns the stable code and HTTP status for err
func ErrorCode(err error) (string, int) {
	info := Describe(err)
	return info.Code, info.Status
}
