package errors

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPurchaseConflict    = errors.New("wallet modified concurrently")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrEntitlementExists   = errors.New("entitlement already exists")
	ErrEntitlementNotFound = errors.New("entitlement not found")
	ErrNilUser             = errors.New("user is nil")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
)

// Wire codes surfaced in the structured error body of the HTTP API.
const (
	CodeUserNotFound        = "UserNotFound"
	CodeLessonNotFound      = "LessonNotFound"
	CodeInsufficientBalance = "InsufficientBalance"
	CodeConflict            = "ConcurrentModificationConflict"
	CodeStoreUnavailable    = "StoreUnavailable"
	CodeInvalidInput        = "InvalidInput"
	CodeInternal            = "Internal"
)

// Code maps a service error to its wire code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrLessonNotFound):
		return CodeLessonNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrPurchaseConflict):
		return CodeConflict
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}
