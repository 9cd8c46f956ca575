package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Borrowing errors
var (
	ErrNotSubscribed    = errors.New("user is not subscribed")
	ErrAlreadyBorrowed  = errors.New("copy is already borrowed")
	ErrAlreadyHeld      = errors.New("user already holds this copy")
	ErrCopyAvailable    = errors.New("copy is available, borrow it instead")
	ErrDuplicateRequest = errors.New("user already has a pending request for this copy")
	ErrNoActiveLoan     = errors.New("copy has no active loan")
	ErrNotOwner         = errors.New("request belongs to another user")
	ErrCopyOnLoan       = errors.New("copy is on loan")
)

// Catalog errors
var (
	ErrBookNotFound    = errors.New("book not found")
	ErrCopyNotFound    = errors.New("copy not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrUserNotFound    = errors.New("user not found")
)
