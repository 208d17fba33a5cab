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

// Fee engine errors
var (
	ErrNotConfigured      = errors.New("fee schedule not configured for this application type and date")
	ErrNoMatchingCategory = errors.New("no vessel size category matches the vessel length")
	ErrMissingFeeItem     = errors.New("fee item not configured")
	ErrScheduleFrozen     = errors.New("fee schedule has funded payments and can no longer be edited")
)

// Workflow errors
var (
	ErrNotAuthorized   = errors.New("not authorized to perform this action")
	ErrInvalidState    = errors.New("action not permitted from the current processing status")
	ErrPaymentGateway  = errors.New("payment gateway request failed")
	ErrBlockingProposal = errors.New("another active application references the same vessel")
)

// UserErrors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidPassword   = errors.New("invalid password")
)
