package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("invalid booking details")
	ErrSignatureInvalid     = errors.New("payment signature invalid")
	ErrDuplicateBookingID   = errors.New("duplicate booking id")
	ErrIllegalTransition    = errors.New("illegal fulfillment transition")
)
