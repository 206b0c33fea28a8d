package domain

import "errors"

var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidHoldOperation  = errors.New("invalid hold operation")
	ErrHoldNotFound          = errors.New("hold not found")
	ErrValidation            = errors.New("validation failed")
	ErrInvariant             = errors.New("inventory invariant violated")
)
