package domain

import "errors"

var (
	ErrSagaNotFound        = errors.New("booking saga not found")
	ErrSagaExists          = errors.New("booking saga already exists")
	ErrConcurrencyConflict = errors.New("booking saga was modified concurrently")
	ErrValidation          = errors.New("validation failed")
)
