package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with a unique key
	// (username, referral code).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input cannot be stored as given.
	ErrInvalidInput = errors.New("invalid input")
)
