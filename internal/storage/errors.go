package db

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a digest status change is not
	// allowed from its current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
