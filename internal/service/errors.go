package service

import "errors"

var (
	// ErrNotFound the referenced entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrValidation the mutation violates an invariant
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate a uniqueness constraint was hit
	ErrDuplicate = errors.New("duplicate entity")
)
