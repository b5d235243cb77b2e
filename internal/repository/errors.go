package repository

import "errors"

var (
	// ErrNotFound indicates a lookup matched no rows.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates an insert or update violated a uniqueness rule.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInsufficientStock indicates a checkout asked for more units than remain.
	ErrInsufficientStock = errors.New("insufficient stock")
)
