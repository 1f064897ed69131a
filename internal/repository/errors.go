// Package repository defines the storage error vocabulary shared by all
// backend implementations. Callers match these sentinels with errors.Is
// and translate them into domain errors at the use-case layer.
package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicate indicates a unique constraint rejected the write,
	// typically a username or email already taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)
