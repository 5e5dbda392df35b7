package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates the entity already exists.
	ErrConflict = errors.New("repository: conflict")
	// ErrUnauthorized indicates the store rejected the supplied credentials.
	ErrUnauthorized = errors.New("repository: unauthorized")
)
