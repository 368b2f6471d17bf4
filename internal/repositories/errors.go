package repositories

import "errors"

var (
	// ErrNotFound is returned when a friend request or friendship does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when a friend request already exists in the same
	// direction.
	ErrConflict = errors.New("repository: already exists")
)
