package store

import "errors"

var (
	// ErrEmptyText rejects an add or edit whose text trims to empty.
	ErrEmptyText = errors.New("item text must not be empty")

	// ErrEmptyName rejects a profile created with a blank name.
	ErrEmptyName = errors.New("profile name must not be empty")

	// ErrLastProfile refuses to delete the only remaining profile.
	ErrLastProfile = errors.New("cannot delete the last remaining profile")

	// ErrNoEditSession is returned when no edit draft is open.
	ErrNoEditSession = errors.New("no edit session is open")

	// ErrInvalidSortMode rejects an unknown sort mode.
	ErrInvalidSortMode = errors.New("invalid sort mode")
)
