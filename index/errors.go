package index

import "errors"

// Standard index errors returned by lookup and snapshot construction.
var (
	ErrDirectoryNotFound = errors.New("index: directory not found")
	ErrSongNotFound      = errors.New("index: song not found")

	// Builder invariant violations
	ErrDuplicatePath = errors.New("index: virtual path already present in snapshot")
	ErrOrphanedEntry = errors.New("index: entry has no parent directory in snapshot")
	ErrParentNotDir  = errors.New("index: parent path is not a directory")
)
