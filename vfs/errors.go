package vfs

import "errors"

// Standard VFS errors returned by mount and path translation operations.
var (
	// Mount table errors
	ErrDuplicateMountName = errors.New("vfs: mount name already registered")
	ErrInvalidRealRoot    = errors.New("vfs: real root does not exist or is not a directory")
	ErrInvalidMountName   = errors.New("vfs: invalid mount name")

	// Path translation errors
	ErrMountNotFound        = errors.New("vfs: no mount matches virtual path")
	ErrPathEscapesMount     = errors.New("vfs: path escapes mount root")
	ErrPathNotUnderAnyMount = errors.New("vfs: real path not under any mount")
	ErrInvalidPath          = errors.New("vfs: invalid path")
)
