package nanofs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrNameTooLong is returned when a path's length reaches PathMax.
	ErrNameTooLong = errors.New("nanofs: name too long")

	// ErrNotFound is returned when a path component does not exist.
	ErrNotFound = errors.New("nanofs: not found")

	// ErrNotDirectory is returned when a non-final path component, or the
	// target of a directory-only operation, is not a directory.
	ErrNotDirectory = errors.New("nanofs: not a directory")

	// ErrIsDirectory is returned when a file-only operation targets a directory.
	ErrIsDirectory = errors.New("nanofs: is a directory")

	// ErrNotEmpty is returned by rmdir on a non-empty directory.
	ErrNotEmpty = errors.New("nanofs: directory not empty")

	// ErrNoSpace is returned when a bitmap has no free bit, no run fits, or
	// the per-inode extent cap would be exceeded.
	ErrNoSpace = errors.New("nanofs: no space left on device")

	// ErrExists is returned when create/mkdir targets a name already present
	// in the parent directory.
	ErrExists = errors.New("nanofs: already exists")

	// ErrInvalidImage is returned when a superblock's magic does not match,
	// or the image is otherwise too small to hold the computed layout.
	ErrInvalidImage = errors.New("nanofs: not a nanofs image")

	// ErrUnsupported is reserved; not reached in the completed design.
	ErrUnsupported = errors.New("nanofs: unsupported operation")
)
