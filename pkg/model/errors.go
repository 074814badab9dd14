package model

import (
	"github.com/tidemark/keel/pkg/errors"
)

// The engine error taxonomy. Sentinels compare with errors.Is and may
// wrap a cause from the filesystem collaborator.
var (
	// ErrNotFound is returned when an object, ref or entry is absent
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when a branch or tag already exists
	ErrExists = errors.New("exists already")

	// ErrCorrupted is returned when stored bytes violate the
	// self-describing object format
	ErrCorrupted = errors.New("corrupt object")

	// ErrNothingStaged is returned by commit when the staged tree is
	// identical to the tree at HEAD
	ErrNothingStaged = errors.New("nothing staged")

	// ErrFilesystem wraps failures propagated from the filesystem
	// collaborator
	ErrFilesystem = errors.New("filesystem error")

	// ErrInvalidPattern marks a malformed ignore rule; it is logged
	// and skipped, never fatal
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrInitialized is returned when init runs over an existing
	// repository
	ErrInitialized = errors.New("repository already initialized")

	// ErrUnknownBranch is returned by checkout for a ref that does
	// not exist
	ErrUnknownBranch = errors.New("unknown branch")
)
