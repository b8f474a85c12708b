// Package apperr defines the sentinel errors shared across tessera packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrToolNotFound is returned when a block references an unregistered tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrUnsupportedOperation is returned when a handler lacks the requested capability.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrIndexOutOfRange is a programmer error in collection addressing.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrExtractionFailure marks a content handler whose save failed.
	// It is logged and recovered, never returned from a document save.
	ErrExtractionFailure = errors.New("extraction failure")
	// ErrInvalidHierarchy reports broken parent links, cycles or asymmetric children.
	ErrInvalidHierarchy = errors.New("invalid hierarchy")
)
