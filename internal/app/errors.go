package app

import "errors"

// Validation failures are detected before any storage mutation; pipeline and
// query failures wrap their underlying cause so handlers can classify with
// errors.Is while callers still see what went wrong.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidName   = errors.New("session name is invalid")
	ErrDuplicateName = errors.New("session name already exists")
	ErrFileTooLarge  = errors.New("file exceeds the maximum allowed size")
	ErrTooManyFiles  = errors.New("too many files in one batch")
	ErrNoContent     = errors.New("session has no ingestible content")
	ErrNoIndex       = errors.New("session has no index; process its files first")
	ErrLoad          = errors.New("document load failed")
	ErrEmbedding     = errors.New("embedding or index build failed")
	ErrExecution     = errors.New("answer generation failed")
)
