package sourcefile

import "errors"

var (
	// ErrFileNotFound indicates the file doesn't exist.
	ErrFileNotFound = errors.New("source file not found")
	// ErrInvalidInput indicates invalid file input.
	ErrInvalidInput = errors.New("invalid source file input")
)
