package observation

import "errors"

var (
	// ErrInvalidInput indicates invalid observation input.
	ErrInvalidInput = errors.New("invalid observation input")
)
