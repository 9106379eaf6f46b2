package exclusion

import "errors"

var (
	// ErrInvalidInput indicates an entry without a row key or site code.
	ErrInvalidInput = errors.New("invalid exclusion input")
)
