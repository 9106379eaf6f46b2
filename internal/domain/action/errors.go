package action

import "errors"

var (
	// ErrActionNotFound indicates the action doesn't exist.
	ErrActionNotFound = errors.New("action not found")
	// ErrInvalidInput indicates invalid action input.
	ErrInvalidInput = errors.New("invalid action input")
	// ErrInvalidTransition indicates a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid action transition")
	// ErrNotApproval indicates an approval-only operation on routed work.
	ErrNotApproval = errors.New("action is not an approval")
	// ErrConflict indicates the action changed underneath the update.
	ErrConflict = errors.New("action was modified concurrently")
)
