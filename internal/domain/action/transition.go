package action

import (
	"fmt"
	"strings"
)

// Event drives a status transition.
type Event string

const (
	EventComplete       Event = "complete"
	EventRequestRecheck Event = "request_recheck"
	EventResubmit       Event = "resubmit"
)

// Transition returns the status an action moves to on ev. Completed is
// terminal for every event.
func Transition(a *Action, ev Event) (Status, error) {
	if a.Status == StatusCompleted {
		return "", fmt.Errorf("%s from %s: %w", ev, a.Status, ErrInvalidTransition)
	}
	switch ev {
	case EventComplete:
		return StatusCompleted, nil
	case EventRequestRecheck:
		if !a.IsApproval() {
			return "", ErrNotApproval
		}
		if a.Status != StatusPending {
			return "", fmt.Errorf("%s from %s: %w", ev, a.Status, ErrInvalidTransition)
		}
		return StatusInProgress, nil
	case EventResubmit:
		if !a.IsApproval() {
			return "", ErrNotApproval
		}
		if a.Status != StatusInProgress {
			return "", fmt.Errorf("%s from %s: %w", ev, a.Status, ErrInvalidTransition)
		}
		return StatusPending, nil
	default:
		return "", fmt.Errorf("unknown event %q: %w", ev, ErrInvalidTransition)
	}
}

// EventFor maps a requested target status to the event that reaches it.
func EventFor(target Status) (Event, error) {
	switch target {
	case StatusCompleted:
		return EventComplete, nil
	case StatusInProgress:
		return EventRequestRecheck, nil
	case StatusPending:
		return EventResubmit, nil
	default:
		return "", fmt.Errorf("unknown status %q: %w", target, ErrInvalidInput)
	}
}

// ParseStatus accepts canonical names and the loose spellings clients send.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)) {
	case "pending":
		return StatusPending, true
	case "inprogress":
		return StatusInProgress, true
	case "completed", "complete", "done", "resolved":
		return StatusCompleted, true
	default:
		return "", false
	}
}
