package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/workflow"
)

var (
	errMissingRole = errors.New("no role: pass role or set X-Role / _meta.role")
	errInvalidArgs = errors.New("invalid arguments")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, errMissingRole):
		return &APIError{Code: "MISSING_ROLE", Message: err.Error(), RecoveryHint: "Pass role explicitly"}
	case errors.Is(err, workflow.ErrUnknownRole):
		return &APIError{Code: "UNKNOWN_ROLE", Message: "unknown role", RecoveryHint: "Use Equipment, O&M, AMC, RTU or CCR"}
	case errors.Is(err, action.ErrActionNotFound):
		return &APIError{Code: "ACTION_NOT_FOUND", Message: "action not found", RecoveryHint: "List actions with list_my_actions"}
	case errors.Is(err, sourcefile.ErrFileNotFound):
		return &APIError{Code: "FILE_NOT_FOUND", Message: "source file not found", RecoveryHint: "Call register_file first"}
	case errors.Is(err, action.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "invalid action transition", RecoveryHint: "Completed actions are final"}
	case errors.Is(err, action.ErrNotApproval):
		return &APIError{Code: "NOT_APPROVAL", Message: "action is not an approval"}
	case errors.Is(err, action.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: "action modified concurrently", RecoveryHint: "Retry"}
	case errors.Is(err, errInvalidArgs),
		errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, action.ErrInvalidInput),
		errors.Is(err, observation.ErrInvalidInput),
		errors.Is(err, sourcefile.ErrInvalidInput),
		errors.Is(err, rowkey.ErrMalformed):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError returns the mapped error when one exists.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
