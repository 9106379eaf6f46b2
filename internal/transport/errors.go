package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/activity"
	"github.com/rpggio/siteflow/internal/domain/exclusion"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/sourcefile"
	"github.com/rpggio/siteflow/internal/ingest"
	"github.com/rpggio/siteflow/internal/workflow"
)

var (
	errMissingRole = errors.New("missing " + HeaderRole + " header")
	errBadRequest  = errors.New("bad request")
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorClass struct {
	status int
	code   string
}

// classify maps domain errors to an HTTP status and a stable error code.
func classify(err error) errorClass {
	switch {
	case errors.Is(err, errMissingRole):
		return errorClass{http.StatusUnauthorized, "MISSING_ROLE"}
	case errors.Is(err, workflow.ErrUnknownRole):
		return errorClass{http.StatusBadRequest, "UNKNOWN_ROLE"}
	case errors.Is(err, action.ErrActionNotFound):
		return errorClass{http.StatusNotFound, "ACTION_NOT_FOUND"}
	case errors.Is(err, sourcefile.ErrFileNotFound):
		return errorClass{http.StatusNotFound, "FILE_NOT_FOUND"}
	case errors.Is(err, action.ErrConflict):
		return errorClass{http.StatusConflict, "CONFLICT"}
	case errors.Is(err, action.ErrInvalidTransition):
		return errorClass{http.StatusUnprocessableEntity, "INVALID_TRANSITION"}
	case errors.Is(err, action.ErrNotApproval):
		return errorClass{http.StatusUnprocessableEntity, "NOT_APPROVAL"}
	case errors.Is(err, ingest.ErrNoSheet), errors.Is(err, ingest.ErrNoHeader):
		return errorClass{http.StatusUnprocessableEntity, "UNREADABLE_SHEET"}
	case errors.Is(err, errBadRequest),
		errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, action.ErrInvalidInput),
		errors.Is(err, observation.ErrInvalidInput),
		errors.Is(err, exclusion.ErrInvalidInput),
		errors.Is(err, sourcefile.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, rowkey.ErrMalformed):
		return errorClass{http.StatusBadRequest, "INVALID_INPUT"}
	default:
		return errorClass{http.StatusInternalServerError, "INTERNAL"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	msg := err.Error()
	if c.status == http.StatusInternalServerError {
		msg = "internal error"
	}
	render.Status(r, c.status)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: c.code})
}
