package transport

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/ingest"
	"github.com/rpggio/siteflow/internal/workflow"
)

// maxUploadBytes bounds an uploaded workbook.
const maxUploadBytes = 32 << 20

const xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RegisterFileRequest is the JSON form of a file registration.
type RegisterFileRequest struct {
	Name    string     `json:"name" validate:"required"`
	Headers []string   `json:"headers" validate:"required,min=1"`
	Rows    [][]string `json:"rows"`
}

// RegisterFileResponse reports the registration and how many of the file's
// rows are still active.
type RegisterFileResponse struct {
	*workflow.FileRegistration
	Rows       int `json:"rows"`
	ActiveRows int `json:"active_rows"`
}

// handleRegisterFile accepts either a JSON body or a raw XLSX upload. The
// first sheet of a workbook is read; ?sheet= picks another and ?name= names
// the file.
func (s *Server) handleRegisterFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")

	var req workflow.RegisterFileRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json", "":
		var in RegisterFileRequest
		if err := s.decode(r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
		req = workflow.RegisterFileRequest{ID: fileID, Name: in.Name, Headers: in.Headers, Rows: in.Rows}
	case xlsxMediaType, "application/octet-stream":
		sheet, err := readUpload(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = sheet.Name
		}
		req = workflow.RegisterFileRequest{ID: fileID, Name: name, Headers: sheet.RawHeaders, Rows: sheet.Values}
	default:
		s.fail(w, r, fmt.Errorf("%w: unsupported content type %q", errBadRequest, mediaType))
		return
	}

	reg, err := s.wf.RegisterFile(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	schema := site.Schema{Columns: reg.File.Headers}
	rows := make([]site.Row, len(req.Rows))
	for i, values := range req.Rows {
		rows[i] = schema.Row(values)
	}
	active := s.wf.FilterRows(r.Context(), fileID, rows, schema.Columns)

	if reg.Created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, RegisterFileResponse{FileRegistration: reg, Rows: len(rows), ActiveRows: len(active)})
}

func readUpload(w http.ResponseWriter, r *http.Request) (*ingest.Sheet, error) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading upload: %v", errBadRequest, err)
	}
	if name := r.URL.Query().Get("sheet"); name != "" {
		return ingest.ReadSheet(content, name)
	}
	return ingest.ReadWorkbook(content)
}
