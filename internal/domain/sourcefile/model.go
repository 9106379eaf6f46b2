package sourcefile

import "time"

// File is an ingested spreadsheet with its last known header order and a
// monotonic tick bumped on every re-registration.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Headers   []string  `json:"headers"`
	Tick      int64     `json:"tick"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registration is the outcome of registering a file.
type Registration struct {
	File            *File    `json:"file"`
	Created         bool     `json:"created"`
	PreviousHeaders []string `json:"previous_headers,omitempty"`
	HeadersChanged  bool     `json:"headers_changed"`
}
