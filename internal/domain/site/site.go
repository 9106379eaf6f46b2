// Package site holds the canonical spreadsheet schema for equipment sites.
//
// Headers are normalised once when a sheet is ingested; downstream code reads
// canonical column names only.
package site

import (
	"strconv"
	"strings"
	"unicode"
)

// Canonical column names.
const (
	ColumnID           = "id"
	ColumnSiteCode     = "site_code"
	ColumnDeviceType   = "device_type"
	ColumnCircle       = "circle"
	ColumnDivision     = "division"
	ColumnDeviceStatus = "device_status"
	ColumnDaysOffline  = "days_offline"
	ColumnAttribute    = "attribute"
)

var headerAliases = map[string]string{
	"id":             ColumnID,
	"row id":         ColumnID,
	"rowid":          ColumnID,
	"_id":            ColumnID,
	"site code":      ColumnSiteCode,
	"sitecode":       ColumnSiteCode,
	"site id":        ColumnSiteCode,
	"site":           ColumnSiteCode,
	"device type":    ColumnDeviceType,
	"devicetype":     ColumnDeviceType,
	"equipment type": ColumnDeviceType,
	"circle":         ColumnCircle,
	"zone":           ColumnCircle,
	"division":       ColumnDivision,
	"div":            ColumnDivision,
	"device status":  ColumnDeviceStatus,
	"status":         ColumnDeviceStatus,
	"days offline":   ColumnDaysOffline,
	"offline days":   ColumnDaysOffline,
	"no of days":     ColumnDaysOffline,
	"attribute":      ColumnAttribute,
	"remarks":        ColumnAttribute,
}

// NormalizeHeader maps a raw header cell to its canonical column name. Unknown
// headers are lower-cased with runs of whitespace, dashes and underscores
// collapsed to a single space so they stay stable across uploads.
func NormalizeHeader(raw string) string {
	key := collapse(strings.ToLower(raw))
	if canonical, ok := headerAliases[key]; ok {
		return canonical
	}
	return key
}

func collapse(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	return strings.Join(fields, " ")
}

// NormalizeCode returns the comparison form of a site code: upper case with
// all whitespace removed.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Schema is the canonical header order of one ingested sheet.
type Schema struct {
	Columns []string
}

// NewSchema normalises raw headers in order. Duplicate canonical names get a
// numeric suffix so every column stays addressable.
func NewSchema(rawHeaders []string) Schema {
	seen := make(map[string]int, len(rawHeaders))
	cols := make([]string, 0, len(rawHeaders))
	for _, raw := range rawHeaders {
		col := NormalizeHeader(raw)
		if n := seen[col]; n > 0 {
			seen[col] = n + 1
			col = col + " " + strconv.Itoa(n+1)
		} else {
			seen[col] = 1
		}
		cols = append(cols, col)
	}
	return Schema{Columns: cols}
}

// Row maps cell values in positional order onto the schema. Missing trailing
// cells read as empty.
func (s Schema) Row(values []string) Row {
	row := make(Row, len(s.Columns))
	for i, col := range s.Columns {
		if i < len(values) {
			row[col] = strings.TrimSpace(values[i])
		} else {
			row[col] = ""
		}
	}
	return row
}

// Row is one spreadsheet row keyed by canonical column name.
type Row map[string]string

// Get returns the trimmed value of a canonical column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// SiteRecord is the business identity of one spreadsheet row.
type SiteRecord struct {
	SiteCode     string `json:"site_code"`
	DeviceType   string `json:"device_type"`
	Circle       string `json:"circle"`
	Division     string `json:"division"`
	DeviceStatus string `json:"device_status"`
	DaysOffline  int    `json:"days_offline"`
	Attribute    string `json:"attribute"`
}

// Record extracts the SiteRecord from a canonical row.
func (r Row) Record() SiteRecord {
	return SiteRecord{
		SiteCode:     r.Get(ColumnSiteCode),
		DeviceType:   r.Get(ColumnDeviceType),
		Circle:       r.Get(ColumnCircle),
		Division:     r.Get(ColumnDivision),
		DeviceStatus: r.Get(ColumnDeviceStatus),
		DaysOffline:  parseDays(r.Get(ColumnDaysOffline)),
		Attribute:    r.Get(ColumnAttribute),
	}
}

func parseDays(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
