// Package ingest reads uploaded XLSX sheets into canonical rows. Headers are
// normalised here once; downstream code reads canonical column names only.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoSheet is returned when the workbook has no readable sheet.
	ErrNoSheet = errors.New("workbook has no sheet")
	// ErrNoHeader is returned when a sheet has no non-empty row.
	ErrNoHeader = errors.New("sheet has no header row")
)

// Sheet is one ingested worksheet.
type Sheet struct {
	Name       string
	RawHeaders []string
	Schema     site.Schema
	// Values are the data rows in sheet order, padded to the header width.
	Values [][]string
}

// Rows maps the data rows onto the canonical schema.
func (s *Sheet) Rows() []site.Row {
	rows := make([]site.Row, len(s.Values))
	for i, v := range s.Values {
		rows[i] = s.Schema.Row(v)
	}
	return rows
}

// ReadWorkbook reads the first sheet of an XLSX workbook.
func ReadWorkbook(content []byte) (*Sheet, error) {
	return ReadSheet(content, "")
}

// ReadSheet reads the named sheet, or the first one when name is empty.
func ReadSheet(content []byte, name string) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("error opening Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	if name == "" {
		name = sheets[0]
	} else if !slices.Contains(sheets, name) {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrNoSheet)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return fromRows(name, rows)
}

func fromRows(name string, rows [][]string) (*Sheet, error) {
	start := slices.IndexFunc(rows, func(r []string) bool { return !blank(r) })
	if start < 0 {
		return nil, ErrNoHeader
	}
	raw := trimTrailing(rows[start])
	for i := range raw {
		raw[i] = strings.TrimSpace(raw[i])
	}

	sheet := &Sheet{Name: name, RawHeaders: raw, Schema: site.NewSchema(raw)}
	for _, r := range rows[start+1:] {
		if blank(r) {
			continue
		}
		values := make([]string, len(raw))
		copy(values, r)
		sheet.Values = append(sheet.Values, values)
	}
	return sheet, nil
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailing(r []string) []string {
	end := len(r)
	for end > 0 && strings.TrimSpace(r[end-1]) == "" {
		end--
	}
	return slices.Clone(r[:end])
}
