// Package rowkey derives stable composite keys for spreadsheet rows that carry
// no durable row id.
package rowkey

import (
	"errors"
	"strings"

	"github.com/rpggio/siteflow/internal/domain/site"
)

// leadingColumns is how many header columns form a row's identity when the row
// has no explicit id.
const leadingColumns = 3

const (
	fileSep     = "#"
	valueSep    = '|'
	explicitTag = '@'
	escapeChar  = '\\'
)

// ErrMalformed is returned when a serialised key cannot be parsed.
var ErrMalformed = errors.New("malformed row key")

// RowKey identifies a row within one source file. It is comparable and safe to
// use as a map key.
type RowKey struct {
	FileID   string
	Identity string
}

// Resolve computes a row's key. An explicit id column wins; otherwise the
// values of the first three header columns (or all of them when there are
// fewer) are used in header order, so reordering headers yields a different
// key for the same logical row.
func Resolve(fileID string, row site.Row, headers []string) RowKey {
	if id := row.Get(site.ColumnID); id != "" {
		return RowKey{FileID: fileID, Identity: string(explicitTag) + escape(id)}
	}
	return RowKey{FileID: fileID, Identity: encode(leadingValues(row, headers))}
}

func leadingValues(row site.Row, headers []string) []string {
	n := len(headers)
	if n > leadingColumns {
		n = leadingColumns
	}
	values := make([]string, n)
	for i, h := range headers[:n] {
		values[i] = row.Get(h)
	}
	return values
}

// String serialises the key for storage and transport.
func (k RowKey) String() string {
	if k.FileID == "" && k.Identity == "" {
		return ""
	}
	return escapeFileID(k.FileID) + fileSep + k.Identity
}

// IsZero reports whether the key is empty.
func (k RowKey) IsZero() bool {
	return k.FileID == "" && k.Identity == ""
}

// Explicit reports whether the key came from the row's own id column.
func (k RowKey) Explicit() bool {
	return strings.HasPrefix(k.Identity, string(explicitTag))
}

// Tuple returns the leading values encoded in a non-explicit key.
func (k RowKey) Tuple() []string {
	if k.Explicit() {
		return nil
	}
	return decode(k.Identity)
}

// Parse reverses String. A '#' or '\' inside the file id is backslash
// escaped; the first unescaped '#' ends the file id.
func Parse(s string) (RowKey, error) {
	if s == "" {
		return RowKey{}, nil
	}
	var (
		fileID  strings.Builder
		escaped bool
	)
	for i, r := range s {
		switch {
		case escaped:
			fileID.WriteRune(r)
			escaped = false
		case r == escapeChar:
			escaped = true
		case string(r) == fileSep:
			if fileID.Len() == 0 {
				return RowKey{}, ErrMalformed
			}
			return RowKey{FileID: fileID.String(), Identity: s[i+len(fileSep):]}, nil
		default:
			fileID.WriteRune(r)
		}
	}
	return RowKey{}, ErrMalformed
}

func escapeFileID(id string) string {
	if !strings.ContainsAny(id, fileSep+string(escapeChar)) {
		return id
	}
	var b strings.Builder
	for _, r := range id {
		if r == escapeChar || string(r) == fileSep {
			b.WriteRune(escapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escape(v string) string {
	if !strings.ContainsAny(v, `\|@`) {
		return v
	}
	var b strings.Builder
	for _, r := range v {
		if r == escapeChar || r == valueSep || r == explicitTag {
			b.WriteRune(escapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encode(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = escape(v)
	}
	return strings.Join(parts, string(valueSep))
}

func decode(identity string) []string {
	var (
		out     []string
		current strings.Builder
		escaped bool
	)
	for _, r := range identity {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == escapeChar:
			escaped = true
		case r == valueSep:
			out = append(out, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(out, current.String())
}

// MarshalText encodes the key as its serialised string.
func (k RowKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a serialised key.
func (k *RowKey) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
