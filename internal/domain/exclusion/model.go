// Package exclusion holds the sites whose approval chain reached the terminal
// authority and hides them from every active view.
package exclusion

import (
	"sort"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
)

// Entry records one terminal approval. Entries are never revoked.
type Entry struct {
	FileID     string        `json:"file_id"`
	RowKey     rowkey.RowKey `json:"row_key"`
	SiteCode   string        `json:"site_code"`
	ApprovalID string        `json:"approval_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Set is a snapshot of excluded row keys and site codes.
type Set struct {
	rowKeys   map[rowkey.RowKey]struct{}
	siteCodes map[string]struct{}
	// Stale is true when the snapshot is the last known one because the
	// latest fetch failed.
	Stale bool
}

// NewSet builds a snapshot from entries.
func NewSet(entries []Entry) Set {
	s := Set{
		rowKeys:   make(map[rowkey.RowKey]struct{}, len(entries)),
		siteCodes: make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		s.add(e)
	}
	return s
}

func (s *Set) add(e Entry) {
	if s.rowKeys == nil {
		s.rowKeys = make(map[rowkey.RowKey]struct{})
		s.siteCodes = make(map[string]struct{})
	}
	if !e.RowKey.IsZero() {
		s.rowKeys[e.RowKey] = struct{}{}
	}
	if code := site.NormalizeCode(e.SiteCode); code != "" {
		s.siteCodes[code] = struct{}{}
	}
}

func (s *Set) merge(other Set) {
	for k := range other.rowKeys {
		s.rowKeys[k] = struct{}{}
	}
	for c := range other.siteCodes {
		s.siteCodes[c] = struct{}{}
	}
}

func (s Set) clone() Set {
	out := Set{
		rowKeys:   make(map[rowkey.RowKey]struct{}, len(s.rowKeys)),
		siteCodes: make(map[string]struct{}, len(s.siteCodes)),
		Stale:     s.Stale,
	}
	for k := range s.rowKeys {
		out.rowKeys[k] = struct{}{}
	}
	for c := range s.siteCodes {
		out.siteCodes[c] = struct{}{}
	}
	return out
}

// Contains matches the row key exactly, or the normalised site code.
func (s Set) Contains(key rowkey.RowKey, siteCode string) bool {
	if !key.IsZero() {
		if _, ok := s.rowKeys[key]; ok {
			return true
		}
	}
	code := site.NormalizeCode(siteCode)
	if code == "" {
		return false
	}
	_, ok := s.siteCodes[code]
	return ok
}

// Len returns the number of excluded site codes.
func (s Set) Len() int {
	return len(s.siteCodes)
}

// RowKeys returns the excluded row keys sorted.
func (s Set) RowKeys() []string {
	out := make([]string, 0, len(s.rowKeys))
	for k := range s.rowKeys {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}

// SiteCodes returns the excluded normalised site codes sorted.
func (s Set) SiteCodes() []string {
	out := make([]string, 0, len(s.siteCodes))
	for c := range s.siteCodes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Filter drops items the set excludes. keyOf extracts an item's row key and
// site code.
func Filter[T any](s Set, items []T, keyOf func(T) (rowkey.RowKey, string)) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if s.Contains(keyOf(item)) {
			continue
		}
		out = append(out, item)
	}
	return out
}
