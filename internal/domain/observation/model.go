// Package observation tracks each role's own marker on a site.
package observation

import (
	"strings"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Status is a role's observation marker.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "Pending"
	StatusResolved Status = "Resolved"
)

// State is one role's observation of one row or site. It is role scoped: a
// state recorded by one role is never read for another.
type State struct {
	RowKey    rowkey.RowKey `json:"row_key"`
	SiteCode  string        `json:"site_code"`
	Role      team.Role     `json:"role"`
	Status    Status        `json:"status"`
	Remarks   string        `json:"remarks,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Subject is the storage key of the observed thing: the row key when known,
// otherwise the normalised site code.
func Subject(key rowkey.RowKey, siteCode string) string {
	if !key.IsZero() {
		return key.String()
	}
	return "site:" + siteCode
}

// ParseStatus accepts the canonical markers case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch {
	case s == "":
		return StatusNone, true
	case equalFold(s, string(StatusPending)):
		return StatusPending, true
	case equalFold(s, string(StatusResolved)), equalFold(s, "Completed"):
		return StatusResolved, true
	default:
		return "", false
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
