package routing

import (
	"strings"

	"github.com/rpggio/siteflow/internal/domain/team"
)

// IssueClass groups issue types that share a routing rule.
type IssueClass string

const (
	ClassCommunication IssueClass = "communication"
	ClassRepair        IssueClass = "repair"
	ClassFieldOnly     IssueClass = "field_only"
	ClassUnrouted      IssueClass = "unrouted"
)

// Destination is one team, optionally narrowed to a vendor, that must act on an
// observation.
type Destination struct {
	Role   team.Role `json:"role"`
	Vendor string    `json:"vendor,omitempty"`
}

// Label is the display name used in consolidated status fragments.
func (d Destination) Label() string {
	return Label(d.Role, d.Vendor)
}

// Label formats a role and optional vendor for display.
func Label(role team.Role, vendor string) string {
	if vendor != "" {
		return "Vendor (" + vendor + ")"
	}
	return role.TeamName()
}

// DestinationSet is the ordered result of routing one observation. Each role
// appears at most once.
type DestinationSet []Destination

// Roles returns the destination roles in order.
func (s DestinationSet) Roles() []team.Role {
	roles := make([]team.Role, len(s))
	for i, d := range s {
		roles[i] = d.Role
	}
	return roles
}

// Find returns the destination for role.
func (s DestinationSet) Find(role team.Role) (Destination, bool) {
	for _, d := range s {
		if d.Role == role {
			return d, true
		}
	}
	return Destination{}, false
}

// Empty reports whether routing produced no automatic destination.
func (s DestinationSet) Empty() bool {
	return len(s) == 0
}

func (s DestinationSet) String() string {
	labels := make([]string, len(s))
	for i, d := range s {
		labels[i] = d.Label()
	}
	return strings.Join(labels, ", ")
}
