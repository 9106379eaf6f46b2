// Package team names the operational roles that observe, execute and approve work.
package team

import "strings"

// Role identifies an operational team.
type Role string

const (
	RoleEquipment Role = "Equipment"
	RoleOM        Role = "O&M"
	RoleAMC       Role = "AMC"
	RoleRTU       Role = "RTU"
	RoleCCR       Role = "CCR"
)

// All lists every known role.
var All = []Role{RoleEquipment, RoleOM, RoleAMC, RoleRTU, RoleCCR}

var aliases = map[string]Role{
	"equipment":                 RoleEquipment,
	"equipment team":            RoleEquipment,
	"o&m":                       RoleOM,
	"om":                        RoleOM,
	"o&m team":                  RoleOM,
	"o and m":                   RoleOM,
	"amc":                       RoleAMC,
	"amc team":                  RoleAMC,
	"rtu":                       RoleRTU,
	"rtu team":                  RoleRTU,
	"communication":             RoleRTU,
	"communication team":        RoleRTU,
	"rtu/communication":         RoleRTU,
	"rtu/communication team":    RoleRTU,
	"ccr":                       RoleCCR,
	"central control room":      RoleCCR,
	"central control room team": RoleCCR,
}

// Parse resolves a role from its canonical name or a common alias.
func Parse(s string) (Role, bool) {
	r, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range All {
		if r == known {
			return true
		}
	}
	return false
}

// Rank is the role's position in All, or len(All) for unknown roles.
func (r Role) Rank() int {
	for i, known := range All {
		if r == known {
			return i
		}
	}
	return len(All)
}

// TeamName is the label shown in consolidated status fragments.
func (r Role) TeamName() string {
	switch r {
	case RoleOM:
		return "O&M Team"
	case RoleAMC:
		return "AMC Team"
	case RoleRTU:
		return "RTU/Communication Team"
	default:
		return string(r)
	}
}

// ApproverOf returns the role immediately above r in authority.
// CCR is the terminal authority and has no approver.
func ApproverOf(r Role) (Role, bool) {
	switch r {
	case RoleAMC:
		return RoleEquipment, true
	case RoleCCR:
		return "", false
	default:
		return RoleCCR, true
	}
}

// HasIntermediateApprover reports whether work resolved by r is signed off by
// someone other than the terminal authority.
func HasIntermediateApprover(r Role) bool {
	approver, ok := ApproverOf(r)
	return ok && approver != RoleCCR
}
