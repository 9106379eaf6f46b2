package action

import (
	"strings"

	"github.com/rpggio/siteflow/internal/domain/team"
)

// ValidateCreateInput validates fields required to create an action.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.SiteCode) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(req.TypeOfIssue) == "" {
		return ErrInvalidInput
	}
	if !req.AssignedByRole.Valid() || !req.AssignedToRole.Valid() {
		return ErrInvalidInput
	}
	switch req.Kind {
	case KindExecution:
	case KindApproval:
		if !req.SubmittedByRole.Valid() {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	if req.AssignedToVendor != "" && req.AssignedToRole != team.RoleAMC {
		return ErrInvalidInput
	}
	return nil
}

// ValidateReroute validates a reroute target.
func ValidateReroute(req RerouteRequest) error {
	if !req.Role.Valid() {
		return ErrInvalidInput
	}
	if req.Vendor != "" && req.Role != team.RoleAMC {
		return ErrInvalidInput
	}
	return nil
}
