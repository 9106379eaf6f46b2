package action

import "github.com/rpggio/siteflow/internal/domain/team"

// ListOptions filters action listings. Zero fields match everything.
type ListOptions struct {
	AssignedToRole team.Role
	AssignedByRole team.Role
	// Party matches actions where the role is assigner, assignee or a
	// previous assignee.
	Party team.Role
	// SiteCode is matched in normalised form.
	SiteCode     string
	SourceFileID string
	Kind         Kind
	OpenOnly     bool
}
