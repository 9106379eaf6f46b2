package action

import (
	"strings"
	"time"

	"github.com/rpggio/siteflow/internal/domain/rowkey"
	"github.com/rpggio/siteflow/internal/domain/site"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Status is the lifecycle state of an action.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Kind distinguishes routed work from oversight sign-off.
type Kind string

const (
	KindExecution Kind = "execution"
	KindApproval  Kind = "approval"
)

// ApprovalSuffix ends the issue type of every oversight approval.
const ApprovalSuffix = " Resolution Approval"

// Assignee is a role, optionally narrowed to a user or vendor.
type Assignee struct {
	Role   team.Role `json:"role"`
	UserID string    `json:"user_id,omitempty"`
	Vendor string    `json:"vendor,omitempty"`
}

// Action is one unit of assigned work.
type Action struct {
	ID                string        `json:"id"`
	SourceFileID      string        `json:"source_file_id"`
	RowKey            rowkey.RowKey `json:"row_key"`
	SiteCode          string        `json:"site_code"`
	DeviceType        string        `json:"device_type,omitempty"`
	TypeOfIssue       string        `json:"type_of_issue"`
	Kind              Kind          `json:"kind"`
	AssignedByRole    team.Role     `json:"assigned_by_role"`
	AssignedByUserID  string        `json:"assigned_by_user_id,omitempty"`
	AssignedToRole    team.Role     `json:"assigned_to_role"`
	AssignedToUserID  string        `json:"assigned_to_user_id,omitempty"`
	AssignedToVendor  string        `json:"assigned_to_vendor,omitempty"`
	Status            Status        `json:"status"`
	Remarks           string        `json:"remarks,omitempty"`
	Photos            []string      `json:"photos,omitempty"`
	OriginRowKey      rowkey.RowKey `json:"origin_row_key"`
	OriginActionID    string        `json:"origin_action_id,omitempty"`
	SubmittedByRole   team.Role     `json:"submitted_by_role,omitempty"`
	PreviousAssignees []Assignee    `json:"previous_assignees,omitempty"`
	Version           int64         `json:"version"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Assignee returns the current assignee.
func (a *Action) Assignee() Assignee {
	return Assignee{Role: a.AssignedToRole, UserID: a.AssignedToUserID, Vendor: a.AssignedToVendor}
}

// IsApproval reports whether the action is an oversight approval.
func (a *Action) IsApproval() bool {
	return a.Kind == KindApproval
}

// Open reports whether the action still awaits work.
func (a *Action) Open() bool {
	return a.Status != StatusCompleted
}

// InvolvesRole reports whether role is a current or historical party.
func (a *Action) InvolvesRole(role team.Role) bool {
	if a.AssignedByRole == role || a.AssignedToRole == role {
		return true
	}
	for _, prev := range a.PreviousAssignees {
		if prev.Role == role {
			return true
		}
	}
	return false
}

// NaturalKey identifies a unit of work regardless of how many times it was
// submitted. Actions sharing a key are duplicates of each other.
type NaturalKey struct {
	SiteCode    string
	DeviceType  string
	TypeOfIssue string
	AssignedTo  team.Role
}

// NaturalKey returns the action's key in normalised form.
func (a *Action) NaturalKey() NaturalKey {
	return NaturalKey{
		SiteCode:    site.NormalizeCode(a.SiteCode),
		DeviceType:  strings.ToUpper(strings.TrimSpace(a.DeviceType)),
		TypeOfIssue: strings.ToLower(strings.TrimSpace(a.TypeOfIssue)),
		AssignedTo:  a.AssignedToRole,
	}
}

// ApprovalType names the approval raised for work resolved by role.
func ApprovalType(role team.Role) string {
	return string(role) + ApprovalSuffix
}
