package activity

import "time"

// ActivityType represents the type of workflow event
type ActivityType string

const (
	TypeActionCreated       ActivityType = "action_created"
	TypeActionCompleted     ActivityType = "action_completed"
	TypeActionRerouted      ActivityType = "action_rerouted"
	TypeRecheckRequested    ActivityType = "recheck_requested"
	TypeApprovalResubmitted ActivityType = "approval_resubmitted"
	TypeObservationRecorded ActivityType = "observation_recorded"
	TypeSiteExcluded        ActivityType = "site_excluded"
	TypeFileRegistered      ActivityType = "file_registered"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	SiteCode     string       `json:"site_code,omitempty"`
	FileID       string       `json:"file_id,omitempty"`
	ActionID     *string      `json:"action_id,omitempty"`
	Role         string       `json:"role,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
