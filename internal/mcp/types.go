package mcp

// RowParams carries one spreadsheet row as raw headers and positional values.
type RowParams struct {
	FileID  string   `json:"file_id,omitempty" jsonschema:"source file id"`
	RowKey  string   `json:"row_key,omitempty" jsonschema:"explicit row key; resolved from the row when omitted"`
	Headers []string `json:"headers" jsonschema:"raw header cells in sheet order"`
	Values  []string `json:"values,omitempty" jsonschema:"cell values in header order"`
}

type RouteIssueParams struct {
	Issue      string `json:"issue" jsonschema:"type of issue observed"`
	DeviceType string `json:"device_type,omitempty"`
	Circle     string `json:"circle,omitempty"`
	SiteCode   string `json:"site_code,omitempty"`
}

type SubmitIssueParams struct {
	FileID  string   `json:"file_id,omitempty"`
	RowKey  string   `json:"row_key,omitempty"`
	Headers []string `json:"headers" jsonschema:"raw header cells in sheet order"`
	Values  []string `json:"values,omitempty" jsonschema:"cell values in header order"`
	Role    string   `json:"role,omitempty" jsonschema:"submitting role; defaults to the session role"`
	Issue   string   `json:"issue" jsonschema:"type of issue observed"`
	Remarks string   `json:"remarks,omitempty"`
	Photos  []string `json:"photos,omitempty"`
}

type SubmitActionParams struct {
	FileID   string   `json:"file_id,omitempty"`
	RowKey   string   `json:"row_key,omitempty"`
	Headers  []string `json:"headers" jsonschema:"raw header cells in sheet order"`
	Values   []string `json:"values,omitempty" jsonschema:"cell values in header order"`
	Role     string   `json:"role,omitempty" jsonschema:"submitting role; defaults to the session role"`
	ToRole   string   `json:"to_role" jsonschema:"destination role"`
	ToVendor string   `json:"to_vendor,omitempty" jsonschema:"destination vendor for AMC"`
	Issue    string   `json:"issue"`
	Remarks  string   `json:"remarks,omitempty"`
	Photos   []string `json:"photos,omitempty"`
}

type UpdateActionStatusParams struct {
	ActionID string `json:"action_id"`
	Status   string `json:"status" jsonschema:"Pending, In Progress or Completed"`
	Remarks  string `json:"remarks,omitempty"`
}

type RequestRecheckParams struct {
	ActionID string `json:"action_id"`
	Remarks  string `json:"remarks,omitempty"`
}

type RerouteActionParams struct {
	ActionID string   `json:"action_id"`
	ToRole   string   `json:"to_role"`
	ToUserID string   `json:"to_user_id,omitempty"`
	ToVendor string   `json:"to_vendor,omitempty"`
	Remarks  string   `json:"remarks,omitempty"`
	Photos   []string `json:"photos,omitempty"`
}

type ObservationParams struct {
	Role     string `json:"role,omitempty" jsonschema:"observing role; defaults to the session role"`
	RowKey   string `json:"row_key,omitempty"`
	SiteCode string `json:"site_code"`
	Status   string `json:"status,omitempty" jsonschema:"Pending or Resolved; empty clears the marker"`
	Remarks  string `json:"remarks,omitempty"`
}

type ObservationRefParams struct {
	Role     string `json:"role,omitempty"`
	RowKey   string `json:"row_key,omitempty"`
	SiteCode string `json:"site_code"`
}

type RoleParams struct {
	Role string `json:"role,omitempty" jsonschema:"role to act as; defaults to the session role"`
}

type DisplayStatusParams struct {
	Role     string `json:"role,omitempty" jsonschema:"viewing role; defaults to the session role"`
	RowKey   string `json:"row_key,omitempty"`
	SiteCode string `json:"site_code"`
}

type FileParams struct {
	FileID string `json:"file_id"`
}

type IsExcludedParams struct {
	RowKey   string `json:"row_key,omitempty"`
	SiteCode string `json:"site_code,omitempty"`
}

type RegisterFileParams struct {
	FileID  string     `json:"file_id"`
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows,omitempty"`
}

type SiteActivityParams struct {
	SiteCode string `json:"site_code"`
	Limit    int    `json:"limit,omitempty"`
}

type FlushParams struct{}

// DraftView is a staged observation as the session sees it. Dirty drafts
// have not reached the store yet.
type DraftView struct {
	SiteCode string   `json:"site_code"`
	RowKey   string   `json:"row_key,omitempty"`
	Role     string   `json:"role"`
	Status   string   `json:"status"`
	Remarks  string   `json:"remarks,omitempty"`
	Photos   []string `json:"photos,omitempty"`
	Dirty    bool     `json:"dirty"`
}
