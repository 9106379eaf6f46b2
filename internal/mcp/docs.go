package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `siteflow coordinates follow-up work on offline field equipment listed in spreadsheets.

Core concepts:
- Row key: stable id of a spreadsheet row (file id + explicit id, or the first three header values).
- Action: work routed to one team (O&M, AMC vendor, RTU) or an approval for an oversight role (Equipment, CCR).
- Observation: a role's own Pending/Resolved marker on a site. It never leaks into another role's status.
- Exclusion: once CCR approves the final step, the site leaves every active view.

Default workflow:
1) Identify: send X-Role (HTTP) or _meta.role (stdio), or pass role on each call.
2) Report: submit_issue with the row's headers and values. Each destination succeeds or fails on its own.
3) Work: list_my_actions, then update_action_status to Completed when done.
4) Approve: approvals arrive in list_my_actions; Completed approves, In Progress sends back for recheck.
5) Watch: active_queue and display_status show what the role sees; is_excluded after CCR approval.

Docs:
- siteflow://docs/index
- siteflow://docs/routing
- siteflow://docs/approvals
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "siteflow://docs/index",
		Name:        "docs_index",
		Title:       "siteflow docs index",
		Description: "Entry point: which tools exist and when to use them.",
		Content: `# siteflow: Agent Docs Index

## Tools by task

- Identify a row: ` + "`resolve_row_key`" + `
- Preview routing: ` + "`route_issue`" + `
- Report an issue: ` + "`submit_issue`" + ` (routed) or ` + "`submit_action`" + ` (one explicit destination)
- Progress work: ` + "`update_action_status`" + `, ` + "`request_recheck`" + `, ` + "`reroute_action`" + `
- Own marker: ` + "`record_observation`" + `, or ` + "`stage_observation`" + ` + ` + "`flush_observations`" + ` for batched edits
- Views: ` + "`list_my_actions`" + `, ` + "`list_routed_actions`" + `, ` + "`active_queue`" + `, ` + "`display_status`" + `
- Closure: ` + "`is_excluded`" + `, ` + "`list_excluded_sites`" + `
- Files: ` + "`register_file`" + ` whenever a sheet is uploaded again
- History: ` + "`site_activity`" + `

## Docs

- ` + "`siteflow://docs/routing`" + ` - which issue goes to which team.
- ` + "`siteflow://docs/approvals`" + ` - the approval chain and exclusion.
`,
	},
	{
		URI:         "siteflow://docs/routing",
		Name:        "docs_routing",
		Title:       "Routing rules",
		Description: "How an issue on a site is mapped to destination teams and vendors.",
		Content: `# Routing rules

- Communication issues (RTU Issue, CS Issue) go to the RTU/Communication team only.
- Repair issues (Faulty, Spare Required) go to O&M. On AMC device types they also go to the AMC vendor.
- Field issues (Bipassed, Line Idle, AT Jump Cut, ...) go to O&M only.
- Anything else routes nowhere; remarks are still recorded.

## Vendor selection

1. A site in the vendor override table always uses that vendor.
2. Otherwise the circle decides (South/West or North/East).
3. A row without a circle falls back to its division; if that is unknown too, the AMC destination has no vendor.
`,
	},
	{
		URI:         "siteflow://docs/approvals",
		Name:        "docs_approvals",
		Title:       "Approval chain",
		Description: "From executed work to CCR closure and exclusion.",
		Content: `# Approval chain

1. A team completes its action.
2. Work by AMC raises an approval for Equipment; other teams' work goes to CCR directly once nothing else is open.
3. An approver can complete (approve) or request a recheck; the executing team resubmits by completing again.
4. CCR approval is raised only when every branch on the site is closed and approved.
5. When CCR approves, the site is excluded: it disappears from queues, lists and row views.

Statuses are consolidated per viewer: "Pending at O&M Team; Pending at Vendor (VendorSouth)".
Completed actions are final; reopening is an INVALID_TRANSITION.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
