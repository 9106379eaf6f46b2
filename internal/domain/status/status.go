// Package status computes the consolidated, role-scoped status text shown for
// a site. It is recomputed from the live action set on every read.
package status

import (
	"sort"
	"strings"

	"github.com/rpggio/siteflow/internal/domain/action"
	"github.com/rpggio/siteflow/internal/domain/observation"
	"github.com/rpggio/siteflow/internal/domain/routing"
	"github.com/rpggio/siteflow/internal/domain/team"
)

// Phase texts of the collapsed view shown to roles with an intermediate
// approver.
const (
	PhasePending          = "Pending"
	PhaseRecheckRequested = "Recheck Requested"
	PhaseApproved         = "Approved"
	Resolved              = "Resolved"
)

const fragmentSep = "; "

// Input is everything the aggregator reads for one site and viewer.
type Input struct {
	Viewer team.Role
	// Actions are the site's actions across all roles. Only those the viewer
	// is a party to are read.
	Actions []action.Action
	// Observation is the viewer's own marker for the site.
	Observation observation.Status
}

// group is a set of duplicate actions merged under the natural dedup key.
type group struct {
	first  action.Action
	ids    map[string]bool
	status action.Status
	vendor string
}

// Compute returns the display status for in.Viewer.
func Compute(in Input) string {
	visible := make([]action.Action, 0, len(in.Actions))
	for _, a := range in.Actions {
		if a.InvolvesRole(in.Viewer) {
			visible = append(visible, a)
		}
	}
	if len(visible) == 0 {
		return string(in.Observation)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.AssignedToRole.Rank() < b.AssignedToRole.Rank()
	})
	groups := dedupe(visible)

	if team.HasIntermediateApprover(in.Viewer) {
		return collapsed(in.Viewer, groups)
	}

	if in.Observation == observation.StatusResolved && !chainOpen(in.Viewer, groups) {
		return Resolved
	}

	var fragments []string
	covered := make(map[*group]bool)
	for _, g := range groups {
		if g.first.IsApproval() {
			continue
		}
		if f := executionFragment(g, groups, covered); f != "" {
			fragments = append(fragments, f)
		}
	}
	for _, g := range groups {
		if !g.first.IsApproval() {
			continue
		}
		switch g.status {
		case action.StatusPending:
			fragments = append(fragments, "Pending "+string(g.first.AssignedToRole)+" Approval")
		case action.StatusInProgress:
			if !covered[g] {
				fragments = append(fragments, "Recheck Requested at "+g.first.SubmittedByRole.TeamName())
			}
		}
	}

	if len(fragments) == 0 {
		if in.Observation == observation.StatusPending {
			return PhasePending
		}
		return Resolved
	}
	return strings.Join(unique(fragments), fragmentSep)
}

// dedupe merges duplicate submissions. A merged group is Completed if any
// member is, otherwise In Progress if any member is.
func dedupe(actions []action.Action) []*group {
	byKey := make(map[action.NaturalKey]*group)
	var out []*group
	for _, a := range actions {
		k := a.NaturalKey()
		g, ok := byKey[k]
		if !ok {
			g = &group{first: a, ids: make(map[string]bool), status: a.Status}
			byKey[k] = g
			out = append(out, g)
		}
		g.ids[a.ID] = true
		g.status = merge(g.status, a.Status)
		if a.AssignedToVendor != "" {
			g.vendor = a.AssignedToVendor
		}
	}
	return out
}

func merge(a, b action.Status) action.Status {
	switch {
	case a == action.StatusCompleted || b == action.StatusCompleted:
		return action.StatusCompleted
	case a == action.StatusInProgress || b == action.StatusInProgress:
		return action.StatusInProgress
	default:
		return action.StatusPending
	}
}

func executionFragment(g *group, groups []*group, covered map[*group]bool) string {
	label := routing.Label(g.first.AssignedToRole, g.vendor)
	if g.status != action.StatusCompleted {
		return "Pending at " + label
	}
	linked := linkedApprovals(g, groups)
	for _, ap := range linked {
		covered[ap] = true
	}
	for _, ap := range linked {
		if ap.status == action.StatusInProgress {
			return "Pending at " + label
		}
	}
	for _, ap := range linked {
		if ap.status == action.StatusPending {
			return "Resolved at " + label
		}
	}
	return ""
}

// linkedApprovals finds approvals raised from an execution group, by origin
// action or, for approvals without one, by submitting role.
func linkedApprovals(exec *group, groups []*group) []*group {
	var out []*group
	for _, g := range groups {
		if !g.first.IsApproval() {
			continue
		}
		origin := g.first.OriginActionID
		switch {
		case origin != "" && exec.ids[origin]:
			out = append(out, g)
		case origin == "" && g.first.SubmittedByRole == exec.first.AssignedToRole:
			out = append(out, g)
		}
	}
	return out
}

// chainOpen reports whether work the viewer routed, submitted or must sign is
// still open.
func chainOpen(viewer team.Role, groups []*group) bool {
	for _, g := range groups {
		a := g.first
		if g.status == action.StatusCompleted {
			continue
		}
		if a.SubmittedByRole == viewer || a.AssignedByRole == viewer || a.AssignedToRole == viewer {
			return true
		}
	}
	return false
}

// collapsed reduces the view to the viewer's own approval-chain phase.
func collapsed(viewer team.Role, groups []*group) string {
	var latest *group
	hasExecution := false
	for _, g := range groups {
		if g.first.IsApproval() && g.first.SubmittedByRole == viewer {
			if latest == nil || !g.first.CreatedAt.Before(latest.first.CreatedAt) {
				latest = g
			}
		}
		if !g.first.IsApproval() && g.first.AssignedToRole == viewer {
			hasExecution = true
		}
	}
	if latest == nil {
		if hasExecution {
			return PhasePending
		}
		return ""
	}
	switch latest.status {
	case action.StatusInProgress:
		return PhaseRecheckRequested
	case action.StatusCompleted:
		return PhaseApproved
	default:
		return "Pending " + string(latest.first.AssignedToRole) + " Approval"
	}
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
