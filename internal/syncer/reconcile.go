package syncer

import "slices"

// Terminal statuses. A remote record in one of these always wins.
var terminal = []string{"Completed", "Resolved"}

// Draft is the local view of one record.
type Draft struct {
	Status  string   `json:"status"`
	Remarks string   `json:"remarks,omitempty"`
	Photos  []string `json:"photos,omitempty"`
	// Dirty is set while a local edit has not round-tripped.
	Dirty bool `json:"dirty"`
}

// Remote is the authoritative view of one record.
type Remote struct {
	Status  string
	Remarks string
	Photos  []string
}

// IsTerminal reports whether status ends a record's lifecycle.
func IsTerminal(status string) bool {
	return slices.Contains(terminal, status)
}

// Reconcile merges a remote snapshot into a local draft. A terminal remote
// status replaces any local guess. An unacknowledged local status, remarks or
// photos survive a non-terminal refresh; photos are merged.
func Reconcile(local Draft, remote Remote) Draft {
	if !local.Dirty {
		return Draft{Status: remote.Status, Remarks: remote.Remarks, Photos: slices.Clone(remote.Photos)}
	}
	out := Draft{Status: local.Status, Remarks: local.Remarks, Dirty: true}
	if IsTerminal(remote.Status) {
		out.Status = remote.Status
	}
	if out.Remarks == "" {
		out.Remarks = remote.Remarks
	}
	out.Photos = slices.Clone(remote.Photos)
	for _, p := range local.Photos {
		if !slices.Contains(out.Photos, p) {
			out.Photos = append(out.Photos, p)
		}
	}
	return out
}
