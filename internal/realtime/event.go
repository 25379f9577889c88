package realtime

import "context"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpResync is published when notifications may have been lost, for
	// example after the listener reconnects. Every subscriber receives it.
	OpResync Op = "resync"
)

// Event is a row-level change on a watched table.
type Event struct {
	Table   string `json:"table"`
	Op      Op     `json:"op"`
	RowID   string `json:"id"`
	OwnerID string `json:"user_id"`
}

// Filter scopes a subscription to one table and, optionally, one owner.
type Filter struct {
	Table   string
	OwnerID string
}

func (f Filter) Matches(ev Event) bool {
	if ev.Op == OpResync {
		return true
	}
	if ev.Table != f.Table {
		return false
	}
	return f.OwnerID == "" || ev.OwnerID == f.OwnerID
}

// Subscriber delivers change events matching a filter until ctx is done,
// at which point the returned channel is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, error)
}
