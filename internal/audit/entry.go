package audit

import (
	"context"
	"time"

	"github.com/dimas1q/quick-estimate/internal/diff"
)

// Action is the closed vocabulary of audited operations.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionRestore    Action = "restore"
	ActionDelete     Action = "delete"
	ActionAddNote    Action = "add-note"
	ActionEditNote   Action = "edit-note"
	ActionDeleteNote Action = "delete-note"
)

// Entry is one immutable audit record. EstimateID is empty for entries
// logged directly against a client. Details carries the field-level diff
// for estimate entries; mirrored client entries carry a description only,
// except note actions which repeat the single note detail.
type Entry struct {
	ID          string       `json:"id"`
	EstimateID  string       `json:"estimate_id,omitempty"`
	ClientID    string       `json:"client_id,omitempty"`
	ActorID     string       `json:"actor_id"`
	Action      Action       `json:"action"`
	Description string       `json:"description"`
	Details     []diff.Entry `json:"details,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Publisher pushes committed audit entries onto the downstream feed.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}
