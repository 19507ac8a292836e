package estimate

import (
	"context"

	"github.com/dimas1q/quick-estimate/internal/audit"
)

// Store is the persistence contract the service consumes. Reads run against
// the live state; every mutation goes through Mutate so that the snapshot,
// the aggregate update and the audit entries commit or roll back as one
// unit.
type Store interface {
	Get(ctx context.Context, id string) (*Estimate, error)
	List(ctx context.Context, userID string, f Filter, p Page) ([]*Estimate, int, error)
	ListSnapshots(ctx context.Context, estimateID string, p Page) ([]*Snapshot, error)
	GetSnapshot(ctx context.Context, estimateID string, version int) (*Snapshot, error)
	ListLogs(ctx context.Context, estimateID string, p Page) ([]audit.Entry, int, error)
	ListNotes(ctx context.Context, estimateID string) ([]*Note, error)
	SetFavorite(ctx context.Context, userID, estimateID string, favorite bool) error
	Mutate(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional write surface handed to a Mutate callback.
type Tx interface {
	Get(ctx context.Context, id string) (*Estimate, error)
	Insert(ctx context.Context, e *Estimate) error
	// Update persists the scalar fields and wholesale-replaces the item
	// collection.
	Update(ctx context.Context, e *Estimate) error
	Delete(ctx context.Context, id string) error

	MaxVersion(ctx context.Context, estimateID string) (int, error)
	// AppendSnapshot fails with ErrVersionConflict when the version is
	// already taken for the estimate; the constraint lives in the data
	// store, not in application code.
	AppendSnapshot(ctx context.Context, s *Snapshot) error
	GetSnapshot(ctx context.Context, estimateID string, version int) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, estimateID string, version int) error

	AppendLog(ctx context.Context, e *audit.Entry) error
	AppendClientLog(ctx context.Context, e *audit.Entry) error
	// ClientName resolves a client reference to its display name.
	ClientName(ctx context.Context, clientID string) (string, bool, error)

	GetNote(ctx context.Context, noteID string) (*Note, error)
	InsertNote(ctx context.Context, n *Note) error
	UpdateNote(ctx context.Context, n *Note) error
	DeleteNote(ctx context.Context, noteID string) error
}
