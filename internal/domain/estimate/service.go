package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/diff"
	"github.com/google/uuid"
)

var ErrClientNotFound = errors.New("client not found")

// ItemInput carries one service line of a create/update request. ID is set
// when the caller edits an already persisted line.
type ItemInput struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	InternalPrice float64 `json:"internal_price"`
	ExternalPrice float64 `json:"external_price"`
	Category      string  `json:"category"`
}

// Input is the full estimate state a create or update request carries.
type Input struct {
	Name        string      `json:"name"`
	ClientID    string      `json:"client_id"`
	Responsible string      `json:"responsible"`
	Notes       string      `json:"notes"`
	Status      Status      `json:"status"`
	TaxEnabled  bool        `json:"tax_enabled"`
	TaxRate     float64     `json:"tax_rate"`
	Items       []ItemInput `json:"items"`
}

// Service owns every estimate mutation. Each mutation reads the pre-image,
// appends it as a snapshot, applies the new values, diffs the two states
// and writes the audit entries, all inside one store transaction.
type Service struct {
	store Store
	feed  audit.Publisher
}

// NewService creates an estimate service. feed may be nil; committed audit
// entries are then not published downstream.
func NewService(store Store, feed audit.Publisher) *Service {
	return &Service{store: store, feed: feed}
}

func validateInput(in Input) error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if !ValidStatus(in.Status) {
		return ErrInvalidStatus
	}
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range in.Items {
		if it.Name == "" {
			return ErrNameRequired
		}
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if it.InternalPrice <= 0 || it.ExternalPrice <= 0 {
			return ErrInvalidPrice
		}
	}
	return nil
}

// Create persists a new estimate and logs its creation. Provided item IDs
// are ignored; every line gets a fresh identity.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (*Estimate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		created   *Estimate
		published []audit.Entry
	)
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		now := time.Now()
		e := &Estimate{
			ID:          uuid.New().String(),
			UserID:      actorID,
			Name:        in.Name,
			ClientID:    in.ClientID,
			Responsible: in.Responsible,
			Notes:       in.Notes,
			Status:      in.Status,
			TaxEnabled:  in.TaxEnabled,
			TaxRate:     in.TaxRate,
			Items:       buildItems(in.Items, nil),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if e.ClientID != "" {
			if _, ok, err := tx.ClientName(ctx, e.ClientID); err != nil {
				return err
			} else if !ok {
				return ErrClientNotFound
			}
		}
		if err := tx.Insert(ctx, e); err != nil {
			return err
		}

		entry := newEntry(e.ID, "", actorID, audit.ActionCreate, "Estimate created", nil)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if e.ClientID != "" {
			mirror := newEntry("", e.ClientID, actorID, audit.ActionCreate,
				fmt.Sprintf("Estimate created: %s", e.Name), nil)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return created, nil
}

// Update applies a full new state to an estimate. The pre-image is
// snapshotted under the next version number before any value changes, and
// the field-level diff between the two states is logged.
func (s *Service) Update(ctx context.Context, actorID, id string, in Input) (*Estimate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		updated   *Estimate
		published []audit.Entry
	)
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		pre, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if pre.UserID != actorID {
			return ErrAccessDenied
		}
		if in.ClientID != "" && in.ClientID != pre.ClientID {
			if _, ok, err := tx.ClientName(ctx, in.ClientID); err != nil {
				return err
			} else if !ok {
				return ErrClientNotFound
			}
		}

		if _, err := appendPreImage(ctx, tx, pre, actorID); err != nil {
			return err
		}

		known := make(map[string]bool, len(pre.Items))
		for _, it := range pre.Items {
			known[it.ID] = true
		}
		post := *pre
		post.Name = in.Name
		post.ClientID = in.ClientID
		post.Responsible = in.Responsible
		post.Notes = in.Notes
		post.Status = in.Status
		post.TaxEnabled = in.TaxEnabled
		post.TaxRate = in.TaxRate
		post.Items = buildItems(in.Items, known)
		post.UpdatedAt = time.Now()
		if err := tx.Update(ctx, &post); err != nil {
			return err
		}

		resolve, err := clientResolver(ctx, tx, pre.ClientID, post.ClientID)
		if err != nil {
			return err
		}
		changes := Changes(pre, &post, resolve)

		entry := newEntry(id, "", actorID, audit.ActionUpdate, "Estimate updated", changes)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if post.ClientID != "" && len(changes) > 0 {
			mirror := newEntry("", post.ClientID, actorID, audit.ActionUpdate,
				fmt.Sprintf("Estimate updated: %s", post.Name), nil)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		updated = &post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return updated, nil
}

// Delete removes an estimate; snapshots, logs, notes and favorites cascade
// with it. Only the mirrored client entry outlives the aggregate.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	var published []audit.Entry
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		pre, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if pre.UserID != actorID {
			return ErrAccessDenied
		}
		if pre.ClientID != "" {
			mirror := newEntry("", pre.ClientID, actorID, audit.ActionDelete,
				fmt.Sprintf("Estimate deleted: %s", pre.Name), nil)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, published)
	return nil
}

// RestoreVersion overlays the whitelisted scalar fields of a historical
// snapshot onto the live estimate and wholesale-replaces its items with the
// snapshot's lines under fresh identities. The pre-restore state is
// snapshotted first, so a restore extends the version chain like any other
// mutation and can itself be undone through it.
func (s *Service) RestoreVersion(ctx context.Context, actorID, id string, version int) (*Estimate, error) {
	var (
		restored  *Estimate
		published []audit.Entry
	)
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		snap, err := tx.GetSnapshot(ctx, id, version)
		if err != nil {
			return err
		}
		live, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if live.UserID != actorID {
			return ErrAccessDenied
		}

		var p Payload
		if err := json.Unmarshal(snap.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if err := p.Validate(); err != nil {
			return err
		}

		if _, err := appendPreImage(ctx, tx, live, actorID); err != nil {
			return err
		}

		post := *live
		post.Name = p.Name
		post.Notes = p.Notes
		post.Responsible = p.Responsible
		post.TaxEnabled = p.TaxEnabled
		post.Status = p.Status
		post.ClientID = p.ClientID
		if post.ClientID != "" {
			// the snapshot may reference a client deleted since; drop the
			// reference rather than fail the restore
			_, ok, err := tx.ClientName(ctx, post.ClientID)
			if err != nil {
				return err
			}
			if !ok {
				post.ClientID = ""
			}
		}
		post.Items = make([]Item, len(p.Items))
		for i, it := range p.Items {
			it.ID = uuid.New().String()
			post.Items[i] = it
		}
		post.UpdatedAt = time.Now()
		if err := tx.Update(ctx, &post); err != nil {
			return err
		}

		entry := newEntry(id, "", actorID, audit.ActionRestore,
			fmt.Sprintf("Version %d restored", version), nil)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if post.ClientID != "" {
			mirror := newEntry("", post.ClientID, actorID, audit.ActionRestore,
				fmt.Sprintf("Version %d restored in estimate: %s", version, post.Name), nil)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		restored = &post
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return restored, nil
}

// Get returns an estimate after checking ownership.
func (s *Service) Get(ctx context.Context, actorID, id string) (*Estimate, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != actorID {
		return nil, ErrAccessDenied
	}
	return e, nil
}

// List returns the actor's estimates matching the filter.
func (s *Service) List(ctx context.Context, actorID string, f Filter, p Page) ([]*Estimate, int, error) {
	return s.store.List(ctx, actorID, f, p)
}

// ListVersions returns an estimate's snapshots ascending by version.
func (s *Service) ListVersions(ctx context.Context, actorID, id string, p Page) ([]*Snapshot, error) {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return s.store.ListSnapshots(ctx, id, p)
}

// GetVersion returns one snapshot.
func (s *Service) GetVersion(ctx context.Context, actorID, id string, version int) (*Snapshot, error) {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return s.store.GetSnapshot(ctx, id, version)
}

// DeleteVersion prunes exactly one snapshot. This is an explicit operator
// action, not a retention policy, and is not itself audited.
func (s *Service) DeleteVersion(ctx context.Context, actorID, id string, version int) error {
	return s.store.Mutate(ctx, func(tx Tx) error {
		e, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if e.UserID != actorID {
			return ErrAccessDenied
		}
		return tx.DeleteSnapshot(ctx, id, version)
	})
}

// Logs returns the estimate's audit trail ascending by time.
func (s *Service) Logs(ctx context.Context, actorID, id string, p Page) ([]audit.Entry, int, error) {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return nil, 0, err
	}
	return s.store.ListLogs(ctx, id, p)
}

// SetFavorite toggles the actor's bookmark. Favorites are out of audit
// scope.
func (s *Service) SetFavorite(ctx context.Context, actorID, id string, favorite bool) error {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return err
	}
	return s.store.SetFavorite(ctx, actorID, id, favorite)
}

func (s *Service) authorize(ctx context.Context, actorID, id string) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if e.UserID != actorID {
		return ErrAccessDenied
	}
	return nil
}

// mutate runs fn transactionally, retrying exactly once when a concurrent
// writer claimed the same snapshot version. The rerun recomputes the next
// version from scratch.
func (s *Service) mutate(ctx context.Context, fn func(tx Tx) error) error {
	err := s.store.Mutate(ctx, fn)
	if errors.Is(err, ErrVersionConflict) {
		err = s.store.Mutate(ctx, fn)
	}
	return err
}

// appendPreImage serializes the estimate as it exists before the mutation
// and appends it under the next version number. Callers must not have
// applied any new values to pre yet.
func appendPreImage(ctx context.Context, tx Tx, pre *Estimate, actorID string) (*Snapshot, error) {
	payload, err := json.Marshal(PayloadOf(pre))
	if err != nil {
		return nil, err
	}
	max, err := tx.MaxVersion(ctx, pre.ID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ID:         uuid.New().String(),
		EstimateID: pre.ID,
		Version:    max + 1,
		ActorID:    actorID,
		Payload:    payload,
		CreatedAt:  time.Now(),
	}
	if err := tx.AppendSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// buildItems materializes request lines. IDs are kept only when they match
// an existing line of the pre-image; everything else gets a fresh identity.
func buildItems(inputs []ItemInput, known map[string]bool) []Item {
	items := make([]Item, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" || !known[id] {
			id = uuid.New().String()
		}
		items[i] = Item{
			ID:            id,
			Name:          in.Name,
			Description:   in.Description,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			InternalPrice: in.InternalPrice,
			ExternalPrice: in.ExternalPrice,
			Category:      in.Category,
		}
	}
	return items
}

func clientResolver(ctx context.Context, tx Tx, clientIDs ...string) (diff.Resolver, error) {
	names := make(map[string]string, len(clientIDs))
	for _, id := range clientIDs {
		if id == "" {
			continue
		}
		if _, done := names[id]; done {
			continue
		}
		name, ok, err := tx.ClientName(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			names[id] = name
		}
	}
	return func(raw string) (string, bool) {
		name, ok := names[raw]
		return name, ok
	}, nil
}

func newEntry(estimateID, clientID, actorID string, action audit.Action, desc string, details []diff.Entry) *audit.Entry {
	return &audit.Entry{
		ID:          uuid.New().String(),
		EstimateID:  estimateID,
		ClientID:    clientID,
		ActorID:     actorID,
		Action:      action,
		Description: desc,
		Details:     details,
		Timestamp:   time.Now(),
	}
}

// publish pushes committed entries onto the audit feed. The feed is
// best-effort; a publish failure never fails the committed mutation.
func (s *Service) publish(ctx context.Context, entries []audit.Entry) {
	if s.feed == nil {
		return
	}
	for _, e := range entries {
		key := e.EstimateID
		if key == "" {
			key = e.ClientID
		}
		if err := s.feed.Publish(ctx, key, e); err != nil {
			log.Printf("[Audit] failed to publish entry %s: %v", e.ID, err)
		}
	}
}
