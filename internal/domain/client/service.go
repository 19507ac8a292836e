package client

import (
	"context"
	"log"
	"time"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/diff"
	"github.com/google/uuid"
)

// Input is the full client state a create or update request carries.
type Input struct {
	Name          string `json:"name"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LegalAddress  string `json:"legal_address"`
	ActualAddress string `json:"actual_address"`
	TaxID         string `json:"tax_id"`
	Bank          string `json:"bank"`
	Account       string `json:"account"`
	Notes         string `json:"notes"`
}

// Service owns client mutations and their audit trail.
type Service struct {
	store Store
	feed  audit.Publisher
}

// NewService creates a client service. feed may be nil.
func NewService(store Store, feed audit.Publisher) *Service {
	return &Service{store: store, feed: feed}
}

// Create persists a new client and logs its creation.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (*Client, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}

	var (
		created   *Client
		published []audit.Entry
	)
	err := s.store.Mutate(ctx, func(tx Tx) error {
		published = published[:0]
		now := time.Now()
		c := &Client{
			ID:            uuid.New().String(),
			UserID:        actorID,
			Name:          in.Name,
			Company:       in.Company,
			Email:         in.Email,
			Phone:         in.Phone,
			LegalAddress:  in.LegalAddress,
			ActualAddress: in.ActualAddress,
			TaxID:         in.TaxID,
			Bank:          in.Bank,
			Account:       in.Account,
			Notes:         in.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Insert(ctx, c); err != nil {
			return err
		}
		entry := newEntry(c.ID, actorID, audit.ActionCreate, "Client created", nil)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return created, nil
}

// Update applies a full new state and logs the field-level diff. When
// nothing differs no audit entry is written.
func (s *Service) Update(ctx context.Context, actorID, id string, in Input) (*Client, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}

	var (
		updated   *Client
		published []audit.Entry
	)
	err := s.store.Mutate(ctx, func(tx Tx) error {
		published = published[:0]
		pre, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if pre.UserID != actorID {
			return ErrAccessDenied
		}

		post := *pre
		post.Name = in.Name
		post.Company = in.Company
		post.Email = in.Email
		post.Phone = in.Phone
		post.LegalAddress = in.LegalAddress
		post.ActualAddress = in.ActualAddress
		post.TaxID = in.TaxID
		post.Bank = in.Bank
		post.Account = in.Account
		post.Notes = in.Notes
		post.UpdatedAt = time.Now()
		if err := tx.Update(ctx, &post); err != nil {
			return err
		}

		if changes := Changes(pre, &post); len(changes) > 0 {
			entry := newEntry(id, actorID, audit.ActionUpdate, "Client updated", changes)
			if err := tx.AppendLog(ctx, entry); err != nil {
				return err
			}
			published = append(published, *entry)
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

// Delete removes a client. It is refused while any estimate still
// references the client.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	n, err := s.store.EstimateCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasEstimates
	}
	return s.store.Mutate(ctx, func(tx Tx) error {
		pre, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if pre.UserID != actorID {
			return ErrAccessDenied
		}
		return tx.Delete(ctx, id)
	})
}

// Get returns a client after checking ownership.
func (s *Service) Get(ctx context.Context, actorID, id string) (*Client, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != actorID {
		return nil, ErrAccessDenied
	}
	return c, nil
}

// List returns the actor's clients matching the filter.
func (s *Service) List(ctx context.Context, actorID string, f Filter, p Page) ([]*Client, int, error) {
	return s.store.List(ctx, actorID, f, p)
}

// Logs returns the client's audit trail ascending by time, including the
// entries mirrored from its estimates.
func (s *Service) Logs(ctx context.Context, actorID, id string, p Page) ([]audit.Entry, int, error) {
	if _, err := s.Get(ctx, actorID, id); err != nil {
		return nil, 0, err
	}
	return s.store.ListLogs(ctx, id, p)
}

func newEntry(clientID, actorID string, action audit.Action, desc string, details []diff.Entry) *audit.Entry {
	return &audit.Entry{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		ActorID:     actorID,
		Action:      action,
		Description: desc,
		Details:     details,
		Timestamp:   time.Now(),
	}
}

func (s *Service) publish(ctx context.Context, entries []audit.Entry) {
	if s.feed == nil {
		return
	}
	for _, e := range entries {
		if err := s.feed.Publish(ctx, e.ClientID, e); err != nil {
			log.Printf("[Audit] failed to publish entry %s: %v", e.ID, err)
		}
	}
}
