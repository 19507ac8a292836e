package estimate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("estimate not found")
	ErrVersionNotFound = errors.New("version not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrAccessDenied    = errors.New("no access to this estimate")
	ErrVersionConflict = errors.New("snapshot version conflict")
	ErrNameRequired    = errors.New("name is required")
	ErrNoItems         = errors.New("estimate must contain at least one service")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrBadPayload      = errors.New("malformed snapshot payload")
)

// Status is the estimate lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// StatusLabels renders raw status values as display text in change entries.
var StatusLabels = map[string]string{
	string(StatusDraft):     "Draft",
	string(StatusSent):      "Sent",
	string(StatusApproved):  "Approved",
	string(StatusPaid):      "Paid",
	string(StatusCancelled): "Cancelled",
}

// ValidStatus reports whether s is one of the known states.
func ValidStatus(s Status) bool {
	_, ok := StatusLabels[string(s)]
	return ok
}

// Item is one service line of an estimate. ID is assigned at creation time
// and stays stable across updates.
type Item struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	InternalPrice float64 `json:"internal_price"`
	ExternalPrice float64 `json:"external_price"`
	Category      string  `json:"category,omitempty"`
}

// Estimate is the live, mutable quote record. ClientID is empty when the
// estimate is not tied to a client.
type Estimate struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	ClientID    string    `json:"client_id,omitempty"`
	Responsible string    `json:"responsible,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Status      Status    `json:"status"`
	TaxEnabled  bool      `json:"tax_enabled"`
	TaxRate     float64   `json:"tax_rate"`
	Items       []Item    `json:"items"`
	IsFavorite  bool      `json:"is_favorite,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payload is the snapshot document: the estimate's scalar fields plus its
// line items, serialized as they existed immediately before a mutation.
type Payload struct {
	Name        string  `json:"name"`
	ClientID    string  `json:"client_id,omitempty"`
	Responsible string  `json:"responsible,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	Status      Status  `json:"status"`
	TaxEnabled  bool    `json:"tax_enabled"`
	TaxRate     float64 `json:"tax_rate"`
	Items       []Item  `json:"items"`
}

// PayloadOf captures the pre-image of an estimate.
func PayloadOf(e *Estimate) Payload {
	items := make([]Item, len(e.Items))
	copy(items, e.Items)
	return Payload{
		Name:        e.Name,
		ClientID:    e.ClientID,
		Responsible: e.Responsible,
		Notes:       e.Notes,
		Status:      e.Status,
		TaxEnabled:  e.TaxEnabled,
		TaxRate:     e.TaxRate,
		Items:       items,
	}
}

// Validate checks a payload before it is restored onto a live estimate.
func (p Payload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: %s", ErrBadPayload, ErrNameRequired)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: %s", ErrBadPayload, ErrNoItems)
	}
	for _, it := range p.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: service %s", ErrBadPayload, ErrNameRequired)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: %s", ErrBadPayload, ErrInvalidQuantity)
		}
	}
	return nil
}

// Snapshot is an immutable, versioned pre-image of an estimate.
type Snapshot struct {
	ID         string          `json:"id"`
	EstimateID string          `json:"estimate_id"`
	Version    int             `json:"version"`
	ActorID    string          `json:"actor_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Note is a free-text remark attached to an estimate. Note mutations are
// audited; the note rows themselves are not versioned.
type Note struct {
	ID         string    `json:"id"`
	EstimateID string    `json:"estimate_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows estimate listings.
type Filter struct {
	Name       string
	ClientID   string
	FavoriteOf string
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}
