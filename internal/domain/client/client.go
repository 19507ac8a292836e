package client

import (
	"context"
	"errors"
	"time"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/diff"
)

var (
	ErrNotFound     = errors.New("client not found")
	ErrAccessDenied = errors.New("no access to this client")
	ErrNameRequired = errors.New("name is required")
	ErrHasEstimates = errors.New("client still has estimates attached")
)

// Client is a customer record estimates can reference.
type Client struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Company       string    `json:"company,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	LegalAddress  string    `json:"legal_address,omitempty"`
	ActualAddress string    `json:"actual_address,omitempty"`
	TaxID         string    `json:"tax_id,omitempty"`
	Bank          string    `json:"bank,omitempty"`
	Account       string    `json:"account,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Filter narrows client listings.
type Filter struct {
	Name    string
	Company string
}

// Page bounds a listing.
type Page struct {
	Limit  int
	Offset int
}

// Store is the persistence contract for clients and their audit trail.
type Store interface {
	Get(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context, userID string, f Filter, p Page) ([]*Client, int, error)
	ListLogs(ctx context.Context, clientID string, p Page) ([]audit.Entry, int, error)
	// EstimateCount reports how many estimates reference the client.
	EstimateCount(ctx context.Context, clientID string) (int, error)
	Mutate(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional write surface for client mutations.
type Tx interface {
	Get(ctx context.Context, id string) (*Client, error)
	Insert(ctx context.Context, c *Client) error
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id string) error
	AppendLog(ctx context.Context, e *audit.Entry) error
}

// changeCatalog declares the audited client fields and their wording.
// Client fields have no add/del variants; any difference is an edit with
// the placeholder standing in for absent values.
var changeCatalog = []diff.Field{
	{Name: "name", Kind: diff.Text, EditLabel: "Name changed"},
	{Name: "company", Kind: diff.Text, EditLabel: "Company changed"},
	{Name: "email", Kind: diff.Text, EditLabel: "Email changed"},
	{Name: "phone", Kind: diff.Text, EditLabel: "Phone changed"},
	{Name: "legal_address", Kind: diff.Text, EditLabel: "Legal address changed"},
	{Name: "actual_address", Kind: diff.Text, EditLabel: "Actual address changed"},
	{Name: "tax_id", Kind: diff.Text, EditLabel: "Tax ID changed"},
	{Name: "bank", Kind: diff.Text, EditLabel: "Bank changed"},
	{Name: "account", Kind: diff.Text, EditLabel: "Account changed"},
	{Name: "notes", Kind: diff.Text, EditLabel: "Notes changed"},
}

func stateOf(c *Client) diff.State {
	return diff.State{
		"name":           c.Name,
		"company":        c.Company,
		"email":          c.Email,
		"phone":          c.Phone,
		"legal_address":  c.LegalAddress,
		"actual_address": c.ActualAddress,
		"tax_id":         c.TaxID,
		"bank":           c.Bank,
		"account":        c.Account,
		"notes":          c.Notes,
	}
}

// Changes computes the ordered field-level diff between two client states.
func Changes(old, new *Client) []diff.Entry {
	return diff.Compute(stateOf(old), stateOf(new), changeCatalog, nil)
}
