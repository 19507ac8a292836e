package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/domain/client"
)

// PostgresClientStore implements client.Store over PostgreSQL.
type PostgresClientStore struct {
	db *sql.DB
}

var _ client.Store = (*PostgresClientStore)(nil)

func NewPostgresClientStore(db *sql.DB) *PostgresClientStore {
	return &PostgresClientStore{db: db}
}

func (s *PostgresClientStore) Get(ctx context.Context, id string) (*client.Client, error) {
	return getClient(ctx, s.db, id)
}

func (s *PostgresClientStore) List(ctx context.Context, userID string, f client.Filter, p client.Page) ([]*client.Client, int, error) {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}

	where := "WHERE user_id = $1"
	args := []any{userID}
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if f.Company != "" {
		args = append(args, "%"+f.Company+"%")
		where += fmt.Sprintf(" AND company ILIKE $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clients "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Limit, p.Offset)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, user_id, name, company, email, phone, legal_address,
			actual_address, tax_id, bank, account, notes, created_at, updated_at
		 FROM clients %s
		 ORDER BY name
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []*client.Client
	for rows.Next() {
		var c client.Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Company, &c.Email, &c.Phone,
			&c.LegalAddress, &c.ActualAddress, &c.TaxID, &c.Bank, &c.Account,
			&c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		clients = append(clients, &c)
	}
	return clients, total, rows.Err()
}

func (s *PostgresClientStore) ListLogs(ctx context.Context, clientID string, p client.Page) ([]audit.Entry, int, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM client_change_logs WHERE client_id = $1", clientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, actor_id, action, description, details, timestamp
		 FROM client_change_logs
		 WHERE client_id = $1
		 ORDER BY timestamp ASC
		 LIMIT $2 OFFSET $3`,
		clientID, p.Limit, p.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &e.ActorID, &e.Action, &e.Description, &details, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		if details != nil {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, err
			}
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (s *PostgresClientStore) EstimateCount(ctx context.Context, clientID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM estimates WHERE client_id = $1", clientID,
	).Scan(&n)
	return n, err
}

func (s *PostgresClientStore) Mutate(ctx context.Context, fn func(tx client.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&clientTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type clientTx struct {
	tx *sql.Tx
}

func (t *clientTx) Get(ctx context.Context, id string) (*client.Client, error) {
	return getClient(ctx, t.tx, id)
}

func (t *clientTx) Insert(ctx context.Context, c *client.Client) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO clients (id, user_id, name, company, email, phone, legal_address,
			actual_address, tax_id, bank, account, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.ID, c.UserID, c.Name, c.Company, c.Email, c.Phone, c.LegalAddress,
		c.ActualAddress, c.TaxID, c.Bank, c.Account, c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (t *clientTx) Update(ctx context.Context, c *client.Client) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE clients SET name = $2, company = $3, email = $4, phone = $5,
			legal_address = $6, actual_address = $7, tax_id = $8, bank = $9,
			account = $10, notes = $11, updated_at = $12
		 WHERE id = $1`,
		c.ID, c.Name, c.Company, c.Email, c.Phone, c.LegalAddress,
		c.ActualAddress, c.TaxID, c.Bank, c.Account, c.Notes, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (t *clientTx) Delete(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (t *clientTx) AppendLog(ctx context.Context, e *audit.Entry) error {
	details, err := marshalDetails(e)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO client_change_logs (id, client_id, actor_id, action, description, details, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ClientID, e.ActorID, string(e.Action), e.Description, details, e.Timestamp,
	)
	return err
}

func getClient(ctx context.Context, q dbtx, id string) (*client.Client, error) {
	var c client.Client
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, company, email, phone, legal_address,
			actual_address, tax_id, bank, account, notes, created_at, updated_at
		 FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Company, &c.Email, &c.Phone,
		&c.LegalAddress, &c.ActualAddress, &c.TaxID, &c.Bank, &c.Account,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, client.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
