package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/domain/estimate"
	"github.com/lib/pq"
)

// PostgresEstimateStore implements estimate.Store over PostgreSQL.
type PostgresEstimateStore struct {
	db *sql.DB
}

var _ estimate.Store = (*PostgresEstimateStore)(nil)

func NewPostgresEstimateStore(db *sql.DB) *PostgresEstimateStore {
	return &PostgresEstimateStore{db: db}
}

func (s *PostgresEstimateStore) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	return getEstimate(ctx, s.db, id)
}

func (s *PostgresEstimateStore) List(ctx context.Context, userID string, f estimate.Filter, p estimate.Page) ([]*estimate.Estimate, int, error) {
	p = normalizePage(p)

	where := "WHERE e.user_id = $1"
	args := []any{userID}
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		where += fmt.Sprintf(" AND e.name ILIKE $%d", len(args))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where += fmt.Sprintf(" AND e.client_id = $%d", len(args))
	}
	if f.FavoriteOf != "" {
		args = append(args, f.FavoriteOf)
		where += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM estimate_favorites fv
			WHERE fv.estimate_id = e.id AND fv.user_id = $%d)`, len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM estimates e "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Limit, p.Offset)
	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.name, e.client_id, e.responsible,
			e.notes, e.status, e.tax_enabled, e.tax_rate, e.created_at, e.updated_at,
			EXISTS (SELECT 1 FROM estimate_favorites f
				WHERE f.estimate_id = e.id AND f.user_id = $1)
		FROM estimates e %s
		ORDER BY e.created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var estimates []*estimate.Estimate
	var ids []string
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, 0, err
		}
		estimates = append(estimates, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := attachItems(ctx, s.db, estimates, ids); err != nil {
		return nil, 0, err
	}
	return estimates, total, nil
}

func (s *PostgresEstimateStore) ListSnapshots(ctx context.Context, estimateID string, p estimate.Page) ([]*estimate.Snapshot, error) {
	p = normalizePage(p)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, estimate_id, version, actor_id, payload, created_at
		 FROM estimate_snapshots
		 WHERE estimate_id = $1
		 ORDER BY version ASC
		 LIMIT $2 OFFSET $3`,
		estimateID, p.Limit, p.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*estimate.Snapshot
	for rows.Next() {
		var sn estimate.Snapshot
		if err := rows.Scan(&sn.ID, &sn.EstimateID, &sn.Version, &sn.ActorID, &sn.Payload, &sn.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, &sn)
	}
	return snaps, rows.Err()
}

func (s *PostgresEstimateStore) GetSnapshot(ctx context.Context, estimateID string, version int) (*estimate.Snapshot, error) {
	return getSnapshot(ctx, s.db, estimateID, version)
}

func (s *PostgresEstimateStore) ListLogs(ctx context.Context, estimateID string, p estimate.Page) ([]audit.Entry, int, error) {
	p = normalizePage(p)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM estimate_change_logs WHERE estimate_id = $1", estimateID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, estimate_id, actor_id, action, description, details, timestamp
		 FROM estimate_change_logs
		 WHERE estimate_id = $1
		 ORDER BY timestamp ASC
		 LIMIT $2 OFFSET $3`,
		estimateID, p.Limit, p.Offset,
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
		if err := rows.Scan(&e.ID, &e.EstimateID, &e.ActorID, &e.Action, &e.Description, &details, &e.Timestamp); err != nil {
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

func (s *PostgresEstimateStore) ListNotes(ctx context.Context, estimateID string) ([]*estimate.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, estimate_id, user_id, text, created_at, updated_at
		 FROM estimate_notes
		 WHERE estimate_id = $1
		 ORDER BY created_at DESC`,
		estimateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*estimate.Note
	for rows.Next() {
		var n estimate.Note
		if err := rows.Scan(&n.ID, &n.EstimateID, &n.UserID, &n.Text, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

func (s *PostgresEstimateStore) SetFavorite(ctx context.Context, userID, estimateID string, favorite bool) error {
	if favorite {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO estimate_favorites (user_id, estimate_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			userID, estimateID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM estimate_favorites WHERE user_id = $1 AND estimate_id = $2",
		userID, estimateID)
	return err
}

// Mutate runs fn inside one transaction. The snapshot, the aggregate update
// and the audit entries written through the Tx commit or roll back as one
// unit.
func (s *PostgresEstimateStore) Mutate(ctx context.Context, fn func(tx estimate.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&estimateTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// estimateTx implements estimate.Tx over one *sql.Tx.
type estimateTx struct {
	tx *sql.Tx
}

func (t *estimateTx) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	return getEstimate(ctx, t.tx, id)
}

func (t *estimateTx) Insert(ctx context.Context, e *estimate.Estimate) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO estimates (id, user_id, name, client_id, responsible, notes,
			status, tax_enabled, tax_rate, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, e.Name, nullable(e.ClientID), e.Responsible, e.Notes,
		string(e.Status), e.TaxEnabled, e.TaxRate, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return insertItems(ctx, t.tx, e.ID, e.Items)
}

func (t *estimateTx) Update(ctx context.Context, e *estimate.Estimate) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE estimates SET name = $2, client_id = $3, responsible = $4,
			notes = $5, status = $6, tax_enabled = $7, tax_rate = $8, updated_at = $9
		 WHERE id = $1`,
		e.ID, e.Name, nullable(e.ClientID), e.Responsible,
		e.Notes, string(e.Status), e.TaxEnabled, e.TaxRate, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrNotFound
	}
	// wholesale item replace
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM estimate_items WHERE estimate_id = $1", e.ID); err != nil {
		return err
	}
	return insertItems(ctx, t.tx, e.ID, e.Items)
}

func (t *estimateTx) Delete(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM estimates WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrNotFound
	}
	return nil
}

func (t *estimateTx) MaxVersion(ctx context.Context, estimateID string) (int, error) {
	var max int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM estimate_snapshots WHERE estimate_id = $1",
		estimateID,
	).Scan(&max)
	return max, err
}

func (t *estimateTx) AppendSnapshot(ctx context.Context, sn *estimate.Snapshot) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO estimate_snapshots (id, estimate_id, version, actor_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sn.ID, sn.EstimateID, sn.Version, sn.ActorID, []byte(sn.Payload), sn.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: version %d", estimate.ErrVersionConflict, sn.Version)
	}
	return err
}

func (t *estimateTx) GetSnapshot(ctx context.Context, estimateID string, version int) (*estimate.Snapshot, error) {
	return getSnapshot(ctx, t.tx, estimateID, version)
}

func (t *estimateTx) DeleteSnapshot(ctx context.Context, estimateID string, version int) error {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM estimate_snapshots WHERE estimate_id = $1 AND version = $2",
		estimateID, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return estimate.ErrVersionNotFound
	}
	return nil
}

func (t *estimateTx) AppendLog(ctx context.Context, e *audit.Entry) error {
	details, err := marshalDetails(e)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO estimate_change_logs (id, estimate_id, actor_id, action, description, details, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.EstimateID, e.ActorID, string(e.Action), e.Description, details, e.Timestamp,
	)
	return err
}

func (t *estimateTx) AppendClientLog(ctx context.Context, e *audit.Entry) error {
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

func (t *estimateTx) ClientName(ctx context.Context, clientID string) (string, bool, error) {
	var name string
	err := t.tx.QueryRowContext(ctx,
		"SELECT name FROM clients WHERE id = $1", clientID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (t *estimateTx) GetNote(ctx context.Context, noteID string) (*estimate.Note, error) {
	var n estimate.Note
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, estimate_id, user_id, text, created_at, updated_at
		 FROM estimate_notes WHERE id = $1`, noteID,
	).Scan(&n.ID, &n.EstimateID, &n.UserID, &n.Text, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, estimate.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (t *estimateTx) InsertNote(ctx context.Context, n *estimate.Note) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO estimate_notes (id, estimate_id, user_id, text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.EstimateID, n.UserID, n.Text, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (t *estimateTx) UpdateNote(ctx context.Context, n *estimate.Note) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE estimate_notes SET text = $2, updated_at = $3 WHERE id = $1",
		n.ID, n.Text, n.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return estimate.ErrNoteNotFound
	}
	return nil
}

func (t *estimateTx) DeleteNote(ctx context.Context, noteID string) error {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM estimate_notes WHERE id = $1", noteID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return estimate.ErrNoteNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEstimate(s scanner) (*estimate.Estimate, error) {
	var (
		e        estimate.Estimate
		clientID sql.NullString
		status   string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Name, &clientID, &e.Responsible,
		&e.Notes, &status, &e.TaxEnabled, &e.TaxRate, &e.CreatedAt, &e.UpdatedAt,
		&e.IsFavorite); err != nil {
		return nil, err
	}
	e.ClientID = clientID.String
	e.Status = estimate.Status(status)
	return &e, nil
}

func getEstimate(ctx context.Context, q dbtx, id string) (*estimate.Estimate, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, client_id, responsible, notes, status,
			tax_enabled, tax_rate, created_at, updated_at, false
		 FROM estimates WHERE id = $1`, id)
	e, err := scanEstimate(row)
	if err == sql.ErrNoRows {
		return nil, estimate.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, q, []*estimate.Estimate{e}, []string{id}); err != nil {
		return nil, err
	}
	return e, nil
}

func getSnapshot(ctx context.Context, q dbtx, estimateID string, version int) (*estimate.Snapshot, error) {
	var sn estimate.Snapshot
	err := q.QueryRowContext(ctx,
		`SELECT id, estimate_id, version, actor_id, payload, created_at
		 FROM estimate_snapshots WHERE estimate_id = $1 AND version = $2`,
		estimateID, version,
	).Scan(&sn.ID, &sn.EstimateID, &sn.Version, &sn.ActorID, &sn.Payload, &sn.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, estimate.ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

func attachItems(ctx context.Context, q dbtx, estimates []*estimate.Estimate, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT estimate_id, id, name, description, quantity, unit,
			internal_price, external_price, category
		 FROM estimate_items
		 WHERE estimate_id = ANY($1)
		 ORDER BY estimate_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	byID := make(map[string]*estimate.Estimate, len(estimates))
	for _, e := range estimates {
		byID[e.ID] = e
	}
	for rows.Next() {
		var (
			owner string
			it    estimate.Item
		)
		if err := rows.Scan(&owner, &it.ID, &it.Name, &it.Description, &it.Quantity,
			&it.Unit, &it.InternalPrice, &it.ExternalPrice, &it.Category); err != nil {
			return err
		}
		if e, ok := byID[owner]; ok {
			e.Items = append(e.Items, it)
		}
	}
	return rows.Err()
}

func insertItems(ctx context.Context, q dbtx, estimateID string, items []estimate.Item) error {
	for i, it := range items {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO estimate_items (id, estimate_id, position, name, description,
				quantity, unit, internal_price, external_price, category)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, estimateID, i, it.Name, it.Description,
			it.Quantity, it.Unit, it.InternalPrice, it.ExternalPrice, it.Category,
		); err != nil {
			return err
		}
	}
	return nil
}

func marshalDetails(e *audit.Entry) ([]byte, error) {
	if len(e.Details) == 0 {
		return nil, nil
	}
	return json.Marshal(e.Details)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func normalizePage(p estimate.Page) estimate.Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
