package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/domain/client"
	"github.com/dimas1q/quick-estimate/internal/domain/estimate"
	"github.com/dimas1q/quick-estimate/internal/domain/user"
)

// Memory holds an in-memory dataset with the same semantics as the Postgres
// stores, including transactional rollback and the snapshot version
// uniqueness constraint. The per-domain stores returned by Estimates,
// Clients and Users share it, so cross-aggregate behavior (client name
// resolution, estimate counts, mirrored logs) works the same way it does
// against a single database. It backs the domain tests.
type Memory struct {
	mu         sync.Mutex
	estimates  map[string]*estimate.Estimate
	snapshots  map[string][]*estimate.Snapshot
	logs       map[string][]audit.Entry
	clientLogs map[string][]audit.Entry
	clients    map[string]*client.Client
	users      map[string]*user.User
	notes      map[string]*estimate.Note
	favorites  map[string]map[string]bool

	// SnapshotHook, when set, runs before every snapshot append. Tests use
	// it to inject version conflicts.
	SnapshotHook func(s *estimate.Snapshot) error
}

func NewMemory() *Memory {
	return &Memory{
		estimates:  make(map[string]*estimate.Estimate),
		snapshots:  make(map[string][]*estimate.Snapshot),
		logs:       make(map[string][]audit.Entry),
		clientLogs: make(map[string][]audit.Entry),
		clients:    make(map[string]*client.Client),
		users:      make(map[string]*user.User),
		notes:      make(map[string]*estimate.Note),
		favorites:  make(map[string]map[string]bool),
	}
}

func (m *Memory) Estimates() *MemoryEstimateStore { return &MemoryEstimateStore{m: m} }
func (m *Memory) Clients() *MemoryClientStore     { return &MemoryClientStore{m: m} }
func (m *Memory) Users() *MemoryUserStore         { return &MemoryUserStore{m: m} }

// ==============================
// Estimate store
// ==============================

type MemoryEstimateStore struct {
	m *Memory
}

var _ estimate.Store = (*MemoryEstimateStore)(nil)

func (s *MemoryEstimateStore) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.getEstimate(id)
}

func (s *MemoryEstimateStore) List(ctx context.Context, userID string, f estimate.Filter, p estimate.Page) ([]*estimate.Estimate, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var all []*estimate.Estimate
	for _, e := range s.m.estimates {
		if e.UserID != userID {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.ClientID != "" && e.ClientID != f.ClientID {
			continue
		}
		if f.FavoriteOf != "" && !s.m.favorites[f.FavoriteOf][e.ID] {
			continue
		}
		c := copyEstimate(e)
		c.IsFavorite = s.m.favorites[userID][e.ID]
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return page(all, p.Limit, p.Offset), total, nil
}

func (s *MemoryEstimateStore) ListSnapshots(ctx context.Context, estimateID string, p estimate.Page) ([]*estimate.Snapshot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	snaps := make([]*estimate.Snapshot, len(s.m.snapshots[estimateID]))
	copy(snaps, s.m.snapshots[estimateID])
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Version < snaps[j].Version })
	return page(snaps, p.Limit, p.Offset), nil
}

func (s *MemoryEstimateStore) GetSnapshot(ctx context.Context, estimateID string, version int) (*estimate.Snapshot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.getSnapshot(estimateID, version)
}

func (s *MemoryEstimateStore) ListLogs(ctx context.Context, estimateID string, p estimate.Page) ([]audit.Entry, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	entries := s.m.logs[estimateID]
	return page(entries, p.Limit, p.Offset), len(entries), nil
}

func (s *MemoryEstimateStore) ListNotes(ctx context.Context, estimateID string) ([]*estimate.Note, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var notes []*estimate.Note
	for _, n := range s.m.notes {
		if n.EstimateID == estimateID {
			c := *n
			notes = append(notes, &c)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

func (s *MemoryEstimateStore) SetFavorite(ctx context.Context, userID, estimateID string, favorite bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if favorite {
		if s.m.favorites[userID] == nil {
			s.m.favorites[userID] = make(map[string]bool)
		}
		s.m.favorites[userID][estimateID] = true
	} else {
		delete(s.m.favorites[userID], estimateID)
	}
	return nil
}

func (s *MemoryEstimateStore) Mutate(ctx context.Context, fn func(tx estimate.Tx) error) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	undo := s.m.clone()
	if err := fn(&memoryEstimateTx{m: s.m}); err != nil {
		s.m.restore(undo)
		return err
	}
	return nil
}

// memoryEstimateTx runs under the store lock held by Mutate.
type memoryEstimateTx struct {
	m *Memory
}

var _ estimate.Tx = (*memoryEstimateTx)(nil)

func (t *memoryEstimateTx) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	return t.m.getEstimate(id)
}

func (t *memoryEstimateTx) Insert(ctx context.Context, e *estimate.Estimate) error {
	t.m.estimates[e.ID] = copyEstimate(e)
	return nil
}

func (t *memoryEstimateTx) Update(ctx context.Context, e *estimate.Estimate) error {
	if _, ok := t.m.estimates[e.ID]; !ok {
		return estimate.ErrNotFound
	}
	t.m.estimates[e.ID] = copyEstimate(e)
	return nil
}

func (t *memoryEstimateTx) Delete(ctx context.Context, id string) error {
	if _, ok := t.m.estimates[id]; !ok {
		return estimate.ErrNotFound
	}
	delete(t.m.estimates, id)
	delete(t.m.snapshots, id)
	delete(t.m.logs, id)
	for nid, n := range t.m.notes {
		if n.EstimateID == id {
			delete(t.m.notes, nid)
		}
	}
	for _, favs := range t.m.favorites {
		delete(favs, id)
	}
	return nil
}

func (t *memoryEstimateTx) MaxVersion(ctx context.Context, estimateID string) (int, error) {
	max := 0
	for _, s := range t.m.snapshots[estimateID] {
		if s.Version > max {
			max = s.Version
		}
	}
	return max, nil
}

func (t *memoryEstimateTx) AppendSnapshot(ctx context.Context, s *estimate.Snapshot) error {
	if t.m.SnapshotHook != nil {
		if err := t.m.SnapshotHook(s); err != nil {
			return err
		}
	}
	for _, existing := range t.m.snapshots[s.EstimateID] {
		if existing.Version == s.Version {
			return fmt.Errorf("%w: version %d", estimate.ErrVersionConflict, s.Version)
		}
	}
	c := *s
	t.m.snapshots[s.EstimateID] = append(t.m.snapshots[s.EstimateID], &c)
	return nil
}

func (t *memoryEstimateTx) GetSnapshot(ctx context.Context, estimateID string, version int) (*estimate.Snapshot, error) {
	return t.m.getSnapshot(estimateID, version)
}

func (t *memoryEstimateTx) DeleteSnapshot(ctx context.Context, estimateID string, version int) error {
	snaps := t.m.snapshots[estimateID]
	for i, s := range snaps {
		if s.Version == version {
			t.m.snapshots[estimateID] = append(snaps[:i:i], snaps[i+1:]...)
			return nil
		}
	}
	return estimate.ErrVersionNotFound
}

func (t *memoryEstimateTx) AppendLog(ctx context.Context, e *audit.Entry) error {
	t.m.logs[e.EstimateID] = append(t.m.logs[e.EstimateID], *e)
	return nil
}

func (t *memoryEstimateTx) AppendClientLog(ctx context.Context, e *audit.Entry) error {
	t.m.clientLogs[e.ClientID] = append(t.m.clientLogs[e.ClientID], *e)
	return nil
}

func (t *memoryEstimateTx) ClientName(ctx context.Context, clientID string) (string, bool, error) {
	c, ok := t.m.clients[clientID]
	if !ok {
		return "", false, nil
	}
	return c.Name, true, nil
}

func (t *memoryEstimateTx) GetNote(ctx context.Context, noteID string) (*estimate.Note, error) {
	n, ok := t.m.notes[noteID]
	if !ok {
		return nil, estimate.ErrNoteNotFound
	}
	c := *n
	return &c, nil
}

func (t *memoryEstimateTx) InsertNote(ctx context.Context, n *estimate.Note) error {
	c := *n
	t.m.notes[n.ID] = &c
	return nil
}

func (t *memoryEstimateTx) UpdateNote(ctx context.Context, n *estimate.Note) error {
	if _, ok := t.m.notes[n.ID]; !ok {
		return estimate.ErrNoteNotFound
	}
	c := *n
	t.m.notes[n.ID] = &c
	return nil
}

func (t *memoryEstimateTx) DeleteNote(ctx context.Context, noteID string) error {
	if _, ok := t.m.notes[noteID]; !ok {
		return estimate.ErrNoteNotFound
	}
	delete(t.m.notes, noteID)
	return nil
}

// ==============================
// Client store
// ==============================

type MemoryClientStore struct {
	m *Memory
}

var _ client.Store = (*MemoryClientStore)(nil)

func (s *MemoryClientStore) Get(ctx context.Context, id string) (*client.Client, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.getClient(id)
}

func (s *MemoryClientStore) List(ctx context.Context, userID string, f client.Filter, p client.Page) ([]*client.Client, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var all []*client.Client
	for _, c := range s.m.clients {
		if c.UserID != userID {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Company != "" && !strings.Contains(strings.ToLower(c.Company), strings.ToLower(f.Company)) {
			continue
		}
		cc := *c
		all = append(all, &cc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, p.Limit, p.Offset), len(all), nil
}

func (s *MemoryClientStore) ListLogs(ctx context.Context, clientID string, p client.Page) ([]audit.Entry, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	entries := s.m.clientLogs[clientID]
	return page(entries, p.Limit, p.Offset), len(entries), nil
}

func (s *MemoryClientStore) EstimateCount(ctx context.Context, clientID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, e := range s.m.estimates {
		if e.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryClientStore) Mutate(ctx context.Context, fn func(tx client.Tx) error) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	undo := s.m.clone()
	if err := fn(&memoryClientTx{m: s.m}); err != nil {
		s.m.restore(undo)
		return err
	}
	return nil
}

type memoryClientTx struct {
	m *Memory
}

var _ client.Tx = (*memoryClientTx)(nil)

func (t *memoryClientTx) Get(ctx context.Context, id string) (*client.Client, error) {
	return t.m.getClient(id)
}

func (t *memoryClientTx) Insert(ctx context.Context, c *client.Client) error {
	cc := *c
	t.m.clients[c.ID] = &cc
	return nil
}

func (t *memoryClientTx) Update(ctx context.Context, c *client.Client) error {
	if _, ok := t.m.clients[c.ID]; !ok {
		return client.ErrNotFound
	}
	cc := *c
	t.m.clients[c.ID] = &cc
	return nil
}

func (t *memoryClientTx) Delete(ctx context.Context, id string) error {
	if _, ok := t.m.clients[id]; !ok {
		return client.ErrNotFound
	}
	delete(t.m.clients, id)
	delete(t.m.clientLogs, id)
	return nil
}

func (t *memoryClientTx) AppendLog(ctx context.Context, e *audit.Entry) error {
	t.m.clientLogs[e.ClientID] = append(t.m.clientLogs[e.ClientID], *e)
	return nil
}

// ==============================
// User store
// ==============================

type MemoryUserStore struct {
	m *Memory
}

var _ user.Store = (*MemoryUserStore)(nil)

func (s *MemoryUserStore) Create(ctx context.Context, u *user.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	c := *u
	s.m.users[u.ID] = &c
	return nil
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, user.ErrNotFound
}

// ==============================
// Shared state helpers
// ==============================

func (m *Memory) getEstimate(id string) (*estimate.Estimate, error) {
	e, ok := m.estimates[id]
	if !ok {
		return nil, estimate.ErrNotFound
	}
	return copyEstimate(e), nil
}

func (m *Memory) getSnapshot(estimateID string, version int) (*estimate.Snapshot, error) {
	for _, s := range m.snapshots[estimateID] {
		if s.Version == version {
			c := *s
			return &c, nil
		}
	}
	return nil, estimate.ErrVersionNotFound
}

func (m *Memory) getClient(id string) (*client.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

type memoryState struct {
	estimates  map[string]*estimate.Estimate
	snapshots  map[string][]*estimate.Snapshot
	logs       map[string][]audit.Entry
	clientLogs map[string][]audit.Entry
	clients    map[string]*client.Client
	notes      map[string]*estimate.Note
}

func (m *Memory) clone() memoryState {
	s := memoryState{
		estimates:  make(map[string]*estimate.Estimate, len(m.estimates)),
		snapshots:  make(map[string][]*estimate.Snapshot, len(m.snapshots)),
		logs:       make(map[string][]audit.Entry, len(m.logs)),
		clientLogs: make(map[string][]audit.Entry, len(m.clientLogs)),
		clients:    make(map[string]*client.Client, len(m.clients)),
		notes:      make(map[string]*estimate.Note, len(m.notes)),
	}
	for k, v := range m.estimates {
		s.estimates[k] = copyEstimate(v)
	}
	for k, v := range m.snapshots {
		s.snapshots[k] = append([]*estimate.Snapshot(nil), v...)
	}
	for k, v := range m.logs {
		s.logs[k] = append([]audit.Entry(nil), v...)
	}
	for k, v := range m.clientLogs {
		s.clientLogs[k] = append([]audit.Entry(nil), v...)
	}
	for k, v := range m.clients {
		c := *v
		s.clients[k] = &c
	}
	for k, v := range m.notes {
		n := *v
		s.notes[k] = &n
	}
	return s
}

func (m *Memory) restore(s memoryState) {
	m.estimates = s.estimates
	m.snapshots = s.snapshots
	m.logs = s.logs
	m.clientLogs = s.clientLogs
	m.clients = s.clients
	m.notes = s.notes
}

func copyEstimate(e *estimate.Estimate) *estimate.Estimate {
	c := *e
	c.Items = append([]estimate.Item(nil), e.Items...)
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
