package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/diff"
	"github.com/dimas1q/quick-estimate/internal/domain/client"
	"github.com/dimas1q/quick-estimate/internal/domain/estimate"
	"github.com/dimas1q/quick-estimate/internal/infrastructure/store"
)

const actor = "user-1"

func newTestService() (*client.Service, *store.Memory) {
	mem := store.NewMemory()
	return client.NewService(mem.Clients(), nil), mem
}

func validInput() client.Input {
	return client.Input{
		Name:    "Acme Corp",
		Company: "Acme Holdings",
		Email:   "billing@acme.example",
	}
}

// ============================================
// Create Tests
// ============================================

func TestService_Create_Valid(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, actor, created.UserID)
	assert.Equal(t, "Acme Corp", created.Name)

	logs, _, err := svc.Logs(ctx, actor, created.ID, client.Page{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, audit.ActionCreate, logs[0].Action)
	assert.Equal(t, "Client created", logs[0].Description)
}

func TestService_Create_EmptyName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), actor, client.Input{})
	assert.ErrorIs(t, err, client.ErrNameRequired)
}

// ============================================
// Update Tests
// ============================================

func TestService_Update_LogsFieldDiff(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Email = "accounts@acme.example"
	in.Phone = "+1 555 0100"
	updated, err := svc.Update(ctx, actor, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "accounts@acme.example", updated.Email)

	logs, _, err := svc.Logs(ctx, actor, created.ID, client.Page{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	entry := logs[1]
	assert.Equal(t, audit.ActionUpdate, entry.Action)
	require.Len(t, entry.Details, 2)
	assert.Equal(t, diff.Edited("Email changed", "billing@acme.example", "accounts@acme.example"), entry.Details[0])
	assert.Equal(t, diff.Edited("Phone changed", diff.Placeholder, "+1 555 0100"), entry.Details[1])
}

func TestService_Update_NoChanges_NoEntry(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, created.ID, validInput())
	require.NoError(t, err)

	logs, _, err := svc.Logs(ctx, actor, created.ID, client.Page{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestService_Update_AccessDenied(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, "intruder", created.ID, validInput())
	assert.ErrorIs(t, err, client.ErrAccessDenied)
}

// ============================================
// Delete Tests
// ============================================

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, created.ID))

	_, err = svc.Get(ctx, actor, created.ID)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestService_Delete_BlockedByEstimates(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)

	// an estimate still references the client
	estimateSvc := estimate.NewService(mem.Estimates(), nil)
	_, err = estimateSvc.Create(ctx, actor, estimate.Input{
		Name:     "Website redesign",
		ClientID: created.ID,
		Status:   estimate.StatusDraft,
		Items: []estimate.ItemInput{
			{Name: "Design", Quantity: 1, Unit: "pcs", InternalPrice: 100, ExternalPrice: 150},
		},
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, actor, created.ID)
	assert.ErrorIs(t, err, client.ErrHasEstimates)
}

// ============================================
// Listing Tests
// ============================================

func TestService_List_Filters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, actor, validInput())
	require.NoError(t, err)
	other := client.Input{Name: "Globex", Company: "Globex International"}
	_, err = svc.Create(ctx, actor, other)
	require.NoError(t, err)

	all, total, err := svc.List(ctx, actor, client.Filter{}, client.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, total)

	named, _, err := svc.List(ctx, actor, client.Filter{Name: "glob"}, client.Page{})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "Globex", named[0].Name)

	foreign, total, err := svc.List(ctx, "someone-else", client.Filter{}, client.Page{})
	require.NoError(t, err)
	assert.Empty(t, foreign)
	assert.Zero(t, total)
}
