package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []Field{
	{Name: "name", Kind: Text, EditLabel: "Name changed"},
	{Name: "client_id", Kind: Reference, EditLabel: "Client changed",
		AddLabel: "Client assigned", DelLabel: "Client removed"},
	{Name: "responsible", Kind: Text, EditLabel: "Responsible changed",
		AddLabel: "Responsible assigned", DelLabel: "Responsible removed"},
	{Name: "notes", Kind: Text, EditLabel: "Notes changed"},
	{Name: "status", Kind: Enum, EditLabel: "Status changed",
		EnumLabels: map[string]string{"draft": "Draft", "sent": "Sent"}},
	{Name: "tax_enabled", Kind: Flag, OnLabel: "Tax enabled", OffLabel: "Tax disabled"},
	{Name: "tax_rate", Kind: Number, EditLabel: "Tax rate changed"},
}

func baseState() State {
	return State{
		"name":        "Website redesign",
		"client_id":   "",
		"responsible": "",
		"notes":       "",
		"status":      "draft",
		"tax_enabled": false,
		"tax_rate":    float64(0),
	}
}

// ============================================
// Scalar Field Tests
// ============================================

func TestCompute_IdenticalStates_NoEntries(t *testing.T) {
	s := baseState()
	entries := Compute(s, baseState(), testCatalog, nil)
	assert.Empty(t, entries)
}

func TestCompute_TextEdit(t *testing.T) {
	old, new := baseState(), baseState()
	new["name"] = "Mobile app"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Name changed", "Website redesign", "Mobile app"), entries[0])
}

func TestCompute_TextAdd_WithAddLabel(t *testing.T) {
	old, new := baseState(), baseState()
	new["responsible"] = "Anna"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Added("Responsible assigned", "Anna"), entries[0])
	assert.Empty(t, entries[0].Old)
}

func TestCompute_TextRemove_WithDelLabel(t *testing.T) {
	old, new := baseState(), baseState()
	old["responsible"] = "Anna"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Removed("Responsible removed", "Anna"), entries[0])
	assert.Empty(t, entries[0].New)
}

func TestCompute_TextAdd_NoAddLabel_CollapsesToEdit(t *testing.T) {
	// "notes" has only an EditLabel, so assigning a first value renders as
	// an edit with the placeholder on the old side.
	old, new := baseState(), baseState()
	new["notes"] = "call before invoicing"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Notes changed", Placeholder, "call before invoicing"), entries[0])
}

func TestCompute_TextRemove_NoDelLabel_CollapsesToEdit(t *testing.T) {
	old, new := baseState(), baseState()
	old["notes"] = "call before invoicing"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Notes changed", "call before invoicing", Placeholder), entries[0])
}

func TestCompute_CatalogOrderPreserved(t *testing.T) {
	old, new := baseState(), baseState()
	new["tax_rate"] = float64(20)
	new["name"] = "Mobile app"
	new["status"] = "sent"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 3)
	assert.Equal(t, "Name changed", entries[0].Label)
	assert.Equal(t, "Status changed", entries[1].Label)
	assert.Equal(t, "Tax rate changed", entries[2].Label)
}

// ============================================
// Flag Tests
// ============================================

func TestCompute_FlagOn_BareAnnotation(t *testing.T) {
	old, new := baseState(), baseState()
	new["tax_enabled"] = true

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Annotation("Tax enabled"), entries[0])
	assert.Empty(t, entries[0].Label)
	assert.Empty(t, entries[0].Old)
	assert.Empty(t, entries[0].New)
}

func TestCompute_FlagOff_BareAnnotation(t *testing.T) {
	old, new := baseState(), baseState()
	old["tax_enabled"] = true

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Annotation("Tax disabled"), entries[0])
}

// ============================================
// Enum Tests
// ============================================

func TestCompute_EnumEdit_UsesDisplayLabels(t *testing.T) {
	old, new := baseState(), baseState()
	new["status"] = "sent"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Status changed", "Draft", "Sent"), entries[0])
}

func TestCompute_EnumEdit_UnknownValueFallsBackToRaw(t *testing.T) {
	old, new := baseState(), baseState()
	new["status"] = "archived"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Status changed", "Draft", "archived"), entries[0])
}

// ============================================
// Reference Tests
// ============================================

func TestCompute_ReferenceAssigned_Resolved(t *testing.T) {
	old, new := baseState(), baseState()
	new["client_id"] = "c-1"
	resolve := func(raw string) (string, bool) {
		if raw == "c-1" {
			return "Acme Corp", true
		}
		return "", false
	}

	entries := Compute(old, new, testCatalog, resolve)

	require.Len(t, entries, 1)
	assert.Equal(t, Added("Client assigned", "Acme Corp"), entries[0])
}

func TestCompute_ReferenceChanged_UnresolvedFallsBackToRaw(t *testing.T) {
	old, new := baseState(), baseState()
	old["client_id"] = "c-1"
	new["client_id"] = "c-2"
	resolve := func(raw string) (string, bool) {
		if raw == "c-1" {
			return "Acme Corp", true
		}
		return "", false
	}

	entries := Compute(old, new, testCatalog, resolve)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Client changed", "Acme Corp", "c-2"), entries[0])
}

func TestCompute_ReferenceRemoved_NilResolver(t *testing.T) {
	old, new := baseState(), baseState()
	old["client_id"] = "c-1"

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Removed("Client removed", "c-1"), entries[0])
}

// ============================================
// Number Formatting Tests
// ============================================

func TestFormatNumber_Various(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{20, "20"},
		{20.0, "20"},
		{20.5, "20.5"},
		{0.25, "0.25"},
		{1000, "1000"},
		{-3, "-3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestCompute_NumberEdit_WholeNumbersDropDecimals(t *testing.T) {
	old, new := baseState(), baseState()
	old["tax_rate"] = float64(20)
	new["tax_rate"] = 20.5

	entries := Compute(old, new, testCatalog, nil)

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Tax rate changed", "20", "20.5"), entries[0])
}
