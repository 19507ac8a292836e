package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func designItem() Item {
	return Item{
		ID:            "it-1",
		Name:          "Design",
		Description:   "landing page",
		Quantity:      2,
		Unit:          "pcs",
		InternalPrice: 100,
		ExternalPrice: 150,
		Category:      "creative",
	}
}

// ============================================
// Matched Item Tests
// ============================================

func TestCompareItems_NoChanges(t *testing.T) {
	old := []Item{designItem()}
	new := []Item{designItem()}

	assert.Empty(t, CompareItems(old, new))
}

func TestCompareItems_SubfieldChanges_QualifiedByItemName(t *testing.T) {
	old := []Item{designItem()}
	changed := designItem()
	changed.Quantity = 3
	changed.ExternalPrice = 175.5

	entries := CompareItems(old, []Item{changed})

	require.Len(t, entries, 2)
	assert.Equal(t, Edited("Quantity changed (Design)", "2", "3"), entries[0])
	assert.Equal(t, Edited("Price changed (Design)", "150", "175.5"), entries[1])
}

func TestCompareItems_RenamedItem_LabelUsesNewName(t *testing.T) {
	old := []Item{designItem()}
	renamed := designItem()
	renamed.Name = "UI design"

	entries := CompareItems(old, []Item{renamed})

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Name changed (UI design)", "Design", "UI design"), entries[0])
}

func TestCompareItems_ClearedTextSubfield_Placeholder(t *testing.T) {
	old := []Item{designItem()}
	cleared := designItem()
	cleared.Description = ""

	entries := CompareItems(old, []Item{cleared})

	require.Len(t, entries, 1)
	assert.Equal(t, Edited("Description changed (Design)", "landing page", Placeholder), entries[0])
}

// ============================================
// Added / Removed Item Tests
// ============================================

func TestCompareItems_AddedItem(t *testing.T) {
	old := []Item{designItem()}
	extra := Item{ID: "it-2", Name: "Hosting", Quantity: 1, Unit: "mo", InternalPrice: 10, ExternalPrice: 20}

	entries := CompareItems(old, []Item{designItem(), extra})

	require.Len(t, entries, 1)
	assert.Equal(t, Added("Service added", "Hosting"), entries[0])
}

func TestCompareItems_RemovedItem(t *testing.T) {
	extra := Item{ID: "it-2", Name: "Hosting", Quantity: 1, Unit: "mo", InternalPrice: 10, ExternalPrice: 20}
	old := []Item{designItem(), extra}

	entries := CompareItems(old, []Item{designItem()})

	require.Len(t, entries, 1)
	assert.Equal(t, Removed("Service removed", "Hosting"), entries[0])
}

func TestCompareItems_NewItemWithoutID_CountsAsAdded(t *testing.T) {
	old := []Item{designItem()}
	anon := Item{Name: "Support", Quantity: 1, Unit: "mo", InternalPrice: 5, ExternalPrice: 15}

	entries := CompareItems(old, []Item{designItem(), anon})

	require.Len(t, entries, 1)
	assert.Equal(t, Added("Service added", "Support"), entries[0])
}

func TestCompareItems_ReplacedItem_AddAndRemove(t *testing.T) {
	old := []Item{designItem()}
	replacement := Item{ID: "it-9", Name: "Branding", Quantity: 1, Unit: "pcs", InternalPrice: 50, ExternalPrice: 80}

	entries := CompareItems(old, []Item{replacement})

	require.Len(t, entries, 2)
	assert.Equal(t, Added("Service added", "Branding"), entries[0])
	assert.Equal(t, Removed("Service removed", "Design"), entries[1])
}

// ============================================
// No-ID Fallback Tests
// ============================================

func TestCompareItems_NoIDs_SameSetReordered_NoEntries(t *testing.T) {
	a := Item{Name: "Design", Quantity: 2, Unit: "pcs", InternalPrice: 100, ExternalPrice: 150}
	b := Item{Name: "Hosting", Quantity: 1, Unit: "mo", InternalPrice: 10, ExternalPrice: 20}

	entries := CompareItems([]Item{a, b}, []Item{b, a})

	assert.Empty(t, entries)
}

func TestCompareItems_NoIDs_AnyDifference_SingleAnnotation(t *testing.T) {
	a := Item{Name: "Design", Quantity: 2, Unit: "pcs", InternalPrice: 100, ExternalPrice: 150}
	changed := a
	changed.Quantity = 3

	entries := CompareItems([]Item{a}, []Item{changed})

	require.Len(t, entries, 1)
	assert.Equal(t, Annotation("Services changed"), entries[0])
}

func TestCompareItems_NoIDs_DuplicateHandling(t *testing.T) {
	a := Item{Name: "Design", Quantity: 2, Unit: "pcs", InternalPrice: 100, ExternalPrice: 150}

	// two identical lines vs one and a spare copy on the other side
	assert.Empty(t, CompareItems([]Item{a, a}, []Item{a, a}))

	entries := CompareItems([]Item{a, a}, []Item{a})
	require.Len(t, entries, 1)
	assert.Equal(t, Annotation("Services changed"), entries[0])
}
