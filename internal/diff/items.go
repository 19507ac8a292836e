package diff

import "fmt"

// Item is the line-item view the engine compares. ID is empty for rows
// that were never persisted.
type Item struct {
	ID            string
	Name          string
	Description   string
	Quantity      float64
	Unit          string
	InternalPrice float64
	ExternalPrice float64
	Category      string
}

type itemField struct {
	label string
	value func(Item) any
}

// Sub-field comparison order for matched items.
var itemFields = []itemField{
	{"Name", func(it Item) any { return it.Name }},
	{"Description", func(it Item) any { return it.Description }},
	{"Quantity", func(it Item) any { return it.Quantity }},
	{"Unit", func(it Item) any { return it.Unit }},
	{"Cost price", func(it Item) any { return it.InternalPrice }},
	{"Price", func(it Item) any { return it.ExternalPrice }},
	{"Category", func(it Item) any { return it.Category }},
}

// CompareItems diffs two line-item collections. Items are matched by
// stable ID where both sides carry one; matched items are compared
// sub-field by sub-field with the entry label qualified by the item name.
// Unmatched items become "Service added"/"Service removed" entries. When
// neither side carries any IDs the collections are compared as unordered
// sets of full tuples and any difference collapses to a single generic
// annotation.
func CompareItems(old, new []Item) []Entry {
	if !hasIDs(old) && !hasIDs(new) {
		if sameItemSets(old, new) {
			return nil
		}
		return []Entry{Annotation("Services changed")}
	}

	oldByID := make(map[string]Item, len(old))
	for _, it := range old {
		if it.ID != "" {
			oldByID[it.ID] = it
		}
	}

	var entries []Entry
	seen := make(map[string]bool, len(new))
	for _, it := range new {
		prev, matched := oldByID[it.ID]
		if it.ID == "" || !matched {
			entries = append(entries, Added("Service added", it.Name))
			continue
		}
		seen[it.ID] = true
		entries = append(entries, compareItem(prev, it)...)
	}
	for _, it := range old {
		if it.ID == "" || !seen[it.ID] {
			entries = append(entries, Removed("Service removed", it.Name))
		}
	}
	return entries
}

func compareItem(old, new Item) []Entry {
	var entries []Entry
	for _, f := range itemFields {
		ov, nv := f.value(old), f.value(new)
		if ov == nv {
			continue
		}
		label := fmt.Sprintf("%s changed (%s)", f.label, new.Name)
		entries = append(entries, Edited(label, itemDisplay(ov), itemDisplay(nv)))
	}
	return entries
}

func itemDisplay(v any) string {
	switch x := v.(type) {
	case float64:
		return FormatNumber(x)
	case string:
		if x == "" {
			return Placeholder
		}
		return x
	}
	return Placeholder
}

func hasIDs(items []Item) bool {
	for _, it := range items {
		if it.ID != "" {
			return true
		}
	}
	return false
}

// sameItemSets compares collections as unordered multisets of full tuples,
// ignoring IDs.
func sameItemSets(old, new []Item) bool {
	if len(old) != len(new) {
		return false
	}
	counts := make(map[Item]int, len(old))
	for _, it := range old {
		it.ID = ""
		counts[it]++
	}
	for _, it := range new {
		it.ID = ""
		counts[it]--
		if counts[it] < 0 {
			return false
		}
	}
	return true
}
