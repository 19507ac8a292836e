package estimate

import "github.com/dimas1q/quick-estimate/internal/diff"

// changeCatalog declares the audited scalar fields in the order their
// changes appear in the audit trail. Line items are compared separately
// and follow the scalar entries.
var changeCatalog = []diff.Field{
	{Name: "name", Kind: diff.Text, EditLabel: "Name changed"},
	{Name: "client_id", Kind: diff.Reference, EditLabel: "Client changed",
		AddLabel: "Client assigned", DelLabel: "Client removed"},
	{Name: "responsible", Kind: diff.Text, EditLabel: "Responsible changed",
		AddLabel: "Responsible assigned", DelLabel: "Responsible removed"},
	{Name: "notes", Kind: diff.Text, EditLabel: "Notes changed"},
	{Name: "status", Kind: diff.Enum, EditLabel: "Status changed", EnumLabels: StatusLabels},
	{Name: "tax_enabled", Kind: diff.Flag, OnLabel: "Tax enabled", OffLabel: "Tax disabled"},
	{Name: "tax_rate", Kind: diff.Number, EditLabel: "Tax rate changed"},
}

func stateOf(e *Estimate) diff.State {
	return diff.State{
		"name":        e.Name,
		"client_id":   e.ClientID,
		"responsible": e.Responsible,
		"notes":       e.Notes,
		"status":      string(e.Status),
		"tax_enabled": e.TaxEnabled,
		"tax_rate":    e.TaxRate,
	}
}

func diffItems(items []Item) []diff.Item {
	out := make([]diff.Item, len(items))
	for i, it := range items {
		out[i] = diff.Item{
			ID:            it.ID,
			Name:          it.Name,
			Description:   it.Description,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			InternalPrice: it.InternalPrice,
			ExternalPrice: it.ExternalPrice,
			Category:      it.Category,
		}
	}
	return out
}

// Changes computes the ordered change entries between two estimate states:
// scalar fields in catalog order, then line items in input order. The
// resolver maps client ids to display names.
func Changes(old, new *Estimate, resolve diff.Resolver) []diff.Entry {
	entries := diff.Compute(stateOf(old), stateOf(new), changeCatalog, resolve)
	return append(entries, diff.CompareItems(diffItems(old.Items), diffItems(new.Items))...)
}
