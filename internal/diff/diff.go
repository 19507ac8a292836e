package diff

import (
	"math"
	"strconv"
)

// Placeholder rendered for absent values in field change entries.
const Placeholder = "—"

// FieldKind selects the comparison and rendering rules for a field.
type FieldKind int

const (
	Text FieldKind = iota
	Number
	Flag
	Enum
	Reference
)

// Field describes one catalog entry: how a named field is compared and
// how its changes are worded. Fields without AddLabel/DelLabel collapse
// every difference into a single EditLabel entry.
type Field struct {
	Name      string
	Kind      FieldKind
	EditLabel string
	AddLabel  string
	DelLabel  string

	// EnumLabels renders raw enum values as display text (Enum kind).
	EnumLabels map[string]string

	// OnLabel/OffLabel are the annotations emitted when a Flag field
	// flips to true/false.
	OnLabel  string
	OffLabel string
}

// State is one side of a comparison: field name -> raw value.
// Supported value types are string, float64, bool and nil (absent).
type State map[string]any

// Resolver turns a raw Reference value into a display label. Returning
// false falls back to the raw value.
type Resolver func(raw string) (string, bool)

// Compute compares two states field by field in catalog order and returns
// the ordered change entries. It never touches anything outside its
// arguments; identical states yield an empty result.
func Compute(old, new State, catalog []Field, resolve Resolver) []Entry {
	var entries []Entry
	for _, f := range catalog {
		if e, ok := compareField(f, old[f.Name], new[f.Name], resolve); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func compareField(f Field, oldVal, newVal any, resolve Resolver) (Entry, bool) {
	switch f.Kind {
	case Flag:
		ob, nb := boolValue(oldVal), boolValue(newVal)
		if ob == nb {
			return Entry{}, false
		}
		if nb {
			return Annotation(f.OnLabel), true
		}
		return Annotation(f.OffLabel), true

	case Enum:
		// Enums are never added or removed, only edited.
		or, nr := stringValue(oldVal), stringValue(newVal)
		if or == nr {
			return Entry{}, false
		}
		return Edited(f.EditLabel, enumLabel(f, or), enumLabel(f, nr)), true

	case Reference:
		or, nr := stringValue(oldVal), stringValue(newVal)
		if or == nr {
			return Entry{}, false
		}
		return classify(f, or != "", nr != "", referenceLabel(or, resolve), referenceLabel(nr, resolve)), true

	case Number:
		of, oldPresent := numberValue(oldVal)
		nf, newPresent := numberValue(newVal)
		if oldPresent == newPresent && of == nf {
			return Entry{}, false
		}
		return classify(f, oldPresent, newPresent, FormatNumber(of), FormatNumber(nf)), true

	default: // Text
		or, nr := stringValue(oldVal), stringValue(newVal)
		if or == nr {
			return Entry{}, false
		}
		return classify(f, or != "", nr != "", or, nr), true
	}
}

// classify picks the add/del/edit wording for a changed field. Fields with
// no distinct add/del wording always produce a generic edit entry, with the
// placeholder standing in for whichever side is absent.
func classify(f Field, oldPresent, newPresent bool, oldDisplay, newDisplay string) Entry {
	switch {
	case !oldPresent && newPresent && f.AddLabel != "":
		return Added(f.AddLabel, newDisplay)
	case oldPresent && !newPresent && f.DelLabel != "":
		return Removed(f.DelLabel, oldDisplay)
	default:
		if !oldPresent {
			oldDisplay = Placeholder
		}
		if !newPresent {
			newDisplay = Placeholder
		}
		return Edited(f.EditLabel, oldDisplay, newDisplay)
	}
}

func enumLabel(f Field, raw string) string {
	if label, ok := f.EnumLabels[raw]; ok {
		return label
	}
	return raw
}

func referenceLabel(raw string, resolve Resolver) string {
	if raw == "" {
		return ""
	}
	if resolve != nil {
		if label, ok := resolve(raw); ok {
			return label
		}
	}
	return raw
}

// FormatNumber renders a numeric value for display: whole numbers drop the
// decimal point, fractional values keep it.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func numberValue(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
