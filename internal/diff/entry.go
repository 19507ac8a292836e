package diff

// Entry is one human-readable change. It is either a bare annotation
// (Text set, everything else empty) or a field change carrying a label
// with old and/or new display values. Audit consumers must accept a
// heterogeneous list of both forms.
type Entry struct {
	Text  string `json:"text,omitempty"`
	Label string `json:"label,omitempty"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// Annotation returns a bare free-text entry.
func Annotation(text string) Entry {
	return Entry{Text: text}
}

// Edited returns an entry with both old and new values.
func Edited(label, old, new string) Entry {
	return Entry{Label: label, Old: old, New: new}
}

// Added returns an entry carrying only the new value.
func Added(label, new string) Entry {
	return Entry{Label: label, New: new}
}

// Removed returns an entry carrying only the old value.
func Removed(label, old string) Entry {
	return Entry{Label: label, Old: old}
}

// IsAnnotation reports whether the entry is a bare annotation.
func (e Entry) IsAnnotation() bool {
	return e.Label == "" && e.Text != ""
}
