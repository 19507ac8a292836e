package estimate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/diff"
	"github.com/google/uuid"
)

var ErrNoteTextRequired = errors.New("note text is required")

// AddNote attaches a note to an estimate. Both the estimate log and, when a
// client owns the estimate, the client log receive an entry carrying the
// note text as its single detail.
func (s *Service) AddNote(ctx context.Context, actorID, estimateID, text string) (*Note, error) {
	if text == "" {
		return nil, ErrNoteTextRequired
	}

	var (
		note      *Note
		published []audit.Entry
	)
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		e, err := tx.Get(ctx, estimateID)
		if err != nil {
			return err
		}
		if e.UserID != actorID {
			return ErrAccessDenied
		}

		now := time.Now()
		n := &Note{
			ID:         uuid.New().String(),
			EstimateID: estimateID,
			UserID:     actorID,
			Text:       text,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertNote(ctx, n); err != nil {
			return err
		}

		details := []diff.Entry{diff.Added("Note", text)}
		entry := newEntry(estimateID, "", actorID, audit.ActionAddNote, "Note added", details)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if e.ClientID != "" {
			mirror := newEntry("", e.ClientID, actorID, audit.ActionAddNote,
				fmt.Sprintf("Note added to estimate: %s", e.Name), details)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return note, nil
}

// UpdateNote rewrites a note's text and logs the old and new wording.
func (s *Service) UpdateNote(ctx context.Context, actorID, noteID, text string) (*Note, error) {
	if text == "" {
		return nil, ErrNoteTextRequired
	}

	var (
		note      *Note
		published []audit.Entry
	)
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		n, err := tx.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		if n.UserID != actorID {
			return ErrAccessDenied
		}
		e, err := tx.Get(ctx, n.EstimateID)
		if err != nil {
			return err
		}

		oldText := n.Text
		n.Text = text
		n.UpdatedAt = time.Now()
		if err := tx.UpdateNote(ctx, n); err != nil {
			return err
		}

		details := []diff.Entry{diff.Edited("Note", oldText, text)}
		entry := newEntry(n.EstimateID, "", actorID, audit.ActionEditNote, "Note edited", details)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if e.ClientID != "" {
			mirror := newEntry("", e.ClientID, actorID, audit.ActionEditNote,
				fmt.Sprintf("Note edited in estimate: %s", e.Name), details)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, published)
	return note, nil
}

// DeleteNote removes a note, logging the text it carried.
func (s *Service) DeleteNote(ctx context.Context, actorID, noteID string) error {
	var published []audit.Entry
	err := s.mutate(ctx, func(tx Tx) error {
		published = published[:0]
		n, err := tx.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		if n.UserID != actorID {
			return ErrAccessDenied
		}
		e, err := tx.Get(ctx, n.EstimateID)
		if err != nil {
			return err
		}

		if err := tx.DeleteNote(ctx, noteID); err != nil {
			return err
		}

		details := []diff.Entry{diff.Removed("Note", n.Text)}
		entry := newEntry(n.EstimateID, "", actorID, audit.ActionDeleteNote, "Note deleted", details)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}
		published = append(published, *entry)

		if e.ClientID != "" {
			mirror := newEntry("", e.ClientID, actorID, audit.ActionDeleteNote,
				fmt.Sprintf("Note deleted in estimate: %s", e.Name), details)
			if err := tx.AppendClientLog(ctx, mirror); err != nil {
				return err
			}
			published = append(published, *mirror)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, published)
	return nil
}

// ListNotes returns an estimate's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, actorID, estimateID string) ([]*Note, error) {
	if err := s.authorize(ctx, actorID, estimateID); err != nil {
		return nil, err
	}
	return s.store.ListNotes(ctx, estimateID)
}
