package notes

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tbmap/tbmap/internal/model"
)

var (
	ErrLineItemNotFound = errors.New("note line item not found")
	ErrClubbing         = errors.New("grouping does not belong to the line item's note")
)

// LineItems is the set of user-defined note line items.
type LineItems struct {
	mu    sync.RWMutex
	items []model.NoteLineItem
}

// NewLineItems wraps existing line items.
func NewLineItems(items []model.NoteLineItem) *LineItems {
	return &LineItems{items: append([]model.NoteLineItem(nil), items...)}
}

// All returns a copy of every line item in creation order.
func (l *LineItems) All() []model.NoteLineItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.NoteLineItem(nil), l.items...)
}

// ForNote returns the line items of one note.
func (l *LineItems) ForNote(noteID string) []model.NoteLineItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.NoteLineItem
	for _, it := range l.items {
		if it.NoteID == noteID {
			out = append(out, it)
		}
	}
	return out
}

// Get returns one line item.
func (l *LineItems) Get(lineItemID string) (model.NoteLineItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if it.ID == lineItemID {
			return it, true
		}
	}
	return model.NoteLineItem{}, false
}

// Add creates a line item under a catalog note.
func (l *LineItems) Add(noteID, name string) (model.NoteLineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NoteLineItem{}, errors.New("line item name is empty")
	}
	if _, ok := Lookup(noteID); !ok {
		return model.NoteLineItem{}, fmt.Errorf("%w: %s", ErrUnknownNote, noteID)
	}
	it := model.NoteLineItem{ID: uuid.NewString(), NoteID: noteID, Name: name}
	l.mu.Lock()
	l.items = append(l.items, it)
	l.mu.Unlock()
	return it, nil
}

// Rename changes a line item's display name.
func (l *LineItems) Rename(lineItemID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("line item name is empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == lineItemID {
			l.items[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
}

// Remove deletes a line item. Ledgers still clubbed into it fall back to
// their grouping in aggregation until they are unclubbed.
func (l *LineItems) Remove(lineItemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == lineItemID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
}

// CheckClubbing reports whether a ledger mapped to groupingCode may be
// clubbed into lineItemID.
func (l *LineItems) CheckClubbing(groupingCode, lineItemID string) error {
	it, ok := l.Get(lineItemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLineItemNotFound, lineItemID)
	}
	n, ok := Lookup(it.NoteID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNote, it.NoteID)
	}
	if !n.Covers(groupingCode) {
		return fmt.Errorf("%w: %s is not in %s", ErrClubbing, groupingCode, n.Title)
	}
	return nil
}
