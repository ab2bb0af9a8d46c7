// Package draft holds the receipt attachments collected while one claim form
// is open. Nothing here is persisted.
package draft

import (
	"sync"
	"time"

	"reimburse/internal/core"
)

// Assembler owns the attachment list of a single form session.
type Assembler struct {
	mu    sync.Mutex
	items []core.Attachment
	now   func() time.Time
}

func New() *Assembler {
	return &Assembler{now: time.Now}
}

// Add validates in, assigns it a fresh id and appends it.
func (a *Assembler) Add(in core.AttachmentInput) (core.Attachment, error) {
	if err := in.Validate(); err != nil {
		return core.Attachment{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = core.KindPhoto
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	att := core.Attachment{
		ID:            core.NewID(a.now()),
		Name:          in.Name,
		Amount:        in.Amount,
		Kind:          kind,
		ImageLocation: in.ImageLocation,
	}
	a.items = append(a.items, att)
	return att, nil
}

// Remove drops the attachment with the given id and reports whether one was
// found. Unknown ids are a no-op.
func (a *Assembler) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, att := range a.items {
		if att.ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot in insertion order.
func (a *Assembler) List() []core.Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Attachment{}, a.items...)
}

func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Discard empties the list when the form is submitted or dismissed.
func (a *Assembler) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
}
