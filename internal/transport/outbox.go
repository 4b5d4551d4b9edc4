package transport

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrOutboxClosed is returned by operations on a closed outbox.
var ErrOutboxClosed = errors.New("outbox closed")

// Entry is an encoded report awaiting acknowledgment.
type Entry struct {
	ID        uuid.UUID
	Payload   []byte
	CreatedAt time.Time
	Attempts  int
}

// Outbox stores encoded reports until they are acknowledged.
type Outbox interface {
	// Put stores an entry. Putting an id that is already stored keeps the
	// existing entry.
	Put(ctx context.Context, entry Entry) error
	// Pending returns stored entries, oldest first.
	Pending(ctx context.Context) ([]Entry, error)
	// MarkAttempt increments the attempt counter of id.
	MarkAttempt(ctx context.Context, id uuid.UUID) error
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// MemoryOutbox is an Outbox kept in process memory.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewMemoryOutbox returns an empty in-memory outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (outbox *MemoryOutbox) Put(_ context.Context, entry Entry) error {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	if outbox.closed {
		return ErrOutboxClosed
	}
	if outbox.indexLocked(entry.ID) >= 0 {
		return nil
	}
	entry.Payload = slices.Clone(entry.Payload)
	outbox.entries = append(outbox.entries, entry)
	return nil
}

func (outbox *MemoryOutbox) Pending(_ context.Context) ([]Entry, error) {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	if outbox.closed {
		return nil, ErrOutboxClosed
	}
	pending := make([]Entry, len(outbox.entries))
	for i, entry := range outbox.entries {
		entry.Payload = slices.Clone(entry.Payload)
		pending[i] = entry
	}
	return pending, nil
}

func (outbox *MemoryOutbox) MarkAttempt(_ context.Context, id uuid.UUID) error {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	if outbox.closed {
		return ErrOutboxClosed
	}
	if i := outbox.indexLocked(id); i >= 0 {
		outbox.entries[i].Attempts++
	}
	return nil
}

func (outbox *MemoryOutbox) Delete(_ context.Context, id uuid.UUID) error {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	if outbox.closed {
		return ErrOutboxClosed
	}
	if i := outbox.indexLocked(id); i >= 0 {
		outbox.entries = slices.Delete(outbox.entries, i, i+1)
	}
	return nil
}

func (outbox *MemoryOutbox) Close() error {
	outbox.mu.Lock()
	defer outbox.mu.Unlock()
	outbox.closed = true
	return nil
}

func (outbox *MemoryOutbox) indexLocked(id uuid.UUID) int {
	return slices.IndexFunc(outbox.entries, func(entry Entry) bool { return entry.ID == id })
}

var (
	_ Outbox = (*MemoryOutbox)(nil)
	_ Outbox = (*SQLiteOutbox)(nil)
)
