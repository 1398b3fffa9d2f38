// Package dedupe tracks idempotency keys of session saves.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxSize bounds the tracker when no size is configured.
const DefaultMaxSize = 10000

// Status is what Reserve found for a key.
type Status int

const (
	// StatusReserved means the caller now holds the key and must Commit or
	// Release it.
	StatusReserved Status = iota
	// StatusPending means another caller holds the key and has not finished.
	StatusPending
	// StatusCommitted means a save with the key already succeeded.
	StatusCommitted
)

// Deduper tracks idempotency keys. A key is reserved while its save runs and
// counts as seen only once committed.
type Deduper interface {
	Reserve(ctx context.Context, key string) Status

	// Commit marks a reserved key as seen.
	Commit(ctx context.Context, key string)

	// Release drops a reservation so a failed save can be retried with the key.
	Release(ctx context.Context, key string)

	// Size is the number of committed keys.
	Size() int64
}

// Key scopes a client idempotency key to a user.
func Key(userID, idempotencyKey string) string {
	return userID + "\x00" + idempotencyKey
}

type entry struct {
	key string
	at  time.Time
}

// inMemoryDeduper keeps committed keys in commit order. The oldest key is
// evicted once maxSize is reached, and keys older than ttl count as unseen.
// Reservations are held apart and never evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]struct{}
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: DefaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pending = make(map[string]struct{})
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Reserve(_ context.Context, key string) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked(d.now())
	if _, ok := d.seen[key]; ok {
		return StatusCommitted
	}
	if _, ok := d.pending[key]; ok {
		return StatusPending
	}
	d.pending[key] = struct{}{}
	return StatusReserved
}

func (d *inMemoryDeduper) Commit(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.pending, key)
	if _, ok := d.seen[key]; ok {
		return
	}
	now := d.now()
	d.expireLocked(now)
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.removeLocked(d.order.Front())
	}
	d.seen[key] = d.order.PushBack(entry{key: key, at: now})
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked(d.now())
	return int64(d.order.Len())
}

// expireLocked drops keys recorded before now-ttl. Entries are in insertion
// order so it stops at the first live one.
func (d *inMemoryDeduper) expireLocked(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for e := d.order.Front(); e != nil; e = d.order.Front() {
		if now.Sub(e.Value.(entry).at) < d.ttl {
			return
		}
		d.removeLocked(e)
	}
}

func (d *inMemoryDeduper) removeLocked(e *list.Element) {
	if e == nil {
		return
	}
	d.order.Remove(e)
	delete(d.seen, e.Value.(entry).key)
}
