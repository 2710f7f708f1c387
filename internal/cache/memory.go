package cache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"time"
)

const (
	defaultMaxEntries = 10000
	// cleanupInterval is the number of operations between opportunistic
	// sweeps of expired entries.
	cleanupInterval = 100
)

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// MemoryBackend is an in-process LRU cache with per-entry expiry. A single
// mutex guards all operations. State is not shared between instances, so it
// is only suitable for single-instance deployments.
type MemoryBackend struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
	ops        int
	now        func() time.Time
}

// NewMemoryBackend builds an LRU backend bounded to maxEntries.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryBackend{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeCleanup()

	elem, ok := b.items[key]
	if !ok {
		return "", false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if b.expired(entry) {
		b.removeElement(elem)
		return "", false, nil
	}
	b.ll.MoveToFront(elem)
	return entry.value, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeCleanup()
	b.setLocked(key, value, ttl)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if elem, ok := b.items[key]; ok {
		b.removeElement(elem)
	}
	return nil
}

func (b *MemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	elem, ok := b.items[key]
	if !ok {
		return false, nil
	}
	if b.expired(elem.Value.(*memoryEntry)) {
		b.removeElement(elem)
		return false, nil
	}
	return true, nil
}

func (b *MemoryBackend) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeCleanup()

	var count int64 = 1
	entryTTL := ttl
	if elem, ok := b.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		if !b.expired(entry) {
			prev, err := strconv.ParseInt(entry.value, 10, 64)
			if err != nil {
				return 0, err
			}
			count = prev + 1
			// Fixed-window semantics: keep the original deadline.
			entryTTL = entry.expiresAt.Sub(b.now())
		}
	}
	b.setLocked(key, strconv.FormatInt(count, 10), entryTTL)
	return count, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ll.Init()
	b.items = make(map[string]*list.Element)
	return nil
}

func (b *MemoryBackend) HealthCheck(_ context.Context) bool {
	return true
}

// Len reports the number of live entries, expired ones included until swept.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ll.Len()
}

func (b *MemoryBackend) setLocked(key, value string, ttl time.Duration) {
	var deadline time.Time
	if ttl > 0 {
		deadline = b.now().Add(ttl)
	}
	if elem, ok := b.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = deadline
		b.ll.MoveToFront(elem)
		return
	}
	elem := b.ll.PushFront(&memoryEntry{key: key, value: value, expiresAt: deadline})
	b.items[key] = elem
	for b.ll.Len() > b.maxEntries {
		oldest := b.ll.Back()
		if oldest == nil {
			break
		}
		b.removeElement(oldest)
	}
}

func (b *MemoryBackend) expired(entry *memoryEntry) bool {
	return !entry.expiresAt.IsZero() && b.now().After(entry.expiresAt)
}

func (b *MemoryBackend) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	b.ll.Remove(elem)
	delete(b.items, entry.key)
}

// maybeCleanup sweeps expired entries every cleanupInterval operations
// rather than on every write, bounding per-operation overhead.
func (b *MemoryBackend) maybeCleanup() {
	b.ops++
	if b.ops%cleanupInterval != 0 {
		return
	}
	for elem := b.ll.Back(); elem != nil; {
		prev := elem.Prev()
		if b.expired(elem.Value.(*memoryEntry)) {
			b.removeElement(elem)
		}
		elem = prev
	}
}
