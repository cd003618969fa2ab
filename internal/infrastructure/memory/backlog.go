package memory

import (
	"context"
	"sort"
	"sync"
)

// ResyncBacklog is the single-process fallback used when Redis is disabled.
type ResyncBacklog struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewResyncBacklog() *ResyncBacklog {
	return &ResyncBacklog{ids: make(map[int64]struct{})}
}

func (b *ResyncBacklog) Push(_ context.Context, ingredientIDs ...int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range ingredientIDs {
		b.ids[id] = struct{}{}
	}
	return nil
}

// Peek returns up to n ids in ascending order without removing them.
func (b *ResyncBacklog) Peek(_ context.Context, n int) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]int64, 0, len(b.ids))
	for id := range b.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}

func (b *ResyncBacklog) Ack(_ context.Context, ingredientIDs ...int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range ingredientIDs {
		delete(b.ids, id)
	}
	return nil
}

func (b *ResyncBacklog) Len(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.ids)), nil
}
