package todos

import (
	"context"
	"errors"
	"sync"
)

var errDuplicateID = errors.New("duplicate id")

// MemoryGateway keeps todos in process memory, in insertion order.
type MemoryGateway struct {
	mu    sync.Mutex
	order []string
	store map[string]Todo
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		store: make(map[string]Todo),
	}
}

func (g *MemoryGateway) List(ctx context.Context) ([]Todo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Todo, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.store[id])
	}
	return out, nil
}

func (g *MemoryGateway) Create(ctx context.Context, t Todo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.store[t.ID]; ok {
		return gatewayErr("create", errDuplicateID)
	}
	g.store[t.ID] = t
	g.order = append(g.order, t.ID)
	return nil
}

func (g *MemoryGateway) Read(ctx context.Context, id string) (Todo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.store[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return t, nil
}

func (g *MemoryGateway) Replace(ctx context.Context, t Todo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.store[t.ID]; !ok {
		return ErrNotFound
	}
	g.store[t.ID] = t
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.store[id]; !ok {
		return ErrNotFound
	}
	delete(g.store, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}
