package orderbook

import (
	"sync"

	"crypto-market-pipeline/internal/domain"
)

// Registry maps (venue, pair) to the keeper that owns that book.
type Registry struct {
	mu      sync.RWMutex
	keepers map[string]*Keeper
}

func NewRegistry() *Registry {
	return &Registry{keepers: make(map[string]*Keeper)}
}

func registryKey(venue domain.Venue, pair string) string {
	return venue.String() + "/" + pair
}

func (r *Registry) Register(keeper *Keeper) {
	r.mu.Lock()
	r.keepers[registryKey(keeper.Venue(), keeper.Pair())] = keeper
	r.mu.Unlock()
}

func (r *Registry) Lookup(venue domain.Venue, pair string) (*Keeper, bool) {
	r.mu.RLock()
	keeper, ok := r.keepers[registryKey(venue, pair)]
	r.mu.RUnlock()
	return keeper, ok
}

func (r *Registry) All() []*Keeper {
	r.mu.RLock()
	out := make([]*Keeper, 0, len(r.keepers))
	for _, keeper := range r.keepers {
		out = append(out, keeper)
	}
	r.mu.RUnlock()
	return out
}
