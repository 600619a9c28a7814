package settlement

import (
	"sync"

	"github.com/alisproject111/tripeasy-client/internal/store"
)

// Registry hands out at most one orchestrator per order id per process, so
// concurrent gateway-return hits for the same order join the same run.
type Registry struct {
	api    API
	kv     store.KV
	notify Notifier

	mu     sync.Mutex
	orders map[string]*Orchestrator
}

// NewRegistry creates a registry backed by the given API client, session
// store and status notifier.
func NewRegistry(api API, kv store.KV, notify Notifier) *Registry {
	return &Registry{
		api:    api,
		kv:     kv,
		notify: notify,
		orders: make(map[string]*Orchestrator),
	}
}

// For returns the orchestrator for an order, creating it on first use.
func (r *Registry) For(orderID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.orders[orderID]; ok {
		return o
	}
	o := New(orderID, r.api, r.kv, r.notify)
	r.orders[orderID] = o
	return o
}

// Lookup returns the orchestrator for an order if one exists.
func (r *Registry) Lookup(orderID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	return o, ok
}
