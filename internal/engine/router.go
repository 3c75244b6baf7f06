package engine

import (
	"context"
	"fmt"
	"sync"

	"betexec/internal/domain"
)

// Router sends each package to the sequencer of its client's exchange.
// Exchanges run independently of each other.
type Router struct {
	mu         sync.RWMutex
	sequencers map[domain.ExchangeType]*Sequencer
	wg         sync.WaitGroup
}

func NewRouter() *Router {
	return &Router{sequencers: make(map[domain.ExchangeType]*Sequencer)}
}

// Add registers a sequencer. One sequencer per exchange.
func (r *Router) Add(s *Sequencer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sequencers[s.Exchange()]; ok {
		return fmt.Errorf("sequencer for %s already registered", s.Exchange())
	}
	r.sequencers[s.Exchange()] = s
	return nil
}

func (r *Router) Get(exchange domain.ExchangeType) (*Sequencer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sequencers[exchange]
	return s, ok
}

// Submit queues pkg on its exchange's sequencer.
func (r *Router) Submit(pkg *domain.OrderPackage) error {
	if pkg.Client() == nil {
		return domain.ErrUnknownClient
	}
	s, ok := r.Get(pkg.Exchange())
	if !ok {
		return fmt.Errorf("no sequencer for %s: %w", pkg.Exchange(), domain.ErrUnknownClient)
	}
	return s.Submit(pkg)
}

// Start runs every registered sequencer in its own goroutine.
func (r *Router) Start(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sequencers {
		r.wg.Add(1)
		go func(s *Sequencer) {
			defer r.wg.Done()
			s.Run(ctx)
		}(s)
	}
}

// Wait blocks until every sequencer has stopped.
func (r *Router) Wait() {
	r.wg.Wait()
}
