package strategy

import (
	"fmt"
	"sync"

	"betexec/internal/domain"
)

// Strategies holds the running strategies, addressable by name and by the
// name hash carried in customer order refs.
type Strategies struct {
	mu     sync.RWMutex
	byName map[string]Strategy
	byHash map[string]Strategy
	order  []Strategy
}

func NewStrategies() *Strategies {
	return &Strategies{
		byName: make(map[string]Strategy),
		byHash: make(map[string]Strategy),
	}
}

// Add registers a strategy. Names and hashes must be unique.
func (s *Strategies) Add(st Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[st.Name()]; ok {
		return fmt.Errorf("strategy %q already added", st.Name())
	}
	if other, ok := s.byHash[st.NameHash()]; ok {
		return fmt.Errorf("strategy %q name hash collides with %q", st.Name(), other.Name())
	}
	s.byName[st.Name()] = st
	s.byHash[st.NameHash()] = st
	s.order = append(s.order, st)
	return nil
}

func (s *Strategies) ByName(name string) (Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byName[name]
	return st, ok
}

// ByNameHash satisfies process.StrategyLookup.
func (s *Strategies) ByNameHash(hash string) (domain.Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byHash[hash]
	if !ok {
		return nil, false
	}
	return st, true
}

// All returns the strategies in the order they were added.
func (s *Strategies) All() []Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Strategy(nil), s.order...)
}

// RemoveMarket drops a closed market from every strategy.
func (s *Strategies) RemoveMarket(marketID string) {
	for _, st := range s.All() {
		st.RemoveMarket(marketID)
	}
}
