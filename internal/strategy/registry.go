package strategy

import (
	"fmt"
	"sort"
	"sync"

	"betexec/internal/domain"
	"betexec/internal/infra"
)

// KindBase builds a BaseStrategy.
const KindBase = "base"

// Factory builds a strategy from its config.
type Factory func(cfg infra.StrategyConfig) (Strategy, error)

// Registry maps a strategy kind to its factory. Kinds are registered
// explicitly at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	_ = r.Register(KindBase, func(cfg infra.StrategyConfig) (Strategy, error) {
		return NewBaseStrategy(cfg), nil
	})
	return r
}

// Register adds a kind. Kinds cannot be registered twice.
func (r *Registry) Register(kind string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("strategy kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// New builds a strategy. An empty kind is KindBase.
func (r *Registry) New(cfg infra.StrategyConfig) (Strategy, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = KindBase
	}
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", domain.ErrUnknownStrategy, kind)
	}
	return f(cfg)
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
