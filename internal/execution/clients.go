package execution

import (
	"fmt"
	"sync"

	"betexec/internal/domain"
)

// Clients is the registry of venue clients by name. The first client added
// is the default for orders that do not name one.
type Clients struct {
	mu      sync.RWMutex
	clients map[string]domain.VenueClient
	order   []string
}

func NewClients() *Clients {
	return &Clients{clients: make(map[string]domain.VenueClient)}
}

// Add registers a client. Names must be unique.
func (c *Clients) Add(client domain.VenueClient) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.clients[client.Name()]; ok {
		return fmt.Errorf("client %q already registered", client.Name())
	}
	c.clients[client.Name()] = client
	c.order = append(c.order, client.Name())
	return nil
}

// Get returns a client by name; an empty name returns the default client.
func (c *Clients) Get(name string) (domain.VenueClient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name == "" {
		if len(c.order) == 0 {
			return nil, false
		}
		name = c.order[0]
	}
	client, ok := c.clients[name]
	return client, ok
}

// Limits returns the validation limits of a client.
func (c *Clients) Limits(name string) (domain.ClientLimits, bool) {
	client, ok := c.Get(name)
	if !ok {
		return domain.ClientLimits{}, false
	}
	return client.Limits(), true
}

// All returns the clients in registration order.
func (c *Clients) All() []domain.VenueClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.VenueClient, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.clients[name])
	}
	return out
}

// ForExchange returns the first client registered for an exchange.
func (c *Clients) ForExchange(exchange domain.ExchangeType) (domain.VenueClient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range c.order {
		if client := c.clients[name]; client.Exchange() == exchange {
			return client, true
		}
	}
	return nil, false
}
