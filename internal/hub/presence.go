package hub

import (
	"sort"
	"sync"
)

// PresenceRegistry maps an identity to its live connections. One user may
// hold several connections at once (tabs, devices); presence for an identity
// with zero connections is absent, not "offline".
//
// Every mutation is a single map insert or delete under one lock, so state
// can never be observed mid-transition.
type PresenceRegistry struct {
	mu         sync.RWMutex
	byIdentity map[string]map[string]*Client // identity -> connection id -> client
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byIdentity: make(map[string]map[string]*Client),
	}
}

// Register adds a connection to its identity's set and reports whether this
// is the identity's first live connection.
func (p *PresenceRegistry) Register(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.byIdentity[c.identity]
	if !ok {
		conns = make(map[string]*Client)
		p.byIdentity[c.identity] = conns
	}
	conns[c.ID] = c
	return !ok
}

// Unregister removes a connection and reports whether its identity now has
// zero live connections. The identity entry itself is deleted in that case:
// absence and "offline" are the same state.
func (p *PresenceRegistry) Unregister(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.byIdentity[c.identity]
	if !ok {
		return false
	}
	delete(conns, c.ID)
	if len(conns) == 0 {
		delete(p.byIdentity, c.identity)
		return true
	}
	return false
}

// Snapshot returns every identity with at least one live connection, sorted
// for stable output. Servable on demand so a client never depends on having
// seen every delta.
func (p *PresenceRegistry) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	identities := make([]string, 0, len(p.byIdentity))
	for identity := range p.byIdentity {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities
}

// ClientsFor returns the live connections bound to an identity.
func (p *PresenceRegistry) ClientsFor(identity string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.byIdentity[identity]
	clients := make([]*Client, 0, len(conns))
	for _, c := range conns {
		clients = append(clients, c)
	}
	return clients
}

// AllClients returns every live connection across all identities.
func (p *PresenceRegistry) AllClients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var clients []*Client
	for _, conns := range p.byIdentity {
		for _, c := range conns {
			clients = append(clients, c)
		}
	}
	return clients
}

// IsOnline reports whether the identity has at least one live connection.
func (p *PresenceRegistry) IsOnline(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.byIdentity[identity]
	return ok
}

// counts returns (connections, identities) for monitoring.
func (p *PresenceRegistry) counts() (int, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := 0
	for _, conns := range p.byIdentity {
		total += len(conns)
	}
	return total, len(p.byIdentity)
}
