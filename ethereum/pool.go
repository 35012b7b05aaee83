package ethereum

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mrinallcx/payagent-core/chains"
)

// Pool hands out one lazily-dialed Client per network. Clients are shared
// across requests; go-ethereum's client is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	registry *chains.Registry
	clients  map[string]*Client
}

func NewPool(registry *chains.Registry) *Pool {
	return &Pool{
		registry: registry,
		clients:  make(map[string]*Client),
	}
}

// NewPoolWithClients seeds the pool with prebuilt clients, used by tests.
func NewPoolWithClients(registry *chains.Registry, clients map[string]*Client) *Pool {
	p := NewPool(registry)
	for network, c := range clients {
		p.clients[network] = c
	}
	return p
}

// ForNetwork returns the client for a canonical network name, dialing the
// registry-resolved endpoint on first use.
func (p *Pool) ForNetwork(network string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[network]; ok {
		return c, nil
	}

	rpcURL := p.registry.RPCEndpoint(network)
	if rpcURL == "" {
		return nil, fmt.Errorf("no rpc endpoint for network %s", network)
	}

	c, err := NewClient(rpcURL)
	if err != nil {
		return nil, err
	}
	p.clients[network] = c
	return c, nil
}

// TokenBalance reads holder's balance of token on network.
func (p *Pool) TokenBalance(ctx context.Context, network string, token, holder common.Address) (sdkmath.Int, error) {
	c, err := p.ForNetwork(network)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return c.TokenBalance(ctx, token, holder)
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Close()
	}
	p.clients = make(map[string]*Client)
}
