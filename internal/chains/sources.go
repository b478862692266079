package chains

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"moff.io/wallet-modal/pkg/errors"
)

// Sources hands out one balance source per chain, dialing nodes on first
// use. A wallet that switches networks keeps reading balances on the chain
// it currently reports.
type Sources struct {
	// override is dialed for every chain when set.
	override string
	fallback func(chainID uint64) BalanceSource

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewSources builds Sources. fallback is asked for chains without a known
// RPC endpoint and may be nil.
func NewSources(override string, fallback func(chainID uint64) BalanceSource) *Sources {
	return &Sources{
		override: override,
		fallback: fallback,
		clients:  make(map[string]*ethclient.Client),
	}
}

func (s *Sources) For(ctx context.Context, chainID uint64) (BalanceSource, error) {
	url := s.override
	if url == "" {
		if c, ok := ByID(chainID); ok {
			url = c.RPCURL
		}
	}
	if url == "" {
		if s.fallback != nil {
			if src := s.fallback(chainID); src != nil {
				return src, nil
			}
		}
		return nil, errors.Errorf("no balance source for chain %d", chainID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.clients[url]; ok {
		return NewNodeSource(client), nil
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %v", url)
	}
	s.clients[url] = client
	return NewNodeSource(client), nil
}

func (s *Sources) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for url, client := range s.clients {
		client.Close()
		delete(s.clients, url)
	}
}
