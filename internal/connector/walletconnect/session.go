package walletconnect

import (
	"context"
	"sync"

	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

// Session is an approved connection. It keeps the bridge socket open and
// applies the wallet's wc_sessionUpdate messages.
type Session struct {
	c *client

	mu       sync.RWMutex
	peer     PeerMeta
	peerID   string
	chainID  uint64
	accounts []string
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(c *client, w *Wallet) *Session {
	return &Session{
		c:        c,
		peer:     w.Meta,
		peerID:   w.PeerID,
		chainID:  w.ChainID,
		accounts: append([]string(nil), w.Accounts...),
		done:     make(chan struct{}),
	}
}

func (s *Session) listen() {
	defer close(s.done)
	defer s.markClosed()
	for {
		payload, err := s.c.readWalletConnectResponse(0)
		if err != nil {
			if !errors.Is(err, errSessionClosed) && !s.Closed() {
				log.Warnf("wallet connect - bridge read: %v", err)
			}
			return
		}
		if payload == "" {
			continue
		}
		update, ok := parseSessionUpdate(payload)
		if !ok {
			log.Debugf("wallet connect - ignore message %v", payload)
			continue
		}
		if !update.Approved {
			log.Infof("wallet connect - wallet %v ended the session", s.peer.Name)
			s.c.close()
			return
		}
		s.apply(update)
	}
}

func (s *Session) apply(update *sessionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update.ChainID != nil {
		s.chainID = *update.ChainID
	}
	if update.Accounts != nil {
		s.accounts = append([]string(nil), update.Accounts...)
	}
	log.Debugf("wallet connect - session updated, chain %v accounts %v", s.chainID, s.accounts)
}

func (s *Session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Peer describes the connected wallet app.
func (s *Session) Peer() PeerMeta {
	return s.peer
}

func (s *Session) Network(context.Context) (*connector.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errSessionClosed
	}
	return &connector.Network{ChainID: s.chainID}, nil
}

func (s *Session) Accounts(context.Context) (connector.Accounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errSessionClosed
	}
	return append(connector.Accounts(nil), s.accounts...), nil
}

// Close ends the session on both sides and waits for the reader to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if !s.Closed() {
			s.c.killSession()
		}
		s.markClosed()
		s.c.close()
	})
	<-s.done
	return nil
}
