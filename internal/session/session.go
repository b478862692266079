// Package session runs one wallet connection: the connect handshake, the
// cached connection values and the poll loop that keeps them current.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/poller"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
	"moff.io/wallet-modal/pkg/observable"
)

type State int

const (
	Idle State = iota
	Choosing
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Choosing:
		return "choosing"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

const DefaultTickTimeout = 10 * time.Second

type Options struct {
	// SyncRate is the pause between poll ticks, poller.DefaultInterval when zero.
	SyncRate time.Duration
	// TickTimeout bounds each field check of a tick.
	TickTimeout time.Duration
}

// Connection is the set of values a host subscribes to. IsConnected is true
// exactly when the other five are present.
type Connection struct {
	Provider         *observable.Value[interface{}]
	Signer           *observable.Value[connector.Signer]
	ChainID          *observable.Value[uint64]
	SelectedAccount  *observable.Value[string]
	BaseTokenBalance *observable.Value[string]
	IsConnected      *observable.Value[bool]
}

func newConnection() *Connection {
	return &Connection{
		Provider:         observable.New[interface{}](),
		Signer:           observable.New[connector.Signer](),
		ChainID:          observable.New[uint64](),
		SelectedAccount:  observable.New[string](),
		BaseTokenBalance: observable.New[string](),
		IsConnected:      observable.New[bool](),
	}
}

func (c *Connection) complete() bool {
	return c.Provider.Present() &&
		c.Signer.Present() &&
		c.ChainID.Present() &&
		c.SelectedAccount.Present() &&
		c.BaseTokenBalance.Present()
}

// Snapshot is a point-in-time copy of a Connection, nil fields are unset.
type Snapshot struct {
	ConnectorID      string  `json:"connector_id,omitempty"`
	ChainID          *uint64 `json:"chain_id"`
	SelectedAccount  *string `json:"selected_account"`
	BaseTokenBalance *string `json:"base_token_balance"`
	IsConnected      bool    `json:"is_connected"`
}

type Session struct {
	id   string
	opts Options
	conn *Connection

	ctx    context.Context
	cancel context.CancelFunc
	poller *poller.Controller

	// mu guards the state machine. Lock order is mu then writeMu.
	mu          sync.Mutex
	state       State
	connectorID string
	closed      bool

	// writeMu serializes stores into conn.
	writeMu sync.Mutex
	epoch   uint64
	result  *connector.Result
}

func New(opts Options) *Session {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = DefaultTickTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.NewString(),
		opts:   opts,
		conn:   newConnection(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.poller = poller.New(opts.SyncRate, s.tick)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Connection() *Connection {
	return s.conn
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectorID is the id of the connector of the current or last handshake.
func (s *Session) ConnectorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectorID
}

func (s *Session) Snapshot() *Snapshot {
	out := &Snapshot{ConnectorID: s.ConnectorID()}
	if v, ok := s.conn.ChainID.Get(); ok {
		out.ChainID = &v
	}
	if v, ok := s.conn.SelectedAccount.Get(); ok {
		out.SelectedAccount = &v
	}
	if v, ok := s.conn.BaseTokenBalance.Get(); ok {
		out.BaseTokenBalance = &v
	}
	out.IsConnected, _ = s.conn.IsConnected.Get()
	return out
}

// busy returns the error for a connect attempt in state st, nil when allowed.
func busy(st State) error {
	switch st {
	case Connecting:
		return connector.ErrConnectInProgress
	case Connected:
		return connector.ErrAlreadyConnected
	}
	return nil
}

// BeginChoosing moves Idle to Choosing. Only one caller may choose at a
// time, a second one gets ErrConnectInProgress.
func (s *Session) BeginChoosing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return connector.ErrClosed
	}
	if s.state == Choosing {
		return connector.ErrConnectInProgress
	}
	if err := busy(s.state); err != nil {
		return err
	}
	s.state = Choosing
	return nil
}

// AbandonChoosing moves Choosing back to Idle, other states are untouched.
func (s *Session) AbandonChoosing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Choosing {
		s.state = Idle
	}
}

// Connect runs d's handshake and returns once the first poll tick has
// settled. From Choosing it is meant for the caller that began choosing. A
// connector failure leaves the session Idle.
func (s *Session) Connect(ctx context.Context, d *connector.Descriptor) (*Connection, error) {
	if d == nil || d.Connect == nil {
		return nil, errors.New("connect without a connector")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, connector.ErrClosed
	}
	if err := busy(s.state); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = Connecting
	s.connectorID = d.ID
	s.writeMu.Lock()
	epoch := s.epoch
	s.writeMu.Unlock()
	s.mu.Unlock()

	logger := log.WithFields(log.Fields{"session": s.id, "connector": d.ID})
	logger.Infof("connecting")

	res, err := d.Connect(ctx, d.Package, d.Options)
	if err == nil && res == nil {
		err = errors.New("connector returned no result")
	}
	if err != nil {
		s.mu.Lock()
		if s.state == Connecting {
			s.state = Idle
		}
		s.mu.Unlock()
		if errors.Is(err, connector.ErrUserRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Infof("connect aborted: %v", err)
			return nil, err
		}
		logger.Warnf("connect failed: %v", err)
		return nil, &connector.ConnectorError{ID: d.ID, Err: err}
	}

	s.mu.Lock()
	s.writeMu.Lock()
	if s.epoch != epoch {
		s.writeMu.Unlock()
		s.mu.Unlock()
		if err := res.Release(); err != nil {
			logger.Warnf("release stale connection: %v", err)
		}
		return nil, connector.ErrDisconnected
	}
	s.result = res
	var batch []observable.Notification
	if res.Provider != nil {
		batch = append(batch, s.conn.Provider.Set(res.Provider))
	} else {
		n, _ := observable.UnsetIfPresent(s.conn.Provider)
		batch = append(batch, n)
	}
	if res.Signer != nil {
		batch = append(batch, s.conn.Signer.Set(res.Signer))
	} else {
		n, _ := observable.UnsetIfPresent(s.conn.Signer)
		batch = append(batch, n)
	}
	batch = append(batch, s.derive())
	s.state = Connected
	s.writeMu.Unlock()
	s.mu.Unlock()
	deliver(batch)

	s.poller.Start(s.ctx)

	if s.State() != Connected {
		return nil, connector.ErrDisconnected
	}
	logger.Infof("connected")
	return s.conn, nil
}

// Disconnect stops polling, clears every value in one batch and releases the
// connector. It never fails and may be called in any state.
func (s *Session) Disconnect() {
	s.poller.Stop()

	s.mu.Lock()
	s.writeMu.Lock()
	s.epoch++
	res := s.result
	s.result = nil
	wasConnected := s.state == Connected
	// an in-flight handshake sees the new epoch and gives up
	s.state = Idle
	batch := []observable.Notification{
		first(observable.UnsetIfPresent(s.conn.Provider)),
		first(observable.UnsetIfPresent(s.conn.Signer)),
		first(observable.UnsetIfPresent(s.conn.ChainID)),
		first(observable.UnsetIfPresent(s.conn.SelectedAccount)),
		first(observable.UnsetIfPresent(s.conn.BaseTokenBalance)),
	}
	batch = append(batch, s.derive())
	s.writeMu.Unlock()
	s.mu.Unlock()

	if err := res.Release(); err != nil {
		log.WithFields(log.Fields{"session": s.id}).Warnf("release connection: %v", err)
	}
	if wasConnected {
		log.WithFields(log.Fields{"session": s.id}).Infof("disconnected")
	}
	deliver(batch)
}

// Close disconnects and ends the session for good. Later connect calls fail
// with connector.ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Disconnect()
	s.cancel()
}

// derive recomputes IsConnected. Must hold writeMu.
func (s *Session) derive() observable.Notification {
	n, _ := observable.SetIfChanged(s.conn.IsConnected, s.conn.complete())
	return n
}

func first(n observable.Notification, _ bool) observable.Notification {
	return n
}

func deliver(batch []observable.Notification) {
	for _, n := range batch {
		n.Deliver()
	}
}
