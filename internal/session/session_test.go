package session

import (
	"context"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
)

// fakeWallet is a connector whose answers the test flips between ticks.
type fakeWallet struct {
	mu       sync.Mutex
	chainID  uint64
	accounts connector.Accounts
	balance  *big.Int

	failNetwork  bool
	failAccounts bool
	failBalance  bool

	networkCalls atomic.Int64
	released     atomic.Int64
}

func newFakeWallet() *fakeWallet {
	wei, _ := chains.ParseEther("1.5")
	return &fakeWallet{
		chainID:  56,
		accounts: connector.Accounts{"0xABC"},
		balance:  wei,
	}
}

func (f *fakeWallet) set(fn func(f *fakeWallet)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeWallet) result() *connector.Result {
	return &connector.Result{
		Provider: "provider",
		Signer: chains.NewSigner("0xABC", chains.BalanceFunc(func(context.Context, string) (*big.Int, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failBalance {
				return nil, errors.New("balance unavailable")
			}
			return f.balance, nil
		})),
		GetNetwork: func(context.Context) (*connector.Network, error) {
			f.networkCalls.Inc()
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failNetwork {
				return nil, errors.New("network unavailable")
			}
			return &connector.Network{ChainID: f.chainID}, nil
		},
		GetAccounts: func(context.Context) (connector.Accounts, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failAccounts {
				return nil, errors.New("accounts unavailable")
			}
			return f.accounts, nil
		},
		Close: func() error {
			f.released.Inc()
			return nil
		},
	}
}

func (f *fakeWallet) descriptor() *connector.Descriptor {
	return &connector.Descriptor{
		ID:      "fake",
		Display: &connector.Display{Logo: "logo", Name: "Fake", Description: "fake wallet"},
		Connect: func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
			return f.result(), nil
		},
	}
}

// manual returns a session whose poller never fires on its own.
func manual() *Session {
	return New(Options{SyncRate: time.Hour, TickTimeout: time.Second})
}

func (s *Session) tickNow() {
	s.tick(context.Background(), s.poller.Current())
}

func TestConnectPublishesEveryField(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()

	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)
	assert.Equal(t, Connected, s.State())

	chainID, ok := conn.ChainID.Get()
	require.True(t, ok)
	assert.Equal(t, uint64(56), chainID)
	account, _ := conn.SelectedAccount.Get()
	assert.Equal(t, "0xABC", account)
	balance, _ := conn.BaseTokenBalance.Get()
	assert.Equal(t, "1.5", balance)
	provider, _ := conn.Provider.Get()
	assert.Equal(t, "provider", provider)
	connected, _ := conn.IsConnected.Get()
	assert.True(t, connected)

	snap := s.Snapshot()
	assert.Equal(t, "fake", snap.ConnectorID)
	assert.True(t, snap.IsConnected)
	require.NotNil(t, snap.ChainID)
	assert.Equal(t, uint64(56), *snap.ChainID)
}

func TestNetworkFailureClearsOnlyChainID(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	var published []bool
	conn.IsConnected.Subscribe(func(v bool, ok bool) {
		published = append(published, v)
	})

	w.set(func(f *fakeWallet) { f.failNetwork = true })
	s.tickNow()

	assert.False(t, conn.ChainID.Present())
	assert.True(t, conn.SelectedAccount.Present())
	assert.True(t, conn.BaseTokenBalance.Present())
	connected, _ := conn.IsConnected.Get()
	assert.False(t, connected)

	// a second failure publishes nothing new
	s.tickNow()
	assert.Equal(t, []bool{false}, published)

	w.set(func(f *fakeWallet) {
		f.failNetwork = false
		f.chainID = 1
	})
	s.tickNow()
	chainID, _ := conn.ChainID.Get()
	assert.Equal(t, uint64(1), chainID)
	assert.Equal(t, []bool{false, true}, published)
}

func TestUnchangedValuesAreNotRepublished(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	var count atomic.Int64
	conn.ChainID.Subscribe(func(uint64, bool) { count.Inc() })
	conn.SelectedAccount.Subscribe(func(string, bool) { count.Inc() })
	s.tickNow()
	s.tickNow()
	assert.Equal(t, int64(0), count.Load())

	w.set(func(f *fakeWallet) { f.accounts = connector.Accounts{"0xDEF", "0xABC"} })
	s.tickNow()
	assert.Equal(t, int64(1), count.Load())
	account, _ := conn.SelectedAccount.Get()
	assert.Equal(t, "0xDEF", account)
}

func TestEmptyAccountsPublishNull(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	w.set(func(f *fakeWallet) { f.accounts = nil })
	s.tickNow()
	assert.False(t, conn.SelectedAccount.Present())
	assert.True(t, conn.ChainID.Present())
	connected, _ := conn.IsConnected.Get()
	assert.False(t, connected)
}

func TestDisconnectClearsEverything(t *testing.T) {
	w := newFakeWallet()
	s := New(Options{SyncRate: 5 * time.Millisecond})
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, int64(1), w.released.Load())
	assert.False(t, conn.Provider.Present())
	assert.False(t, conn.Signer.Present())
	assert.False(t, conn.ChainID.Present())
	assert.False(t, conn.SelectedAccount.Present())
	assert.False(t, conn.BaseTokenBalance.Present())
	connected, ok := conn.IsConnected.Get()
	assert.True(t, ok)
	assert.False(t, connected)

	// a tick racing with Disconnect may still call the wallet
	time.Sleep(20 * time.Millisecond)
	calls := w.networkCalls.Load()
	var mutations atomic.Int64
	conn.ChainID.Subscribe(func(uint64, bool) { mutations.Inc() })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, w.networkCalls.Load())
	assert.Equal(t, int64(0), mutations.Load())
}

func TestConnectorFailures(t *testing.T) {
	boom := errors.New("no wallet found")
	tests := []struct {
		name   string
		err    error
		assert func(t *testing.T, err error)
	}{
		{
			name: "rejected",
			err:  connector.ErrUserRejected,
			assert: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, connector.ErrUserRejected)
				var ce *connector.ConnectorError
				assert.False(t, errors.As(err, &ce))
			},
		},
		{
			name: "absent",
			err:  boom,
			assert: func(t *testing.T, err error) {
				var ce *connector.ConnectorError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, "broken", ce.ID)
				assert.Equal(t, boom, ce.Err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := manual()
			defer s.Close()
			var calls int
			d := &connector.Descriptor{
				ID: "broken",
				Connect: func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
					calls++
					return nil, tt.err
				},
			}
			_, err := s.Connect(context.Background(), d)
			tt.assert(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, Idle, s.State())
			assert.False(t, s.Connection().Provider.Present())
		})
	}
}

func TestConnectWhileBusy(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()
	_, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	_, err = s.Connect(context.Background(), w.descriptor())
	assert.ErrorIs(t, err, connector.ErrAlreadyConnected)
	assert.ErrorIs(t, s.BeginChoosing(), connector.ErrAlreadyConnected)
	assert.Equal(t, Connected, s.State())
}

func TestConnectInProgress(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := w.descriptor()
	slow.Connect = func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
		close(entered)
		<-release
		return w.result(), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Connect(context.Background(), slow)
		done <- err
	}()
	<-entered
	assert.Equal(t, Connecting, s.State())
	_, err := s.Connect(context.Background(), w.descriptor())
	assert.ErrorIs(t, err, connector.ErrConnectInProgress)
	assert.ErrorIs(t, s.BeginChoosing(), connector.ErrConnectInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Connected, s.State())
}

func TestDisconnectDuringHandshake(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := w.descriptor()
	slow.Connect = func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
		close(entered)
		<-release
		return w.result(), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Connect(context.Background(), slow)
		done <- err
	}()
	<-entered
	s.Disconnect()
	close(release)

	assert.ErrorIs(t, <-done, connector.ErrDisconnected)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, int64(1), w.released.Load())
	assert.False(t, s.Connection().Provider.Present())
}

func TestChoosing(t *testing.T) {
	s := manual()
	defer s.Close()
	require.NoError(t, s.BeginChoosing())
	assert.Equal(t, Choosing, s.State())
	s.AbandonChoosing()
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.BeginChoosing())
	_, err := s.Connect(context.Background(), newFakeWallet().descriptor())
	require.NoError(t, err)
	s.AbandonChoosing()
	assert.Equal(t, Connected, s.State())
}

func TestSubscriberMayDisconnect(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()

	s.Connection().ChainID.Subscribe(func(v uint64, ok bool) {
		if ok && v == 1 {
			s.Disconnect()
		}
	})
	_, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	w.set(func(f *fakeWallet) { f.chainID = 1 })
	s.tickNow()
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.Connection().ChainID.Present())
}

func TestIsConnectedFollowsFieldsUnderRandomFailures(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		w.set(func(f *fakeWallet) {
			f.failNetwork = rnd.Intn(3) == 0
			f.failAccounts = rnd.Intn(3) == 0
			f.failBalance = rnd.Intn(3) == 0
			f.chainID = uint64(rnd.Intn(3) + 1)
		})
		s.tickNow()

		connected, ok := conn.IsConnected.Get()
		require.True(t, ok)
		require.Equal(t, conn.complete(), connected, "iteration %d", i)

		w.mu.Lock()
		assert.Equal(t, !w.failNetwork, conn.ChainID.Present())
		assert.Equal(t, !w.failAccounts, conn.SelectedAccount.Present())
		assert.Equal(t, !w.failBalance, conn.BaseTokenBalance.Present())
		w.mu.Unlock()
	}
}

func TestPollingPicksUpDrift(t *testing.T) {
	w := newFakeWallet()
	s := New(Options{SyncRate: 5 * time.Millisecond})
	defer s.Close()
	conn, err := s.Connect(context.Background(), w.descriptor())
	require.NoError(t, err)

	w.set(func(f *fakeWallet) { f.chainID = 137 })
	require.Eventually(t, func() bool {
		v, _ := conn.ChainID.Get()
		return v == 137
	}, time.Second, 5*time.Millisecond)
}

func TestNilProviderKeepsSessionDisconnected(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	defer s.Close()

	d := w.descriptor()
	d.Connect = func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
		res := w.result()
		res.Provider = nil
		return res, nil
	}
	conn, err := s.Connect(context.Background(), d)
	require.NoError(t, err)

	assert.False(t, conn.Provider.Present())
	assert.True(t, conn.ChainID.Present())
	assert.True(t, conn.SelectedAccount.Present())
	assert.True(t, conn.BaseTokenBalance.Present())
	connected, _ := conn.IsConnected.Get()
	assert.False(t, connected)
}

func TestClosedSessionRefusesConnect(t *testing.T) {
	w := newFakeWallet()
	s := manual()
	s.Close()

	calls := 0
	d := w.descriptor()
	d.Connect = func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
		calls++
		return w.result(), nil
	}
	_, err := s.Connect(context.Background(), d)
	assert.ErrorIs(t, err, connector.ErrClosed)
	assert.ErrorIs(t, s.BeginChoosing(), connector.ErrClosed)
	assert.Zero(t, calls)
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.poller.Running())
	assert.False(t, s.Connection().Provider.Present())
}

func TestCloseDuringHandshake(t *testing.T) {
	w := newFakeWallet()
	s := manual()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := w.descriptor()
	slow.Connect = func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
		close(entered)
		<-release
		return w.result(), nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Connect(context.Background(), slow)
		done <- err
	}()
	<-entered
	s.Close()
	close(release)

	assert.ErrorIs(t, <-done, connector.ErrDisconnected)
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.poller.Running())
}

func TestSecondChooserIsRefused(t *testing.T) {
	s := manual()
	defer s.Close()
	require.NoError(t, s.BeginChoosing())
	assert.ErrorIs(t, s.BeginChoosing(), connector.ErrConnectInProgress)
	assert.Equal(t, Choosing, s.State())

	// the owner can still finish
	_, err := s.Connect(context.Background(), newFakeWallet().descriptor())
	require.NoError(t, err)
	assert.Equal(t, Connected, s.State())
}
