package injected

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/connector"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeWallet answers the handful of methods the connector calls.
type fakeWallet struct {
	mu       sync.Mutex
	chainID  string
	accounts []string
	balance  string
	// requestErr answers eth_requestAccounts when set
	requestErr *rpcError
	calls      map[string]int
}

func (f *fakeWallet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.Method]++

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_requestAccounts":
		if f.requestErr != nil {
			resp["error"] = f.requestErr
		} else {
			resp["result"] = f.accounts
		}
	case "eth_accounts":
		resp["result"] = f.accounts
	case "eth_chainId":
		resp["result"] = f.chainID
	case "eth_getBalance":
		resp["result"] = f.balance
	default:
		resp["error"] = &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newFake() *fakeWallet {
	return &fakeWallet{
		chainID:  "0x38",
		accounts: []string{"0x00000000000000000000000000000000000000ab"},
		// 1.5 ether
		balance: "0x14d1120d7b160000",
	}
}

func TestConnect(t *testing.T) {
	f := newFake()
	srv := httptest.NewServer(f)
	defer srv.Close()
	ctx := context.Background()

	res, err := Connect(ctx, nil, connector.Options{"rpc_url": srv.URL, "max_rps": 1000})
	require.NoError(t, err)
	defer res.Release()

	network, err := res.GetNetwork(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(56), network.ChainID)

	accounts, err := res.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, connector.Accounts{"0x00000000000000000000000000000000000000ab"}, accounts)

	balance, err := res.Signer.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.5", chains.FormatEther(balance))

	// the wallet switched network
	f.mu.Lock()
	f.chainID = "0x1"
	f.mu.Unlock()
	network, err = res.GetNetwork(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), network.ChainID)
}

func TestThrottledCallGivesUpWithContext(t *testing.T) {
	f := newFake()
	srv := httptest.NewServer(f)
	defer srv.Close()

	// the handshake uses the only slot of this second
	res, err := Connect(context.Background(), nil, connector.Options{"rpc_url": srv.URL, "max_rps": 1})
	require.NoError(t, err)
	defer res.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = res.GetNetwork(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Zero(t, f.calls["eth_chainId"])
}

func TestConnectUserRejected(t *testing.T) {
	f := newFake()
	f.requestErr = &rpcError{Code: codeUserRejected, Message: "User rejected the request."}
	srv := httptest.NewServer(f)
	defer srv.Close()

	_, err := Connect(context.Background(), nil, connector.Options{"rpc_url": srv.URL})
	assert.ErrorIs(t, err, connector.ErrUserRejected)
}

func TestConnectFallsBackToAccounts(t *testing.T) {
	f := newFake()
	f.requestErr = &rpcError{Code: codeMethodNotFound, Message: "the method eth_requestAccounts does not exist"}
	srv := httptest.NewServer(f)
	defer srv.Close()

	res, err := Connect(context.Background(), nil, connector.Options{"rpc_url": srv.URL})
	require.NoError(t, err)
	defer res.Release()
	assert.Equal(t, 1, f.calls["eth_accounts"])
}

func TestConnectWithoutAccounts(t *testing.T) {
	f := newFake()
	f.accounts = []string{}
	srv := httptest.NewServer(f)
	defer srv.Close()

	_, err := Connect(context.Background(), nil, connector.Options{"rpc_url": srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exposes no account")
}

func TestConnectWithoutWallet(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(context.Background(), nil, connector.Options{"rpc_url": url})
	require.Error(t, err)
	assert.NotErrorIs(t, err, connector.ErrUserRejected)

	_, err = Connect(context.Background(), nil, connector.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url")
}

func TestDescriptorsAreValid(t *testing.T) {
	_, err := connector.NewRegistry(Frame(), LocalNode())
	require.NoError(t, err)
}
