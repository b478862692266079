// Package injected connects to a wallet that serves JSON-RPC on the local
// machine, such as the Frame desktop wallet or a dev node with unlocked
// accounts.
package injected

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/ratelimit"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

const (
	FrameURL     = "http://127.0.0.1:1248"
	LocalNodeURL = "http://127.0.0.1:8545"

	// EIP-1193 user rejected request
	codeUserRejected = 4001
	// JSON-RPC method not found
	codeMethodNotFound = -32601
)

func Frame() *connector.Descriptor {
	return &connector.Descriptor{
		ID: "injected",
		Display: &connector.Display{
			Logo:        "https://frame.sh/favicon.svg",
			Name:        "Frame",
			Description: "Connect with the Frame desktop wallet",
		},
		Options: connector.Options{"rpc_url": FrameURL},
		Connect: Connect,
	}
}

func LocalNode() *connector.Descriptor {
	return &connector.Descriptor{
		ID: "localnode",
		Display: &connector.Display{
			Logo:        "https://geth.ethereum.org/static/images/mascot.png",
			Name:        "Local node",
			Description: "Use the unlocked accounts of a node on " + LocalNodeURL,
		},
		Options: connector.Options{"rpc_url": LocalNodeURL},
		Connect: Connect,
	}
}

// Connect asks the wallet at rpc_url for its accounts. Options:
//
//	rpc_url  required
//	max_rps  throttles every call made through the result, unlimited when 0.
//	         A call gives up with ctx's error while it waits for a slot.
func Connect(ctx context.Context, _ interface{}, opts connector.Options) (*connector.Result, error) {
	if err := opts.Require("rpc_url"); err != nil {
		return nil, err
	}
	url := opts.String("rpc_url")
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "no wallet found at %v", url)
	}
	w := &wallet{
		rpc:     client,
		eth:     ethclient.NewClient(client),
		limiter: ratelimit.NewUnlimited(),
	}
	if rps, ok := opts.Int("max_rps"); ok && rps > 0 {
		w.limiter = ratelimit.New(rps, ratelimit.WithoutSlack)
		w.throttled = true
	}

	accounts, err := w.requestAccounts(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	if _, ok := accounts.Selected(); !ok {
		client.Close()
		return nil, errors.Errorf("wallet at %v exposes no account", url)
	}
	log.Debugf("injected wallet at %v exposes %d accounts", url, len(accounts))

	return &connector.Result{
		Provider:    w.eth,
		Signer:      w,
		GetNetwork:  w.network,
		GetAccounts: w.accounts,
		Close: func() error {
			client.Close()
			return nil
		},
	}, nil
}

type wallet struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	limiter ratelimit.Limiter
	// throttled is false for the unlimited limiter, whose Take never blocks
	throttled bool
}

// take waits for a limiter slot or for ctx. An abandoned wait still uses up
// its slot.
func (w *wallet) take(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if !w.throttled {
		w.limiter.Take()
		return nil
	}
	done := make(chan struct{})
	go func() {
		w.limiter.Take()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func (w *wallet) requestAccounts(ctx context.Context) (connector.Accounts, error) {
	if err := w.take(ctx); err != nil {
		return nil, err
	}
	var accounts []string
	err := w.rpc.CallContext(ctx, &accounts, "eth_requestAccounts")
	if code, ok := rpcCode(err); ok {
		switch code {
		case codeUserRejected:
			return nil, connector.ErrUserRejected
		case codeMethodNotFound:
			return w.accounts(ctx)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "request accounts")
	}
	return accounts, nil
}

func (w *wallet) accounts(ctx context.Context) (connector.Accounts, error) {
	if err := w.take(ctx); err != nil {
		return nil, err
	}
	var accounts []string
	if err := w.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Wrap(err, "list accounts")
	}
	return accounts, nil
}

func (w *wallet) network(ctx context.Context) (*connector.Network, error) {
	if err := w.take(ctx); err != nil {
		return nil, err
	}
	id, err := w.eth.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read chain id")
	}
	return &connector.Network{ChainID: id.Uint64()}, nil
}

func (w *wallet) Address(ctx context.Context) (string, error) {
	accounts, err := w.accounts(ctx)
	if err != nil {
		return "", err
	}
	account, ok := accounts.Selected()
	if !ok {
		return "", errors.New("wallet exposes no account")
	}
	return account, nil
}

func (w *wallet) Balance(ctx context.Context) (*big.Int, error) {
	account, err := w.Address(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.take(ctx); err != nil {
		return nil, err
	}
	balance, err := w.eth.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, errors.Wrap(err, "read balance")
	}
	return balance, nil
}

func rpcCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if err != nil && errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}
