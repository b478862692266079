package walletconnect

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/skip2/go-qrcode"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/chains/moralis"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
)

const (
	ID   = "walletconnect"
	Logo = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHZpZXdCb3g9IjAgMCAzMDAgMTg1Ij48cGF0aCBmaWxsPSIjM0I5OUZDIiBkPSJNNjEuNCAzNi4yYzQ4LjktNDcuOSAxMjguMy00Ny45IDE3Ny4yIDBsNS45IDUuOGMyLjQgMi40IDIuNCA2LjMgMCA4LjdsLTIwLjEgMTkuN2MtMS4yIDEuMi0zLjIgMS4yLTQuNCAwbC04LjEtNy45Yy0zNC4xLTMzLjQtODkuNC0zMy40LTEyMy41IDBsLTguNyA4LjVjLTEuMiAxLjItMy4yIDEuMi00LjQgMEwzNS4xIDUxLjNjLTIuNC0yLjQtMi40LTYuMyAwLTguN2wyNi4zLTYuNHoiLz48L3N2Zz4="
)

// Presenter shows the pairing QR code to the user.
type Presenter interface {
	Present(ctx context.Context, uri string, png []byte) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, uri string, png []byte) error

func (f PresenterFunc) Present(ctx context.Context, uri string, png []byte) error {
	return f(ctx, uri, png)
}

// TerminalPresenter prints the QR code as text.
type TerminalPresenter struct {
	Out io.Writer
}

func (p *TerminalPresenter) Present(_ context.Context, uri string, _ []byte) error {
	qr, err := qrcode.New(uri, qrcode.Medium)
	if err != nil {
		return errors.Wrap(err, "encode wallet connect qr code")
	}
	fmt.Fprintln(p.Out, qr.ToString(false))
	fmt.Fprintf(p.Out, "Scan with a WalletConnect wallet, or paste:\n%s\n", uri)
	return nil
}

// Descriptor builds the walletconnect entry. presenter is its package.
func Descriptor(presenter Presenter, opts connector.Options) *connector.Descriptor {
	return &connector.Descriptor{
		ID: ID,
		Display: &connector.Display{
			Logo:        Logo,
			Name:        "WalletConnect",
			Description: "Scan with WalletConnect to connect",
		},
		Options: opts,
		Package: presenter,
		Connect: Connect,
	}
}

// Connect pairs through a bridge. Options:
//
//	chain_id           required, the chain the dapp asks for
//	bridge             bridge url, a random public bridge when empty
//	rpc_url            node used for balance reads on every chain
//	ownership_message  when set the wallet must sign it
//	read_timeout       how long to wait for the wallet
//	app_name, app_description, app_url
func Connect(ctx context.Context, pkg interface{}, opts connector.Options) (*connector.Result, error) {
	presenter, ok := pkg.(Presenter)
	if !ok || presenter == nil {
		return nil, errors.New("walletconnect needs a QR presenter package")
	}
	if err := opts.Require("chain_id"); err != nil {
		return nil, err
	}
	chainID, ok := opts.Uint64("chain_id")
	if !ok {
		return nil, errors.Errorf("invalid chain_id %v", opts["chain_id"])
	}
	readTimeout, _ := opts.Duration("read_timeout")

	name := opts.String("app_name")
	if name == "" {
		name = "wallet-modal"
	}
	c := NewClient(Config{
		BridgeURL:   opts.String("bridge"),
		ReadTimeout: readTimeout,
		ChainID:     chainID,
		Meta: PeerMeta{
			Name:        name,
			Description: opts.String("app_description"),
			URL:         opts.String("app_url"),
		},
	})
	s, err := c.ConnectWallet(ctx, opts.String("ownership_message"), func(ctx context.Context) error {
		png, err := c.QRCode()
		if err != nil {
			return err
		}
		return presenter.Present(ctx, c.URI(), png)
	})
	if err != nil {
		return nil, err
	}

	sources := chains.NewSources(opts.String("rpc_url"), moralis.Fallback)
	return &connector.Result{
		Provider:    s,
		Signer:      &sessionSigner{session: s, sources: sources},
		GetNetwork:  s.Network,
		GetAccounts: s.Accounts,
		Close: func() error {
			defer sources.Close()
			return s.Close()
		},
	}, nil
}

// sessionSigner follows the session's current account and chain.
type sessionSigner struct {
	session *Session
	sources *chains.Sources
}

func (s *sessionSigner) Address(ctx context.Context) (string, error) {
	accounts, err := s.session.Accounts(ctx)
	if err != nil {
		return "", err
	}
	account, ok := accounts.Selected()
	if !ok {
		return "", errors.New("wallet exposes no account")
	}
	return account, nil
}

func (s *sessionSigner) Balance(ctx context.Context) (*big.Int, error) {
	account, err := s.Address(ctx)
	if err != nil {
		return nil, err
	}
	network, err := s.session.Network(ctx)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.For(ctx, network.ChainID)
	if err != nil {
		return nil, err
	}
	return src.BalanceOf(ctx, account)
}
