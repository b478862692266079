// Package external connects to a Clef compatible external signer. Clef
// knows accounts but not chains, so chain and balance reads go to a node.
package external

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/ethclient"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

const ID = "clef"

// Descriptor needs the clef endpoint and a node url.
func Descriptor(opts connector.Options) *connector.Descriptor {
	return &connector.Descriptor{
		ID: ID,
		Display: &connector.Display{
			Logo:        "https://geth.ethereum.org/static/images/clef.png",
			Name:        "Clef",
			Description: "Connect with the Clef external signer",
		},
		Options: opts,
		Connect: Connect,
	}
}

// Connect lists clef's accounts. Options:
//
//	endpoint  clef ipc path or http url
//	rpc_url   node used for chain id and balance reads
//
// Clef answers an account listing the user denied with an empty list, which
// is reported as a rejection.
func Connect(ctx context.Context, _ interface{}, opts connector.Options) (*connector.Result, error) {
	if err := opts.Require("endpoint", "rpc_url"); err != nil {
		return nil, err
	}
	signer, err := external.NewExternalSigner(opts.String("endpoint"))
	if err != nil {
		return nil, errors.Wrapf(err, "no external signer at %v", opts.String("endpoint"))
	}
	list := signer.Accounts()
	if len(list) == 0 {
		_ = signer.Close()
		return nil, connector.ErrUserRejected
	}
	accounts := make(connector.Accounts, len(list))
	for i, a := range list {
		accounts[i] = a.Address.Hex()
	}
	log.Debugf("external signer %v exposes %d accounts", signer.URL(), len(accounts))

	node, err := ethclient.DialContext(ctx, opts.String("rpc_url"))
	if err != nil {
		_ = signer.Close()
		return nil, errors.Wrap(err, "dial node")
	}

	return &connector.Result{
		Provider: node,
		Signer:   chains.NewSigner(accounts[0], chains.NewNodeSource(node)),
		GetNetwork: func(ctx context.Context) (*connector.Network, error) {
			id, err := node.ChainID(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "read chain id")
			}
			return &connector.Network{ChainID: id.Uint64()}, nil
		},
		// clef prompts on every listing, so the connect time list is kept
		GetAccounts: func(context.Context) (connector.Accounts, error) {
			return append(connector.Accounts(nil), accounts...), nil
		},
		Close: func() error {
			node.Close()
			return signer.Close()
		},
	}, nil
}
