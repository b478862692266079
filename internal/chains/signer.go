package chains

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"moff.io/wallet-modal/pkg/errors"
)

// BalanceSource reads the base token balance of an address in wei.
type BalanceSource interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}

// BalanceReader is the part of ethclient.Client a NodeSource needs.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// NodeSource reads balances at the latest block from a node.
type NodeSource struct {
	reader BalanceReader
}

func NewNodeSource(reader BalanceReader) *NodeSource {
	return &NodeSource{reader: reader}
}

func (s *NodeSource) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.Errorf("invalid address %v", address)
	}
	balance, err := s.reader.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, errors.Wrap(err, "read balance")
	}
	return balance, nil
}

// Signer is an address bound to a balance source. It holds no keys.
type Signer struct {
	address string
	source  BalanceSource
}

func NewSigner(address string, source BalanceSource) *Signer {
	return &Signer{address: address, source: source}
}

func (s *Signer) Address(context.Context) (string, error) {
	if s.address == "" {
		return "", errors.New("signer has no address")
	}
	return s.address, nil
}

func (s *Signer) Balance(ctx context.Context) (*big.Int, error) {
	if s.source == nil {
		return nil, errors.New("signer has no balance source")
	}
	return s.source.BalanceOf(ctx, s.address)
}

// BalanceFunc adapts a function to BalanceSource.
type BalanceFunc func(ctx context.Context, address string) (*big.Int, error)

func (f BalanceFunc) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	return f(ctx, address)
}
