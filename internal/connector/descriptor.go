// Package connector defines what a wallet connector is and keeps the ordered
// set of connectors a chooser offers.
package connector

import (
	"context"
	"math/big"
)

// Display is what a chooser renders for a connector.
type Display struct {
	Logo        string `json:"logo" yaml:"logo"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ConnectFunc negotiates with a wallet. It is called at most once per
// connect attempt with the descriptor's Package and Options. It must fail
// with ErrUserRejected when the user declines, and with a descriptive error
// when the wallet is absent.
type ConnectFunc func(ctx context.Context, pkg interface{}, opts Options) (*Result, error)

// Descriptor is one registry entry.
type Descriptor struct {
	ID      string
	Display *Display
	// Options may be nil.
	Options Options
	// Package is handed to Connect untouched, may be nil.
	Package interface{}
	Connect ConnectFunc
}

// Network is what GetNetwork reports.
type Network struct {
	ChainID uint64
}

// Accounts lists the wallet's exposed accounts, selected account first. A
// wallet that exposes a single account returns a one element slice.
type Accounts []string

// Selected returns the first account.
func (a Accounts) Selected() (string, bool) {
	if len(a) == 0 || a[0] == "" {
		return "", false
	}
	return a[0], true
}

// Signer is the account-bound handle a connector returns. Only balance
// queries are made through it.
type Signer interface {
	Address(ctx context.Context) (string, error)
	// Balance returns the base token balance in its smallest unit.
	Balance(ctx context.Context) (*big.Int, error)
}

// Result is produced once per successful Connect and owned by the session
// that requested it.
type Result struct {
	// Provider is an opaque handle, typically a chain client.
	Provider    interface{}
	Signer      Signer
	GetNetwork  func(ctx context.Context) (*Network, error)
	GetAccounts func(ctx context.Context) (Accounts, error)
	// Close releases transports held by the connector, may be nil.
	Close func() error
}

// Release calls Close when present.
func (r *Result) Release() error {
	if r == nil || r.Close == nil {
		return nil
	}
	return r.Close()
}
