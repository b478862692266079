// Package builtin lists the connectors shipped with the module.
package builtin

import (
	"sort"

	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/connector/external"
	"moff.io/wallet-modal/internal/connector/injected"
	"moff.io/wallet-modal/internal/connector/walletconnect"
	"moff.io/wallet-modal/pkg/errors"
)

// Defaults are the connectors that need neither a package nor options.
func Defaults() []*connector.Descriptor {
	return []*connector.Descriptor{
		injected.Frame(),
		injected.LocalNode(),
	}
}

// Factory builds a descriptor of one kind. presenter is only used by kinds
// that pair through a QR code.
type Factory func(opts connector.Options, presenter walletconnect.Presenter) *connector.Descriptor

// Dictionary holds every connector kind by name.
var Dictionary = map[string]Factory{
	"injected": func(opts connector.Options, _ walletconnect.Presenter) *connector.Descriptor {
		d := injected.Frame()
		if len(opts) > 0 {
			d.Options = opts
		}
		return d
	},
	"localnode": func(opts connector.Options, _ walletconnect.Presenter) *connector.Descriptor {
		d := injected.LocalNode()
		if len(opts) > 0 {
			d.Options = opts
		}
		return d
	},
	walletconnect.ID: func(opts connector.Options, presenter walletconnect.Presenter) *connector.Descriptor {
		return walletconnect.Descriptor(presenter, opts)
	},
	"external": func(opts connector.Options, _ walletconnect.Presenter) *connector.Descriptor {
		return external.Descriptor(opts)
	},
}

// Kinds lists the dictionary keys in order.
func Kinds() []string {
	kinds := make([]string, 0, len(Dictionary))
	for k := range Dictionary {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// FromConfig builds the configured providers in order, Defaults when none
// are configured. Configured ids and display fields override the kind's.
func FromConfig(providers []config.Provider, presenter walletconnect.Presenter) ([]*connector.Descriptor, error) {
	if len(providers) == 0 {
		return Defaults(), nil
	}
	out := make([]*connector.Descriptor, 0, len(providers))
	for i, p := range providers {
		factory, ok := Dictionary[p.Kind]
		if !ok {
			return nil, errors.Errorf("provider %d: unknown kind %q, expected one of %v", i, p.Kind, Kinds())
		}
		d := factory(connector.Options(p.Options), presenter)
		if p.ID != "" {
			d.ID = p.ID
		}
		display := *d.Display
		if p.Display.Logo != "" {
			display.Logo = p.Display.Logo
		}
		if p.Display.Name != "" {
			display.Name = p.Display.Name
		}
		if p.Display.Description != "" {
			display.Description = p.Display.Description
		}
		d.Display = &display
		out = append(out, d)
	}
	return out, nil
}
