// Package starter starts long running components in order.
package starter

import (
	"context"

	"moff.io/wallet-modal/internal/config"
)

type Startable interface {
	Start(ctx context.Context)
}

type Configurable interface {
	Apply(*config.Configuration)
}

// Start applies config.Global to configurable elements before starting them.
func Start(ctx context.Context, elems ...Startable) {
	for _, ele := range elems {
		if configurable, ok := ele.(Configurable); ok {
			configurable.Apply(config.Global)
		}
		ele.Start(ctx)
	}
}

type Stopable interface {
	Stop()
}

// Stop stops elements in reverse order.
func Stop(elems ...Stopable) {
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i].Stop()
	}
}
