package http

import (
	"context"
	"sync"

	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/selection"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

var (
	ErrNoPendingChoice = errors.New("no choice pending")
	ErrChoicePending   = errors.New("another choice is pending")
)

// Chooser waits for the chooser page to call Pick or Dismiss on this
// instance.
type Chooser struct {
	mu      sync.Mutex
	pending *choice
}

type choice struct {
	presentation selection.Presentation
	descriptors  []*connector.Descriptor
	answer       chan answer
}

type answer struct {
	index int
	err   error
}

func NewChooser() *Chooser {
	return &Chooser{}
}

func (c *Chooser) Choose(ctx context.Context, p selection.Presentation, descriptors []*connector.Descriptor) (int, error) {
	req := &choice{
		presentation: p,
		descriptors:  descriptors,
		answer:       make(chan answer, 1),
	}
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return -1, ErrChoicePending
	}
	c.pending = req
	c.mu.Unlock()
	log.Infof("waiting for a wallet to be picked on the chooser page")

	select {
	case a := <-req.answer:
		return a.index, a.err
	case <-ctx.Done():
		c.mu.Lock()
		if c.pending == req {
			c.pending = nil
		}
		c.mu.Unlock()
		return -1, ctx.Err()
	}
}

// Pending returns what the page should render.
func (c *Chooser) Pending() (selection.Presentation, []*connector.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return selection.Presentation{}, nil, false
	}
	return c.pending.presentation, c.pending.descriptors, true
}

// Pick answers the pending choice with index. Range checks are left to the
// modal.
func (c *Chooser) Pick(index int) error {
	return c.resolve(answer{index: index})
}

// Dismiss answers the pending choice with connector.ErrUserRejected.
func (c *Chooser) Dismiss() error {
	return c.resolve(answer{index: -1, err: connector.ErrUserRejected})
}

func (c *Chooser) resolve(a answer) error {
	c.mu.Lock()
	req := c.pending
	c.pending = nil
	c.mu.Unlock()
	if req == nil {
		return ErrNoPendingChoice
	}
	req.answer <- a
	return nil
}
