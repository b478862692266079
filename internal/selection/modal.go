// Package selection asks the user for a connector and hands the pick to a
// session.
package selection

import (
	"context"
	"time"

	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/connector/builtin"
	"moff.io/wallet-modal/internal/session"
	"moff.io/wallet-modal/internal/store"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
)

// ErrInvalidChoice is returned when a chooser answers with an index outside
// the offered list.
var ErrInvalidChoice = errors.New("invalid choice")

// Presentation carries layout hints for choosers that render a dialog.
type Presentation struct {
	Width    string `json:"width"`
	MaxWidth string `json:"max_width"`
}

// Chooser shows the connectors and returns the picked index. It returns
// connector.ErrUserRejected when dismissed.
type Chooser interface {
	Choose(ctx context.Context, p Presentation, descriptors []*connector.Descriptor) (int, error)
}

// ChoiceStore persists the last used connector id.
type ChoiceStore interface {
	Load(ctx context.Context) (id string, ok bool, err error)
	Save(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type Options struct {
	// Providers defaults to builtin.Defaults().
	Providers []*connector.Descriptor
	// CacheProvider reconnects to the last used connector without asking.
	CacheProvider bool
	SyncRate      time.Duration
	TickTimeout   time.Duration
	Width         string
	MaxWidth      string
}

type Option func(*Modal)

func WithChooser(c Chooser) Option {
	return func(m *Modal) {
		m.chooser = c
	}
}

func WithChoiceStore(s ChoiceStore) Option {
	return func(m *Modal) {
		m.store = s
	}
}

type Modal struct {
	opts     Options
	registry *connector.Registry
	session  *session.Session
	chooser  Chooser
	store    ChoiceStore
}

// New validates every provider before anything can be shown.
func New(opts Options, options ...Option) (*Modal, error) {
	if opts.Providers == nil {
		opts.Providers = builtin.Defaults()
	}
	if opts.Width == "" {
		opts.Width = config.DefaultWidth
	}
	if opts.MaxWidth == "" {
		opts.MaxWidth = config.DefaultMaxWidth
	}
	registry, err := connector.NewRegistry(opts.Providers...)
	if err != nil {
		return nil, err
	}
	m := &Modal{
		opts:     opts,
		registry: registry,
	}
	for _, o := range options {
		o(m)
	}
	if m.chooser == nil {
		m.chooser = StdioChooser()
	}
	if m.store == nil {
		m.store = store.NewMemory()
	}
	m.session = session.New(session.Options{
		SyncRate:    opts.SyncRate,
		TickTimeout: opts.TickTimeout,
	})
	return m, nil
}

// Connect reuses the cached connector when allowed, otherwise asks the
// chooser, then runs the handshake.
// Concurrent calls get connector.ErrConnectInProgress while one is choosing.
func (m *Modal) Connect(ctx context.Context) (*session.Connection, error) {
	if err := m.session.BeginChoosing(); err != nil {
		return nil, err
	}
	if d := m.cached(ctx); d != nil {
		log.Infof("reconnecting to cached connector %v", d.ID)
		return m.connect(ctx, d)
	}

	index, err := m.chooser.Choose(ctx, m.Presentation(), m.registry.List())
	if err != nil {
		m.session.AbandonChoosing()
		return nil, err
	}
	d, err := m.registry.At(index)
	if err != nil {
		m.session.AbandonChoosing()
		return nil, errors.Wrapf(ErrInvalidChoice, "index %d", index)
	}
	return m.connect(ctx, d)
}

func (m *Modal) cached(ctx context.Context) *connector.Descriptor {
	if !m.opts.CacheProvider {
		return nil
	}
	id, ok, err := m.store.Load(ctx)
	if err != nil {
		log.Warnf("load cached provider: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	d, found := m.registry.Lookup(id)
	if !found {
		log.Warnf("cached provider %v is no longer offered", id)
		return nil
	}
	return d
}

func (m *Modal) connect(ctx context.Context, d *connector.Descriptor) (*session.Connection, error) {
	conn, err := m.session.Connect(ctx, d)
	if err != nil {
		return nil, err
	}
	if m.opts.CacheProvider {
		if err := m.store.Save(ctx, d.ID); err != nil {
			log.Warnf("save cached provider: %v", err)
			errors.Report(err)
		}
	}
	return conn, nil
}

// Disconnect ends the session and forgets the cached connector.
func (m *Modal) Disconnect() {
	m.session.Disconnect()
	if err := m.store.Clear(context.Background()); err != nil {
		log.Warnf("clear cached provider: %v", err)
		errors.Report(err)
	}
}

func (m *Modal) ClearCachedProvider(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// CachedProvider returns the stored connector id.
func (m *Modal) CachedProvider(ctx context.Context) (string, bool, error) {
	return m.store.Load(ctx)
}

func (m *Modal) Providers() []*connector.Descriptor {
	return m.registry.List()
}

func (m *Modal) Session() *session.Session {
	return m.session
}

func (m *Modal) Presentation() Presentation {
	return Presentation{Width: m.opts.Width, MaxWidth: m.opts.MaxWidth}
}

// Close ends the session. The modal cannot connect afterwards.
func (m *Modal) Close() {
	m.session.Close()
}
