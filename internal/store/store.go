package store

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/pkg/errors"
)

// Choice is what every store implements.
type Choice interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// FromConfig builds the store named by c.ChoiceStore.Kind. The returned
// closer is never nil.
func FromConfig(ctx context.Context, c *config.Configuration) (Choice, io.Closer, error) {
	switch c.ChoiceStore.Kind {
	case "", "memory":
		return NewMemory(), nopCloser{}, nil
	case "file":
		path := c.ChoiceStore.Path
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, errors.Wrap(err, "resolve home dir")
			}
			path = filepath.Join(home, ".wallet-modal", "choice.yml")
		}
		return NewFile(path, c.ChoiceStore.Key), nopCloser{}, nil
	case "redis":
		r, err := DialRedis(ctx, &c.RedisCredential, c.ChoiceStore.Key)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	}
	return nil, nil, errors.Errorf("unknown choice store kind %v", c.ChoiceStore.Kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
