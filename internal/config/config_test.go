package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
sync_rate_ms: 250
cache_provider: true
choice_store:
  kind: redis
redis:
  address: 127.0.0.1
  port: "6379"
  database: "2"
providers:
  - id: frame
    kind: injected
    display:
      logo: "https://frame.sh/logo.svg"
      name: Frame
      description: Desktop wallet
    options:
      rpc_url: http://127.0.0.1:1248
      max_rps: 20
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 250*time.Millisecond, c.SyncRate())
	assert.Equal(t, 10*time.Second, c.TickTimeout())
	assert.True(t, c.CacheProvider)
	assert.Equal(t, DefaultWidth, c.Width)
	assert.Equal(t, DefaultMaxWidth, c.MaxWidth)
	assert.Equal(t, "terminal", c.Chooser)
	assert.Equal(t, "redis", c.ChoiceStore.Kind)
	assert.Equal(t, DefaultChoiceKey, c.ChoiceStore.Key)
	assert.Equal(t, "127.0.0.1:6379", c.RedisCredential.GetRedisAddress())

	require.Len(t, c.Providers, 1)
	p := c.Providers[0]
	assert.Equal(t, "frame", p.ID)
	assert.Equal(t, "Frame", p.Display.Name)
	assert.Equal(t, "http://127.0.0.1:1248", p.Options["rpc_url"])
	assert.Equal(t, 20, p.Options["max_rps"])
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "wallet-modal-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte(sample), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "frame", c.Providers[0].ID)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	require.NoError(t, ioutil.WriteFile(path, []byte("providers: [[["), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
