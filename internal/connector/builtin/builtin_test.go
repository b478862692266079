package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/connector/walletconnect"
)

func TestDefaultsAreValid(t *testing.T) {
	r, err := connector.NewRegistry(Defaults()...)
	require.NoError(t, err)
	for _, d := range r.List() {
		assert.Nil(t, d.Package, d.ID)
	}
}

func TestFromConfig(t *testing.T) {
	presenter := &walletconnect.TerminalPresenter{}
	ds, err := FromConfig([]config.Provider{
		{Kind: "injected", Options: map[string]interface{}{"rpc_url": "http://127.0.0.1:1249"}},
		{ID: "wc", Kind: "walletconnect", Display: config.Display{Name: "Mobile"}, Options: map[string]interface{}{"chain_id": 1}},
		{Kind: "external", Options: map[string]interface{}{"endpoint": "/tmp/clef.ipc", "rpc_url": "http://127.0.0.1:8545"}},
	}, presenter)
	require.NoError(t, err)

	r, err := connector.NewRegistry(ds...)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	d, ok := r.Lookup("injected")
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:1249", d.Options.String("rpc_url"))

	d, ok = r.Lookup("wc")
	require.True(t, ok)
	assert.Equal(t, "Mobile", d.Display.Name)
	assert.NotEmpty(t, d.Display.Logo)
	assert.Equal(t, presenter, d.Package)

	_, ok = r.Lookup("clef")
	assert.True(t, ok)
}

func TestFromConfigDefaults(t *testing.T) {
	ds, err := FromConfig(nil, nil)
	require.NoError(t, err)
	assert.Len(t, ds, len(Defaults()))

	_, err = FromConfig([]config.Provider{{Kind: "metamask"}}, nil)
	assert.Error(t, err)
}

func TestOverridingDisplayDoesNotLeak(t *testing.T) {
	_, err := FromConfig([]config.Provider{{Kind: "injected", Display: config.Display{Name: "Mine"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Frame", Defaults()[0].Display.Name)
}

func TestExampleConfigBuilds(t *testing.T) {
	cfg, err := config.Load("../../../config.example.yml")
	require.NoError(t, err)

	ds, err := FromConfig(cfg.Providers, &walletconnect.TerminalPresenter{})
	require.NoError(t, err)
	r, err := connector.NewRegistry(ds...)
	require.NoError(t, err)

	ids := make([]string, 0, len(ds))
	for _, d := range r.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"injected", "walletconnect", "clef"}, ids)
	assert.Equal(t, "Clef", ds[2].Display.Name)
}
