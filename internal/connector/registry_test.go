package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopConnect(context.Context, interface{}, Options) (*Result, error) {
	return &Result{}, nil
}

func descriptor(id string) *Descriptor {
	return &Descriptor{
		ID: id,
		Display: &Display{
			Logo:        "https://example.org/" + id + ".svg",
			Name:        id,
			Description: "Connect with " + id,
		},
		Connect: noopConnect,
	}
}

func TestNewRegistryKeepsOrder(t *testing.T) {
	reg, err := NewRegistry(descriptor("b"), descriptor("a"), descriptor("c"))
	require.NoError(t, err)

	var ids []string
	for _, d := range reg.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, 3, reg.Len())

	d, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", d.ID)
	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	at, err := reg.At(2)
	require.NoError(t, err)
	assert.Equal(t, "c", at.ID)
	_, err = reg.At(3)
	assert.Error(t, err)
	_, err = reg.At(-1)
	assert.Error(t, err)
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Descriptor)
		field  string
	}{
		{"no id", func(d *Descriptor) { d.ID = "" }, "id"},
		{"no display", func(d *Descriptor) { d.Display = nil }, "display"},
		{"no logo", func(d *Descriptor) { d.Display.Logo = "" }, "display.logo"},
		{"no name", func(d *Descriptor) { d.Display.Name = "" }, "display.name"},
		{"no description", func(d *Descriptor) { d.Display.Description = "" }, "display.description"},
		{"no connect", func(d *Descriptor) { d.Connect = nil }, "connect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := descriptor("bad")
			tt.mutate(bad)
			_, err := NewRegistry(descriptor("ok"), bad)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 1, verr.Index)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestNewRegistryRejectsDuplicateID(t *testing.T) {
	_, err := NewRegistry(descriptor("a"), descriptor("a"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
}

func TestNewRegistryRejectsNilDescriptor(t *testing.T) {
	_, err := NewRegistry(nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "descriptor", verr.Field)
}

func TestAccountsSelected(t *testing.T) {
	_, ok := Accounts(nil).Selected()
	assert.False(t, ok)
	acc, ok := Accounts{"0xABC", "0xDEF"}.Selected()
	assert.True(t, ok)
	assert.Equal(t, "0xABC", acc)
}

func TestOptionsAccessors(t *testing.T) {
	opts := Options{
		"endpoint": "http://127.0.0.1:1248",
		"chain_id": 56,
		"hex":      "0x38",
		"rps":      "10",
		"timeout":  "2s",
	}
	assert.Equal(t, "http://127.0.0.1:1248", opts.String("endpoint"))
	assert.Equal(t, "", opts.String("absent"))
	id, ok := opts.Uint64("chain_id")
	assert.True(t, ok)
	assert.Equal(t, uint64(56), id)
	id, ok = opts.Uint64("hex")
	assert.True(t, ok)
	assert.Equal(t, uint64(56), id)
	rps, ok := opts.Int("rps")
	assert.True(t, ok)
	assert.Equal(t, 10, rps)
	d, ok := opts.Duration("timeout")
	assert.True(t, ok)
	assert.Equal(t, "2s", d.String())

	assert.NoError(t, opts.Require("endpoint"))
	assert.EqualError(t, opts.Require("endpoint", "app_name"), "you must specify app_name property in options")
	var nilOpts Options
	assert.Equal(t, "", nilOpts.String("x"))
}

func TestConnectorErrorUnwraps(t *testing.T) {
	err := &ConnectorError{ID: "frame", Err: ErrUserRejected}
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Equal(t, "connector frame: user rejected", err.Error())
}
