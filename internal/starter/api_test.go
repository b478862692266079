package starter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"moff.io/wallet-modal/internal/config"
)

type recorder struct {
	name    string
	log     *[]string
	applied *config.Configuration
}

func (r *recorder) Start(context.Context) { *r.log = append(*r.log, "start "+r.name) }
func (r *recorder) Stop()                 { *r.log = append(*r.log, "stop "+r.name) }

type configurable struct {
	recorder
}

func (c *configurable) Apply(cfg *config.Configuration) {
	c.applied = cfg
	*c.log = append(*c.log, "apply "+c.name)
}

func TestStartAppliesConfigFirst(t *testing.T) {
	prev := config.Global
	defer func() { config.Global = prev }()
	config.Global = &config.Configuration{LogLevel: "debug"}

	var log []string
	a := &recorder{name: "a", log: &log}
	b := &configurable{recorder{name: "b", log: &log}}
	Start(context.Background(), a, b)

	assert.Equal(t, []string{"start a", "apply b", "start b"}, log)
	assert.Same(t, config.Global, b.applied)

	log = nil
	Stop(a, b)
	assert.Equal(t, []string{"stop b", "stop a"}, log)
}
