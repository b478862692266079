package meta

import (
	"context"
	"sync"

	"moff.io/wallet-modal/pkg/log"
)

// Key names a value carried by the request metadata.
type Key string

const (
	RequestID Key = "request_id"
	SessionID Key = "session_id"
)

// 元信息对象
type metadata struct {
	carrier map[Key]interface{}
	mu      sync.RWMutex
}

func (c *metadata) Value(key Key) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.carrier[key]
}

func (c *metadata) WithValue(key Key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carrier[key] = value
}

func (c *metadata) fields() log.Fields {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fields := make(log.Fields, len(c.carrier))
	for k, v := range c.carrier {
		fields[string(k)] = v
	}
	return fields
}

type contextKey struct{}

var metaContextKey = contextKey{}

// Begin 开启元信息对象
// Calling Begin on a context that already carries metadata returns it
// unchanged, so it is safe to call at every layer.
func Begin(parent context.Context) context.Context {
	if parent.Value(metaContextKey) != nil {
		return parent
	}
	return context.WithValue(parent, metaContextKey, &metadata{
		carrier: make(map[Key]interface{}),
	})
}

func metadataFrom(parent context.Context) *metadata {
	value := parent.Value(metaContextKey)
	if value == nil {
		log.Debug("meta not found from context, should call meta.Begin() first?")
		return nil
	}
	return value.(*metadata)
}

// WithValue 设置键值对至上下文的元信息对象
func WithValue(parent context.Context, key Key, val interface{}) {
	meta := metadataFrom(parent)
	if meta == nil {
		return
	}
	meta.WithValue(key, val)
}

// Value 从上下文的元信息对象中获取对应key的值
func Value(parent context.Context, key Key) interface{} {
	meta := metadataFrom(parent)
	if meta == nil {
		return nil
	}
	return meta.Value(key)
}

// Fields returns every metadata pair as log fields.
func Fields(parent context.Context) log.Fields {
	meta := metadataFrom(parent)
	if meta == nil {
		return log.Fields{}
	}
	return meta.fields()
}
