package meta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeginIsIdempotent(t *testing.T) {
	ctx := Begin(context.Background())
	WithValue(ctx, RequestID, "req-1")

	again := Begin(ctx)
	assert.Equal(t, ctx, again)
	assert.Equal(t, "req-1", Value(again, RequestID))
}

func TestValueWithoutBegin(t *testing.T) {
	ctx := context.Background()
	WithValue(ctx, SessionID, "s")
	assert.Nil(t, Value(ctx, SessionID))
	assert.Empty(t, Fields(ctx))
}

func TestFields(t *testing.T) {
	ctx := Begin(context.Background())
	WithValue(ctx, RequestID, "req-2")
	WithValue(ctx, SessionID, "sess")
	assert.Equal(t, "req-2", Fields(ctx)["request_id"])
	assert.Equal(t, "sess", Fields(ctx)["session_id"])
}
