package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Zero(t, GetSessionID(ctx))

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetMethod(ctx, "GET")
	ctx = SetRoute(ctx, "/api/v1/graph/e-1")
	ctx = SetRemoteIP(ctx, "10.0.0.1")
	ctx = SetSessionID(ctx, 42)

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "GET", GetMethod(ctx))
	assert.Equal(t, "/api/v1/graph/e-1", GetRoute(ctx))
	assert.Equal(t, "10.0.0.1", GetRemoteIP(ctx))
	assert.Equal(t, int64(42), GetSessionID(ctx))
}
