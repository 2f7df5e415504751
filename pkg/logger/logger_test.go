package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextAddsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)

	ctx := WithContext(context.Background(), TenantIDKey, "t1")
	ctx = WithContext(ctx, RequestIDKey, "req-1")
	Error(ctx, "teardown failed", errors.New("conn reset"), "op", "rollback")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "teardown failed", entry["msg"])
	assert.Equal(t, "t1", entry["tenant_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "rollback", entry["op"])
	assert.Equal(t, "conn reset", entry["error"])
	assert.NotContains(t, entry, "user_id")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", "text", &buf)

	Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	Warn(context.Background(), "pool exhausted", "tenant_id", "t1")
	assert.Contains(t, buf.String(), "pool exhausted")
	assert.Contains(t, buf.String(), "tenant_id=t1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("DEBUG").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
