package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckAllHealthy(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	status := CheckAll(context.Background(), Check{Name: "store", Pinger: ok}, Check{Name: "executor", Pinger: ok})

	assert.True(t, status.OK)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "store", status.Checks[0].Name)
	assert.Equal(t, "executor", status.Checks[1].Name)
	assert.False(t, status.CheckedAt.IsZero())
}

func TestCheckAllReportsFailure(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	bad := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	status := CheckAll(context.Background(), Check{Name: "store", Pinger: ok}, Check{Name: "executor", Pinger: bad})

	assert.False(t, status.OK)
	assert.True(t, status.Checks[0].OK)
	assert.False(t, status.Checks[1].OK)
	assert.Equal(t, "connection refused", status.Checks[1].Error)
	assert.True(t, strings.HasPrefix(status.String(), "Health: FAIL"))
	assert.Contains(t, status.String(), "✗ executor")
}

func TestCheckWithoutPinger(t *testing.T) {
	status := CheckAll(context.Background(), Check{Name: "executor"})
	assert.False(t, status.OK)
	assert.Equal(t, "not configured", status.Checks[0].Error)
}

func TestCheckAllEmpty(t *testing.T) {
	status := CheckAll(context.Background())
	assert.True(t, status.OK)
	assert.Empty(t, status.Checks)
}
