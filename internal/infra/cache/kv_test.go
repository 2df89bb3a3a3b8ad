package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) (KV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewKV(rdb), mr
}

func TestKV_GetSetDel(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "a", []byte(`{"x":1}`)))
	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got))

	ok, err := kv.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, kv.Del(ctx, "a"))
	assert.False(t, mr.Exists("a"))

	ok, err = kv.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_Sets(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV(t)

	require.NoError(t, kv.SAdd(ctx, "idx", "alpha"))
	require.NoError(t, kv.SAdd(ctx, "idx", "beta"))
	require.NoError(t, kv.SAdd(ctx, "idx", "alpha"))

	members, err := kv.SMembers(ctx, "idx")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, members)

	require.NoError(t, kv.SRem(ctx, "idx", "alpha"))
	members, err = kv.SMembers(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, members)
}

func TestKV_Pipeline(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	require.NoError(t, mr.Set("detail", "{}"))
	require.NoError(t, mr.Set("chat", "[]"))
	_, err := mr.SAdd("idx", "alpha", "beta")
	require.NoError(t, err)

	err = kv.Pipeline(ctx,
		DelOp("detail"),
		SRemOp("idx", "alpha"),
		DelOp("chat"),
		SetOp("other", []byte("v")),
		SAddOp("idx", "gamma"),
	)
	require.NoError(t, err)

	assert.False(t, mr.Exists("detail"))
	assert.False(t, mr.Exists("chat"))
	v, err := mr.Get("other")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	members, err := mr.Members("idx")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"beta", "gamma"}, members)
}

func TestKV_PipelinePartialFailure(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	// a string key cannot be used as a set; the other ops still apply
	require.NoError(t, mr.Set("not-a-set", "x"))
	require.NoError(t, mr.Set("detail", "{}"))

	err := kv.Pipeline(ctx, DelOp("detail"), SRemOp("not-a-set", "alpha"))
	assert.Error(t, err)
	assert.False(t, mr.Exists("detail"))
}

func TestKV_Scan(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)

	require.NoError(t, mr.Set("p:space:a:usage", "[]"))
	require.NoError(t, mr.Set("p:space:b:usage", "[]"))
	require.NoError(t, mr.Set("p:space:a", "{}"))

	keys, err := kv.Scan(ctx, "p:space:*:usage")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p:space:a:usage", "p:space:b:usage"}, keys)
}

func TestKV_Unavailable(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(nil)

	assert.ErrorIs(t, kv.Ready(), ErrStoreUnavailable)

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, kv.Set(ctx, "a", nil), ErrStoreUnavailable)
	assert.ErrorIs(t, kv.SAdd(ctx, "s", "m"), ErrStoreUnavailable)
	assert.ErrorIs(t, kv.Pipeline(ctx, DelOp("a")), ErrStoreUnavailable)
	_, err = kv.SMembers(ctx, "s")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestKV_ServerDown(t *testing.T) {
	ctx := context.Background()
	kv, mr := newTestKV(t)
	require.NoError(t, kv.Set(ctx, "a", []byte("1")))

	mr.Close()

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, kv.Set(ctx, "a", []byte("2")), ErrStoreUnavailable)
	_, err = kv.Exists(ctx, "a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, kv.Pipeline(ctx, DelOp("a"), SRemOp("idx", "a")), ErrStoreUnavailable)
	_, err = kv.Scan(ctx, "*")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"nil", nil, false},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"client closed", redis.ErrClosed, true},
		{"pool timeout", redis.ErrPoolTimeout, true},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"eof", io.EOF, true},
		{"redis reply", errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		{"caller cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrStoreUnavailable))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	assert.NoError(t, Ping(context.Background(), rdb))
	mr.Close()
	assert.ErrorIs(t, Ping(context.Background(), rdb), ErrStoreUnavailable)
	assert.ErrorIs(t, Ping(context.Background(), nil), ErrStoreUnavailable)
}
