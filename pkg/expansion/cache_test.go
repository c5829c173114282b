package expansion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (c *countingLoader) Load(ctx context.Context, source string) (*graph.Payload, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &graph.Payload{
		Nodes: []graph.PayloadNode{{Address: "0xA", Balance: 1.5}},
		Links: []graph.PayloadLink{{From: "0xA", To: "0xB", BalanceDelta: -2}},
	}, nil
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachingLoader_MissThenHit(t *testing.T) {
	mr, client := newMiniRedis(t)
	next := &countingLoader{}
	l := NewCachingLoader(next, client, WithTTL(time.Minute))
	ctx := context.Background()

	first, err := l.Load(ctx, "JSON/1.json")
	require.NoError(t, err)
	second, err := l.Load(ctx, "JSON/1.json")
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("chainviz:payload:JSON/1.json"))
	assert.Equal(t, time.Minute, mr.TTL("chainviz:payload:JSON/1.json"))
}

func TestCachingLoader_Expiry(t *testing.T) {
	mr, client := newMiniRedis(t)
	next := &countingLoader{}
	l := NewCachingLoader(next, client, WithTTL(time.Second), WithPrefix("t:"))
	ctx := context.Background()

	_, err := l.Load(ctx, "src")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)
	_, err = l.Load(ctx, "src")
	require.NoError(t, err)

	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachingLoader_FailuresAreNotCached(t *testing.T) {
	mr, client := newMiniRedis(t)
	boom := errors.New("upstream down")
	l := NewCachingLoader(&countingLoader{err: boom}, client)

	_, err := l.Load(context.Background(), "src")
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("chainviz:payload:src"))
}

func TestCachingLoader_CorruptEntryRefetches(t *testing.T) {
	tests := []struct {
		name   string
		cached string
	}{
		{"not json", "{not json"},
		{"empty address", `{"nodes":[{"address":""}]}`},
		{"link without endpoint", `{"nodes":[{"address":"0xA"}],"links":[{"from":"0xA"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := newMiniRedis(t)
			next := &countingLoader{}
			l := NewCachingLoader(next, client)
			require.NoError(t, mr.Set("chainviz:payload:src", tt.cached))

			p, err := l.Load(context.Background(), "src")
			require.NoError(t, err)
			assert.Equal(t, "0xA", p.Nodes[0].Address)
			assert.Equal(t, int32(1), next.calls.Load())

			// the bad entry was replaced by the fresh payload
			cached, err := mr.Get("chainviz:payload:src")
			require.NoError(t, err)
			assert.NotEqual(t, tt.cached, cached)
		})
	}
}

func TestCachingLoader_RedisDownFallsThrough(t *testing.T) {
	mr, client := newMiniRedis(t)
	next := &countingLoader{}
	l := NewCachingLoader(next, client)
	mr.Close()

	p, err := l.Load(context.Background(), "src")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachingLoader_Invalidate(t *testing.T) {
	mr, client := newMiniRedis(t)
	next := &countingLoader{}
	l := NewCachingLoader(next, client)
	ctx := context.Background()

	_, err := l.Load(ctx, "src")
	require.NoError(t, err)
	require.NoError(t, l.Invalidate(ctx, "src"))
	assert.False(t, mr.Exists("chainviz:payload:src"))
}
