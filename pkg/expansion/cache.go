package expansion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
)

// CachingLoader stores fetched payloads in Redis keyed by source. A cache
// outage degrades to the wrapped loader; it never fails a load.
type CachingLoader struct {
	next   Loader
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// CacheOption configures a CachingLoader
type CacheOption func(*CachingLoader)

// WithTTL sets how long cached payloads live. Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachingLoader) { c.ttl = ttl }
}

// WithPrefix sets the Redis key prefix
func WithPrefix(prefix string) CacheOption {
	return func(c *CachingLoader) { c.prefix = prefix }
}

// WithCacheLogger sets the logger used for cache faults
func WithCacheLogger(l logging.Logger) CacheOption {
	return func(c *CachingLoader) { c.logger = l }
}

// NewCachingLoader wraps next with a Redis cache
func NewCachingLoader(next Loader, client redis.Cmdable, opts ...CacheOption) *CachingLoader {
	c := &CachingLoader{
		next:   next,
		client: client,
		prefix: "chainviz:payload:",
		ttl:    10 * time.Minute,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load implements Loader
func (c *CachingLoader) Load(ctx context.Context, source string) (*graph.Payload, error) {
	key := c.prefix + source

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		// cached bytes get the same checks as a fresh load
		p, derr := Decode(bytes.NewReader(data))
		if derr == nil {
			return p, nil
		}
		c.logger.Warn("discarding corrupt cached payload", logging.Source(source), logging.Error(derr))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("payload cache unavailable", logging.Source(source), logging.Error(err))
	}

	p, err := c.next.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("payload cache write failed", logging.Source(source), logging.Error(err))
		}
	}
	return p, nil
}

// Invalidate drops the cached payload for source
func (c *CachingLoader) Invalidate(ctx context.Context, source string) error {
	return c.client.Del(ctx, c.prefix+source).Err()
}
