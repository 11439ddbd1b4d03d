// Package cachesvc provides the TTL caches that sit in front of the catalog and maps APIs.
package cachesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	// Get returns (nil, false, nil) on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache JSON-caches the results of expensive calls. Concurrent misses on the same key share one call.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger core.Logger
}

func New(store Store, logger core.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Fetch loads `key` into dst, or calls fn, caches its result for ttl and loads it into dst.
// Store failures are logged and fn is used as if it were a miss.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, dst interface{}, fn func(ctx context.Context) (interface{}, error)) error {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("cache get %q: %v", key, err), err)
	}
	if ok {
		if err = json.Unmarshal(data, dst); err == nil {
			return nil
		}
		c.logger.Warn(fmt.Sprintf("cache decode %q: %v", key, err), err)
	}

	// the shared call is detached from the caller that started it; each caller only waits on its own ctx
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		res, err := fn(fctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return nil, errors.Wrap(err, "encoding cache value")
		}
		if err := c.store.Set(fctx, key, data, ttl); err != nil {
			c.logger.Warn(fmt.Sprintf("cache set %q: %v", key, err), err)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return errors.Wrap(json.Unmarshal(res.Val.([]byte), dst), "decoding cache value")
	}
}
