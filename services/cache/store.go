package cachesvc

import (
	"context"
	"io"
	"time"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

// NewStore returns the store selected by `cache.driver`.
// An unreachable redis falls back to memory so the API still starts.
func NewStore(conf *core.Config, logger core.Logger) (Store, io.Closer) {
	if conf.Cache.Driver == "redis" {
		rs := NewRedisStore(conf)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := rs.Ping(ctx)
		if err == nil {
			return rs, rs
		}
		logger.Warn("redis unavailable, using the in-memory cache", err)
		_ = rs.Close()
	}
	ms := NewMemoryStore(conf.Cache.JanitorInterval)
	return ms, ms
}
