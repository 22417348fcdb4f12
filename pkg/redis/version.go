package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
)

// DefaultVersionKey holds the graph generation counter.
const DefaultVersionKey = "vfsc:graph:version"

// GraphVersion is a shared counter bumped whenever stored relationships
// change. Processes serving the graph compare it against the version their
// snapshot was built at.
type GraphVersion struct {
	client *Client
	key    string
}

func NewGraphVersion(client *Client, key string) *GraphVersion {
	if key == "" {
		key = DefaultVersionKey
	}
	return &GraphVersion{
		client: client,
		key:    key,
	}
}

// Current returns the counter, 0 when it has never been bumped.
func (v *GraphVersion) Current(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("graph_version_get").Observe(time.Since(start).Seconds())
	}()

	version, err := v.client.rdb.Get(ctx, v.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

func (v *GraphVersion) Bump(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RedisOperationDuration.WithLabelValues("graph_version_incr").Observe(time.Since(start).Seconds())
	}()

	version, err := v.client.rdb.Incr(ctx, v.key).Result()
	if err != nil {
		return 0, err
	}
	v.client.logger.WithContext(ctx).WithField("version", version).Debug("Bumped graph version")
	return version, nil
}
