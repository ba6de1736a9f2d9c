package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// redisDB mirrors core/redis_client.go's per-concern DB isolation
// convention. The robot control plane owns a single concern (request
// status), so it claims one DB rather than the framework's multi-DB
// registry.
const redisDB = 6

const redisNamespace = "robotd:status"

// RedisRequestStore is a deployment choice (spec.md §4.F: "No
// cross-process replication" is not required by the spec, but a
// reference implementation may still want status visible across
// restarts of the façade process). It is NOT a substitute for the
// in-process ActiveSlot/cancel-flag coordination CommandManager performs
// — spec.md's Non-goals explicitly exclude distributed coordination
// across nodes; this store only persists Status snapshots.
type RedisRequestStore struct {
	client  *redis.Client
	breaker *platform.CircuitBreaker
	logger  platform.Logger
}

// NewRedisRequestStore connects to redisURL and verifies reachability with
// a bounded ping, the same pattern core.NewRedisClient uses. cbThreshold/
// cbTimeout size the breaker that shields the worker loop from a Redis
// outage turning every status update into a multi-second timeout.
func NewRedisRequestStore(redisURL string, cbThreshold int, cbTimeout time.Duration, logger platform.Logger) (*RedisRequestStore, error) {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %v", platform.ErrHardware, err)
	}
	opt.DB = redisDB
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis unreachable: %v", platform.ErrHardware, err)
	}
	logger.Info("redis request store connected", map[string]interface{}{"db": redisDB})
	return &RedisRequestStore{
		client:  client,
		breaker: platform.NewCircuitBreaker(cbThreshold, cbTimeout),
		logger:  logger,
	}, nil
}

func (r *RedisRequestStore) key(id domain.RequestID) string {
	return fmt.Sprintf("%s:%s", redisNamespace, id)
}

// Create serializes initial and stores it with no expiry, matching the
// in-memory store's "keep all entries" default.
func (r *RedisRequestStore) Create(id domain.RequestID, initial domain.Status) {
	if !r.breaker.Allow() {
		r.logger.Warn("redis circuit open, dropping create", map[string]interface{}{"request_id": string(id)})
		return
	}
	data, err := json.Marshal(initial)
	if err != nil {
		r.logger.Error("failed to marshal status", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.key(id), data, 0).Err(); err != nil {
		r.breaker.RecordFailure()
		r.logger.Error("failed to persist status", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return
	}
	r.breaker.RecordSuccess()
}

// Update performs a read-modify-write. Redis has no notion of
// domain.Status.Merge, so the merge logic still runs in-process; Redis
// only supplies durability.
func (r *RedisRequestStore) Update(id domain.RequestID, patch domain.Patch) bool {
	if !r.breaker.Allow() {
		r.logger.Warn("redis circuit open, dropping update", map[string]interface{}{"request_id": string(id)})
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cur, ok := r.getCtx(ctx, id)
	if !ok {
		return false
	}
	next, ok := cur.Merge(patch)
	if !ok {
		return false
	}
	data, err := json.Marshal(next)
	if err != nil {
		r.logger.Error("failed to marshal status", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return false
	}
	if err := r.client.Set(ctx, r.key(id), data, 0).Err(); err != nil {
		r.breaker.RecordFailure()
		r.logger.Error("failed to persist status update", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return false
	}
	r.breaker.RecordSuccess()
	return true
}

// Get returns a snapshot decoded from Redis.
func (r *RedisRequestStore) Get(id domain.RequestID) (domain.Status, bool) {
	if !r.breaker.Allow() {
		r.logger.Warn("redis circuit open, dropping get", map[string]interface{}{"request_id": string(id)})
		return domain.Status{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, ok := r.getCtx(ctx, id)
	if ok {
		r.breaker.RecordSuccess()
	}
	return st, ok
}

// getCtx is the read path shared by Get and Update's read-modify-write. It
// records a breaker failure for a real read error only: redis.Nil (unknown
// id) is a normal miss, not a dependency failure, and is not counted.
// Successes are recorded by the callers.
func (r *RedisRequestStore) getCtx(ctx context.Context, id domain.RequestID) (domain.Status, bool) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.breaker.RecordFailure()
			r.logger.Warn("redis read failed", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		}
		return domain.Status{}, false
	}
	var st domain.Status
	if err := json.Unmarshal(data, &st); err != nil {
		r.logger.Error("failed to unmarshal status", map[string]interface{}{"request_id": string(id), "error": err.Error()})
		return domain.Status{}, false
	}
	return st, true
}

// Close releases the underlying connection pool.
func (r *RedisRequestStore) Close() error {
	return r.client.Close()
}
