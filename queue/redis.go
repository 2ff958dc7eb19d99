package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "pg:queue:"
	redisLockPrefix  = "pg:lock:"
	redisPollTimeout = time.Second
	redisPromoteMax  = 100
	redisDeadMax     = 1000
)

// Moves due members of the delayed set onto the ready list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisBackend keeps each queue as a ready list plus a delayed sorted set
// scored by run time in milliseconds.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func redisKey(queue, suffix string) string {
	return redisKeyPrefix + queue + ":" + suffix
}

func (b *RedisBackend) Push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if job.RunAt.After(time.Now()) {
		return b.client.ZAdd(ctx, redisKey(job.Queue, "delayed"), redis.Z{
			Score:  float64(job.RunAt.UnixMilli()),
			Member: data,
		}).Err()
	}
	return b.client.LPush(ctx, redisKey(job.Queue, "ready"), data).Err()
}

func (b *RedisBackend) Pop(ctx context.Context, queue string) (*Job, error) {
	ready := redisKey(queue, "ready")
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := promoteScript.Run(ctx, b.client, []string{redisKey(queue, "delayed"), ready}, now, redisPromoteMax).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("promote delayed jobs: %w", err)
	}

	res, err := b.client.BRPop(ctx, redisPollTimeout, ready).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	b.client.Incr(ctx, redisKey(queue, "active"))
	return &job, nil
}

func (b *RedisBackend) Complete(ctx context.Context, job *Job, cause error) error {
	pipe := b.client.TxPipeline()
	pipe.Decr(ctx, redisKey(job.Queue, "active"))
	if cause != nil {
		pipe.Incr(ctx, redisKey(job.Queue, "failed"))
		if data, err := json.Marshal(job); err == nil {
			dead := redisKey(job.Queue, "dead")
			pipe.LPush(ctx, dead, data)
			pipe.LTrim(ctx, dead, 0, redisDeadMax-1)
		}
	} else {
		pipe.Incr(ctx, redisKey(job.Queue, "completed"))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (b *RedisBackend) Requeue(ctx context.Context, job *Job) error {
	if err := b.Push(ctx, job); err != nil {
		return err
	}
	return b.client.Decr(ctx, redisKey(job.Queue, "active")).Err()
}

func (b *RedisBackend) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := redisLockPrefix + key
	token := uuid.NewString()
	ok, err := b.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		// The job context may already be cancelled at this point.
		_ = unlockScript.Run(context.Background(), b.client, []string{lockKey}, token).Err()
	}
	return unlock, true, nil
}

func (b *RedisBackend) Stats(ctx context.Context, queue string) (Stats, error) {
	pipe := b.client.Pipeline()
	waiting := pipe.LLen(ctx, redisKey(queue, "ready"))
	delayed := pipe.ZCard(ctx, redisKey(queue, "delayed"))
	active := pipe.Get(ctx, redisKey(queue, "active"))
	completed := pipe.Get(ctx, redisKey(queue, "completed"))
	failed := pipe.Get(ctx, redisKey(queue, "failed"))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, err
	}

	counter := func(cmd *redis.StringCmd) int64 {
		n, err := cmd.Int64()
		if err != nil {
			return 0
		}
		return n
	}
	return Stats{
		Waiting:   waiting.Val(),
		Delayed:   delayed.Val(),
		Active:    counter(active),
		Completed: counter(completed),
		Failed:    counter(failed),
	}, nil
}

// Close is a no-op; the entry point owns the client.
func (b *RedisBackend) Close() error {
	return nil
}
