package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	cacheKeyPrefix = "tasks:"
	genKeyPrefix   = "taskgen:"
	globalGenKey   = "taskgen"
	scanBatch      = 100
)

// errStaleListing aborts a cache fill that lost a race with an eviction.
var errStaleListing = errors.New("listing changed while loading")

type taskLister interface {
	ListTasks(ctx context.Context, boardID string) ([]task.Task, error)
}

// Cache puts a redis read-through cache in front of board listings. A nil
// client or a zero TTL turns it into a pass-through.
//
// Every eviction bumps a generation counter. A fill only lands if the
// generations it read before loading are unchanged when it writes, so a
// listing read before a concurrent save is never cached after that save's
// eviction.
type Cache struct {
	base   taskLister
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache wraps base with a redis-backed cache.
func NewCache(base taskLister, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("server.NewCache: base lister is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

// ListTasks returns the cached listing of a board, loading it on a miss.
func (c *Cache) ListTasks(ctx context.Context, boardID string) ([]task.Task, error) {
	if tasks, ok := c.load(ctx, boardID); ok {
		return tasks, nil
	}

	gen, cacheable := c.generation(ctx, boardID)
	tasks, err := c.base.ListTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.store(ctx, boardID, gen, tasks)
	}
	return tasks, nil
}

// Evict drops the cached listing of a board and invalidates fills that
// started before it.
func (c *Cache) Evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(boardID))
		pipe.Del(ctx, cacheKey(boardID))
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("board", boardID).Warn("cache evict failed")
	}
}

// EvictAll drops every cached listing. Used when the task directory changes
// underneath the server.
func (c *Cache) EvictAll(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, globalGenKey).Err(); err != nil {
		c.logger.WithError(err).Warn("cache evict failed")
	}
	iter := c.redis.Scan(ctx, 0, cacheKeyPrefix+"*", scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Warn("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Warn("cache evict failed")
	}
}

func (c *Cache) load(ctx context.Context, boardID string) ([]task.Task, bool) {
	if c.redis == nil || c.ttl == 0 {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(boardID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the repository without failing.
			c.logger.WithError(err).Debug("cache read failed")
			_ = c.redis.Del(ctx, cacheKey(boardID)).Err()
		}
		return nil, false
	}
	var tasks []task.Task
	if err := sonic.ConfigStd.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, cacheKey(boardID)).Err()
		return nil, false
	}
	return tasks, true
}

// generations is the pair of eviction counters a fill must see unchanged.
type generations [2]int64

// generation reads the board and global eviction counters. It reports false
// when the cache is off or redis cannot be read.
func (c *Cache) generation(ctx context.Context, boardID string) (generations, bool) {
	if c.redis == nil || c.ttl == 0 {
		return generations{}, false
	}
	gen, err := readGenerations(ctx, c.redis, boardID)
	if err != nil {
		c.logger.WithError(err).Debug("cache generation read failed")
		return generations{}, false
	}
	return gen, true
}

func (c *Cache) store(ctx context.Context, boardID string, gen generations, tasks []task.Task) {
	data, err := sonic.ConfigStd.Marshal(tasks)
	if err != nil {
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGenerations(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleListing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(boardID), data, c.ttl)
			return nil
		})
		return err
	}, genKey(boardID), globalGenKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleListing), errors.Is(err, redis.TxFailedErr):
		c.logger.WithField("board", boardID).Debug("skipped caching a stale listing")
	default:
		c.logger.WithError(err).WithField("board", boardID).Debug("cache write failed")
	}
}

type multiGetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readGenerations(ctx context.Context, r multiGetter, boardID string) (generations, error) {
	vals, err := r.MGet(ctx, genKey(boardID), globalGenKey).Result()
	if err != nil {
		return generations{}, err
	}
	var gen generations
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // unset counter
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return generations{}, err
		}
		gen[i] = n
	}
	return gen, nil
}

func cacheKey(boardID string) string {
	return cacheKeyPrefix + boardID
}

func genKey(boardID string) string {
	return genKeyPrefix + boardID
}
