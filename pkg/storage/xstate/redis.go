package xstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
)

// ===== 默认参数 =====

const (
	// DefaultKeyPrefix 是快照 key 的默认前缀。
	DefaultKeyPrefix = "rotakit:state:"
	// DefaultLockTTL 是写锁的默认持有时长。
	DefaultLockTTL = 8 * time.Second
)

// ===== 配置选项 =====

type redisConfig struct {
	keyPrefix string
	ttl       time.Duration
	lockTTL   time.Duration
	withLock  bool
}

// RedisOption Redis 存储配置选项。
type RedisOption func(*redisConfig)

// WithKeyPrefix 设置快照 key 前缀。
//
// 默认值："rotakit:state:"。
func WithKeyPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithTTL 设置快照的过期时长，0 表示永不过期。
//
// 默认值：0。快照描述的是冷却进度这类会自然过时的状态，
// 建议设置为略大于熔断冷却时长的值。
func WithTTL(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithWriteLock 启用 redsync 写锁：Save 先取锁再写入，
// 多副本部署时避免交错覆盖快照。ttl 是锁的最大持有时长，
// 非正值采用默认的 8 秒。
func WithWriteLock(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.withLock = true
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// ===== RedisStore =====

// RedisStore 把快照以 JSON 值写入 Redis。
//
// client 的生命周期归 RedisStore：Close 会关闭底层连接。
// 需要复用客户端时请在外层自行管理并不要调用 Close。
type RedisStore struct {
	client redis.UniversalClient
	rs     *redsync.Redsync

	keyPrefix string
	ttl       time.Duration
	lockTTL   time.Duration
}

// 编译期检查：RedisStore 实现 Store。
var _ Store = (*RedisStore)(nil)

// NewRedisStore 创建 Redis 快照存储。
// client 必须是已初始化的 redis.UniversalClient。
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	cfg := redisConfig{
		keyPrefix: DefaultKeyPrefix,
		lockTTL:   DefaultLockTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s := &RedisStore{
		client:    client,
		keyPrefix: cfg.keyPrefix,
		ttl:       cfg.ttl,
		lockTTL:   cfg.lockTTL,
	}
	if cfg.withLock {
		s.rs = redsync.New(goredis.NewPool(client))
	}
	return s, nil
}

// Save 把快照写入 key，启用写锁时先取锁再写入。
func (s *RedisStore) Save(ctx context.Context, key string, state xrotate.PoolState) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if s.rs != nil {
		mutex := s.rs.NewMutex(s.keyPrefix+key+":lock", redsync.WithExpiry(s.lockTTL))
		if err := mutex.LockContext(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrLockFailed, err)
		}
		defer func() {
			// 解锁失败只能等锁过期，写入本身已经完成
			_, _ = mutex.UnlockContext(ctx)
		}()
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("xstate: save state %q: %w", key, err)
	}
	return nil
}

// Load 读取 key 下的快照，不存在时返回 (零值, false, nil)。
func (s *RedisStore) Load(ctx context.Context, key string) (xrotate.PoolState, bool, error) {
	if key == "" {
		return xrotate.PoolState{}, false, ErrEmptyKey
	}

	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return xrotate.PoolState{}, false, nil
	}
	if err != nil {
		return xrotate.PoolState{}, false, fmt.Errorf("xstate: load state %q: %w", key, err)
	}

	state, err := decodeState(data)
	if err != nil {
		return xrotate.PoolState{}, false, err
	}
	return state, true, nil
}

// Close 关闭底层 Redis 连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
