package xstate

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
)

// ===== 默认参数 =====

const (
	// defaultMemoryMaxCost 是内存存储的容量上限（字节）。
	// 单个快照通常只有几 KB，16MB 足以容纳大量快照 key。
	defaultMemoryMaxCost = 16 * 1024 * 1024
	// defaultMemoryNumCounters 是 ristretto 频率计数器数量。
	defaultMemoryNumCounters = 1e4
	// defaultMemoryBufferItems 是 ristretto 写缓冲大小。
	defaultMemoryBufferItems = 64
)

type memoryConfig struct {
	ttl time.Duration
}

// MemoryOption 内存存储配置选项。
type MemoryOption func(*memoryConfig)

// WithMemoryTTL 设置快照的过期时长，0 表示永不过期。
//
// 默认值：0。
func WithMemoryTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// ===== MemoryStore =====

// MemoryStore 把快照保存在进程内的 ristretto 缓存里，
// 用于单进程场景与测试。容量有界，极端情况下快照可能被淘汰——
// 快照丢失的语义等同"没有历史状态"，调用方本来就必须处理。
type MemoryStore struct {
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// 编译期检查：MemoryStore 实现 Store。
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存快照存储。
func NewMemoryStore(opts ...MemoryOption) (*MemoryStore, error) {
	var cfg memoryConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: defaultMemoryNumCounters,
		MaxCost:     defaultMemoryMaxCost,
		BufferItems: defaultMemoryBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("xstate: create memory store: %w", err)
	}
	return &MemoryStore{cache: cache, ttl: cfg.ttl}, nil
}

// Save 把快照写入 key。
// ristretto 的写入是异步的，这里等待写入落地后再返回，
// 保证 Save 返回后 Load 立即可见。
func (s *MemoryStore) Save(ctx context.Context, key string, state xrotate.PoolState) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeState(state)
	if err != nil {
		return err
	}
	s.cache.SetWithTTL(key, data, int64(len(data)), s.ttl)
	s.cache.Wait()
	return nil
}

// Load 读取 key 下的快照，不存在时返回 (零值, false, nil)。
func (s *MemoryStore) Load(ctx context.Context, key string) (xrotate.PoolState, bool, error) {
	if key == "" {
		return xrotate.PoolState{}, false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return xrotate.PoolState{}, false, err
	}

	data, ok := s.cache.Get(key)
	if !ok {
		return xrotate.PoolState{}, false, nil
	}
	state, err := decodeState(data)
	if err != nil {
		return xrotate.PoolState{}, false, err
	}
	return state, true, nil
}

// Close 关闭底层缓存。
func (s *MemoryStore) Close() error {
	s.cache.Close()
	return nil
}
