package xstate

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
)

// Loader 是 Store 的读侧包装：用 singleflight 合并同一 key 的
// 并发 Load，一批 worker 同时恢复状态时只有一次真正的后端读取。
//
// 注意：合并的调用共享首个调用者的 ctx。首个调用者取消会让同批
// 等待者一起收到取消错误，等待者可自行重试触发新的读取。
type Loader struct {
	store Store
	group singleflight.Group
}

// NewLoader 创建读侧加载器。store 的生命周期归调用方，
// Loader 不会关闭它。
func NewLoader(store Store) (*Loader, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Loader{store: store}, nil
}

// loadResult 是 singleflight 的传递载体。
type loadResult struct {
	state xrotate.PoolState
	found bool
}

// Load 读取 key 下的快照，并发调用按 key 去重。
func (l *Loader) Load(ctx context.Context, key string) (xrotate.PoolState, bool, error) {
	if key == "" {
		return xrotate.PoolState{}, false, ErrEmptyKey
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		state, found, err := l.store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		return loadResult{state: state, found: found}, nil
	})
	if err != nil {
		return xrotate.PoolState{}, false, err
	}

	res := v.(loadResult)
	return res.state, res.found, nil
}
