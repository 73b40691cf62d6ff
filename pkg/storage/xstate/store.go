package xstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
)

// Store 是池状态快照的持久化接口。
//
// Save 覆盖写入 key 下的快照；Load 的第二个返回值报告快照是否存在，
// 不存在不是错误。实现必须并发安全。
type Store interface {
	// Save 把快照写入 key。
	Save(ctx context.Context, key string, state xrotate.PoolState) error

	// Load 读取 key 下的快照。快照不存在时返回 (零值, false, nil)。
	Load(ctx context.Context, key string) (xrotate.PoolState, bool, error)

	// Close 释放存储持有的资源。
	Close() error
}

// encodeState 把快照编码为 JSON。
// 凭证从不进入 PoolState，编码结果可以安全落盘。
func encodeState(state xrotate.PoolState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("xstate: encode state: %w", err)
	}
	return data, nil
}

// decodeState 从 JSON 解码快照，解码失败包裹 [ErrCorruptState]。
func decodeState(data []byte) (xrotate.PoolState, error) {
	var state xrotate.PoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return xrotate.PoolState{}, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return state, nil
}
