package xengine

import "errors"

// 包级错误定义。
var (
	// ErrNilStore 表示 WithSnapshotStore 收到了 nil 存储。
	ErrNilStore = errors.New("xengine: nil snapshot store")

	// ErrEmptyStateKey 表示 WithSnapshotStore 收到了空的快照 key。
	ErrEmptyStateKey = errors.New("xengine: empty state key")

	// ErrNoSnapshotStore 表示未配置快照存储却调用了状态持久化操作。
	ErrNoSnapshotStore = errors.New("xengine: no snapshot store configured")

	// ErrClosed 表示引擎已关闭。
	ErrClosed = errors.New("xengine: engine closed")
)
