package xrotate

import (
	"errors"

	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
)

// ===== 哨兵错误 =====

var (
	// ErrNoHealthyResource 表示所有资源都处于熔断冷却期，当前没有可用资源。
	// 调用方应等待冷却结束或补充新资源，不应对同一工作项立即重试。
	ErrNoHealthyResource = errors.New("xrotate: no healthy resource available")

	// ErrNilCredential 表示资源缺少凭证。
	ErrNilCredential = errors.New("xrotate: nil credential")

	// ErrUnknownCircuitState 表示无法识别的熔断状态名称。
	ErrUnknownCircuitState = errors.New("xrotate: unknown circuit state")

	// ErrIncompatibleState 表示快照版本与当前实现不兼容。
	ErrIncompatibleState = errors.New("xrotate: incompatible pool state version")
)

// 资源集合校验错误从 xhealth 重导出，调用方无需额外引入健康统计包。
var (
	// ErrNoResources 表示创建管理器时没有提供任何资源。
	ErrNoResources = xhealth.ErrNoResources
	// ErrDuplicateResource 表示提供的资源 ID 重复。
	ErrDuplicateResource = xhealth.ErrDuplicateResource
	// ErrEmptyResourceID 表示资源 ID 为空字符串。
	ErrEmptyResourceID = xhealth.ErrEmptyResourceID
)

// errReplayedFailure 在状态恢复时向守卫重放历史失败，不会出现在对外结果里。
var errReplayedFailure = errors.New("xrotate: replayed failure from restored state")
