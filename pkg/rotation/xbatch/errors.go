package xbatch

import "errors"

var (
	// ErrNilExecutor 执行器为 nil。
	ErrNilExecutor = errors.New("xbatch: executor cannot be nil")

	// ErrNilRunner 批量运行器为 nil。
	ErrNilRunner = errors.New("xbatch: runner cannot be nil")

	// ErrNilContext ctx 为 nil。
	ErrNilContext = errors.New("xbatch: context cannot be nil")

	// ErrNilOperation 工作项处理函数为 nil。
	ErrNilOperation = errors.New("xbatch: operation cannot be nil")

	// ErrItemPanic 工作项处理函数发生 panic，已被 worker 捕获。
	// 对应条目的 Err 包裹此哨兵与 panic 值。
	ErrItemPanic = errors.New("xbatch: item handler panicked")
)
