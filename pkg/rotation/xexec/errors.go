package xexec

import "errors"

// 预定义错误
var (
	// ErrNilManager 传入的资源管理器为 nil
	ErrNilManager = errors.New("xexec: manager cannot be nil")

	// ErrNilExecutor 传入的执行器为 nil
	ErrNilExecutor = errors.New("xexec: executor cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xexec: context cannot be nil")

	// ErrNilOperation 传入的操作函数为 nil
	ErrNilOperation = errors.New("xexec: operation cannot be nil")
)
