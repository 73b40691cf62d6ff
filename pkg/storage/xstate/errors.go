package xstate

import "errors"

// 包级错误定义。
var (
	// ErrNilClient 表示构造存储时客户端为 nil。
	ErrNilClient = errors.New("xstate: nil client")

	// ErrNilStore 表示需要 Store 的构造函数收到了 nil。
	ErrNilStore = errors.New("xstate: nil store")

	// ErrEmptyKey 表示快照 key 为空字符串。
	ErrEmptyKey = errors.New("xstate: empty key")

	// ErrCorruptState 表示存储中的快照无法解码。
	// 调用方应按没有快照处理并重新开始累计，而不是让启动失败。
	ErrCorruptState = errors.New("xstate: corrupt state payload")

	// ErrLockFailed 表示获取写锁失败，快照未写入。
	ErrLockFailed = errors.New("xstate: acquire write lock failed")
)
