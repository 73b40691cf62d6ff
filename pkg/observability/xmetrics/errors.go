package xmetrics

import "errors"

// 包级错误定义。
var (
	// ErrNilSink 表示需要 Sink 的构造函数收到了 nil。
	ErrNilSink = errors.New("xmetrics: nil sink")

	// ErrEmptySchedule 表示 Reporter 的 cron 计划为空。
	ErrEmptySchedule = errors.New("xmetrics: empty schedule")

	// ErrInvalidSchedule 表示 cron 计划表达式无法解析。
	ErrInvalidSchedule = errors.New("xmetrics: invalid schedule")

	// ErrCreateInstrument 表示创建 OTel 计量仪表失败。
	ErrCreateInstrument = errors.New("xmetrics: create instrument failed")
)
