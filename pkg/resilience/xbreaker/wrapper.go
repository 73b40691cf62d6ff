package xbreaker

import (
	"github.com/sony/gobreaker/v2"
)

// 以下是 sony/gobreaker/v2 的类型别名，便于直接使用底层能力，
// 调用方无需导入 gobreaker 包。

type (
	// Settings 熔断器配置
	Settings = gobreaker.Settings

	// Counts 统计计数，用于熔断判定
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State

	// CircuitBreaker 泛型熔断器
	CircuitBreaker[T any] = gobreaker.CircuitBreaker[T]

	// TwoStepCircuitBreaker 两阶段熔断器，
	// 用于需要手动报告成功/失败的场景
	TwoStepCircuitBreaker[T any] = gobreaker.TwoStepCircuitBreaker[T]
)

// 熔断器状态常量
const (
	// StateClosed 关闭状态（正常），请求正常通过，失败会被统计
	StateClosed = gobreaker.StateClosed

	// StateHalfOpen 半开状态（探测），放行有限请求以检测资源是否恢复
	StateHalfOpen = gobreaker.StateHalfOpen

	// StateOpen 打开状态（熔断），请求直接拒绝
	StateOpen = gobreaker.StateOpen
)

// 熔断器错误
var (
	// ErrTooManyRequests 半开状态下探测名额已满
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState
)

// NewCircuitBreaker 创建泛型熔断器。
//
// 这是对 gobreaker.NewCircuitBreaker 的直接封装，
// 适用于需要完全控制熔断器配置的场景。
//
// 示例:
//
//	cb := xbreaker.NewCircuitBreaker[string](xbreaker.Settings{
//	    Name:        "profile-api",
//	    MaxRequests: 1,
//	    Timeout:     time.Hour,
//	    ReadyToTrip: xbreaker.NewConsecutiveFailures(5).ReadyToTrip,
//	})
func NewCircuitBreaker[T any](st Settings) *CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](st)
}

// NewTwoStepCircuitBreaker 创建两阶段熔断器。
//
// 两阶段熔断器适用于获取许可与上报结果分离的场景。
//
// 示例:
//
//	cb := xbreaker.NewTwoStepCircuitBreaker[string](xbreaker.Settings{
//	    Name: "profile-api",
//	})
//
//	done, err := cb.Allow()
//	if err != nil {
//	    return err // 熔断打开，不允许执行
//	}
//	result, err := doOperation()
//	done(err) // nil 表示成功，非 nil 表示失败
func NewTwoStepCircuitBreaker[T any](st Settings) *TwoStepCircuitBreaker[T] {
	return gobreaker.NewTwoStepCircuitBreaker[T](st)
}
