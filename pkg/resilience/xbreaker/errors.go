package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// errFailedByPolicy 当 SuccessPolicy 判定 nil error 为失败时使用的占位错误。
// 这是一个极端情况：操作未返回错误，但 SuccessPolicy 仍判定为失败。
var errFailedByPolicy = errors.New("xbreaker: operation marked as failed by success policy")

// BreakerError 熔断器错误包装类型。
//
// 包装 gobreaker 的错误（ErrOpenState、ErrTooManyRequests），
// 并实现 Retryable() 返回 false：熔断拦截说明资源当前不可用，
// 对同一资源立即重试没有意义，调用方应当换资源或快速失败。
//
// 设计决策: Err/Name/State 保留为导出字段，便于调用方在日志和监控中
// 直接读取，BreakerError 的主要用途就是外部诊断。
type BreakerError struct {
	Err   error  // 原始错误（ErrOpenState 或 ErrTooManyRequests）
	Name  string // 熔断器名称
	State State  // 错误发生时的熔断器状态
}

// Error 实现 error 接口。
func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

// Unwrap 实现 errors.Unwrap 接口。
func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 返回 false：熔断器错误不应对同一资源重试。
//
//   - ErrOpenState: 熔断打开，资源确认不可用
//   - ErrTooManyRequests: 半开探测名额已满，应等待探测结果
func (e *BreakerError) Retryable() bool {
	return false
}

// newBreakerError 创建熔断器错误。
func newBreakerError(err error, name string, state State) *BreakerError {
	return &BreakerError{
		Err:   err,
		Name:  name,
		State: state,
	}
}

// wrapBreakerError 如果是熔断器错误则包装，否则原样返回。
//
// 只包装直接的 sentinel error（ErrOpenState、ErrTooManyRequests），
// 不用 errors.Is 遍历错误链：资源池中多个守卫并存时，
// 链上深处的熔断错误不应被归因到当前守卫。
// 已是 BreakerError 的错误保留原样，不重复包装。
//
// 设计决策: 从错误类型推导状态（ErrOpenState→StateOpen,
// ErrTooManyRequests→StateHalfOpen），而非事后查询 State()。
// Allow 返回到查询 State() 之间其他 goroutine 可能触发状态变化，
// 事后查询会让 State 字段与错误发生时的实际状态不一致。
func wrapBreakerError(err error, name string) error {
	if err == nil {
		return nil
	}

	var be *BreakerError
	if errors.As(err, &be) {
		return err
	}

	if err == gobreaker.ErrOpenState {
		return newBreakerError(err, name, StateOpen)
	}
	if err == gobreaker.ErrTooManyRequests {
		return newBreakerError(err, name, StateHalfOpen)
	}

	return err
}

// IsOpen 检查错误是否是熔断器打开错误。
//
// 示例:
//
//	done, err := guard.Allow()
//	if xbreaker.IsOpen(err) {
//	    // 资源处于熔断状态，换下一个候选
//	}
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 检查错误是否是半开探测名额已满错误。
//
// 半开状态下超出 MaxRequests 的 Allow 调用会收到此错误，
// 说明探测已由其他调用方执行，应当换资源。
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsBreakerError 检查错误是否是熔断器相关错误。
//
// 包括 ErrOpenState 和 ErrTooManyRequests，
// 用于区分熔断拦截和业务错误。
func IsBreakerError(err error) bool {
	return IsOpen(err) || IsTooManyRequests(err)
}
