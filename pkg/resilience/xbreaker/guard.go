package xbreaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// TripPolicy 熔断判定策略接口。
//
// 当 ReadyToTrip 返回 true 时，熔断器从 Closed 转换为 Open。
type TripPolicy interface {
	// ReadyToTrip 判断是否应该触发熔断。
	// counts 包含当前统计窗口内的请求统计信息。
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略接口（可选）。
//
// 实现此接口可自定义什么结果算作"成功"：某些失败不应归咎于资源
// （例如目标不存在），熔断视角应按成功上报。
// 默认情况下 err == nil 即为成功。
type SuccessPolicy interface {
	// IsSuccessful 判断操作结果是否成功。
	IsSuccessful(err error) bool
}

// Guard 是单个资源的两阶段熔断守卫。
//
// 使用模式：
//
//	done, err := guard.Allow()
//	if err != nil {
//	    // 熔断打开或探测名额已满，换一个资源
//	}
//	opErr := doWork()
//	done(opErr) // 成功判定策略决定如何计入统计
//
// done 必须恰好调用一次；半开状态下漏调会让探测名额永久占用。
type Guard struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)

	tscb *TwoStepCircuitBreaker[any]

	mu       sync.Mutex
	openedAt time.Time // 最近一次进入 Open 的时间，零值表示当前不在 Open
}

// GuardOption 守卫配置选项。
type GuardOption func(*Guard)

// WithTripPolicy 设置熔断判定策略。
//
// 默认策略：连续失败 5 次触发熔断。
func WithTripPolicy(p TripPolicy) GuardOption {
	return func(g *Guard) {
		if p != nil {
			g.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略。
//
// 默认情况下 err == nil 即为成功。
func WithSuccessPolicy(p SuccessPolicy) GuardOption {
	return func(g *Guard) {
		if p != nil {
			g.successPolicy = p
		}
	}
}

// WithTimeout 设置从 Open 恢复到 HalfOpen 的冷却时长。
//
// 默认值：60 秒。
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态下放行的最大探测请求数。
//
// 默认值：1（单探测，超出的 Allow 返回 ErrTooManyRequests）。
func WithMaxRequests(n uint32) GuardOption {
	return func(g *Guard) {
		if n > 0 {
			g.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调，可用于日志与监控。
func WithOnStateChange(f func(name string, from, to State)) GuardOption {
	return func(g *Guard) {
		g.onStateChange = f
	}
}

// NewGuard 创建两阶段熔断守卫。
//
// name 用于日志与监控标识。默认配置：
//   - 熔断策略：连续失败 5 次
//   - 冷却时长：60 秒
//   - HalfOpen 探测请求数：1
func NewGuard(name string, opts ...GuardOption) *Guard {
	g := &Guard{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.tscb = NewTwoStepCircuitBreaker[any](g.buildSettings())
	return g
}

// buildSettings 构建 gobreaker 配置。
func (g *Guard) buildSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        g.name,
		MaxRequests: g.maxRequests,
		Timeout:     g.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return g.tripPolicy.ReadyToTrip(counts)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.trackStateChange(to)
			if g.onStateChange != nil {
				g.onStateChange(name, from, to)
			}
		},
	}
}

// trackStateChange 维护 openedAt 记录。
// gobreaker 不暴露熔断发生时刻，只能在状态回调里自行记账。
func (g *Guard) trackStateChange(to State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if to == StateOpen {
		g.openedAt = time.Now()
		return
	}
	g.openedAt = time.Time{}
}

// Allow 请求一次执行许可。
//
// 返回的 done 必须在操作结束后恰好调用一次，传入操作错误
// （nil 表示成功）；结果经 SuccessPolicy 判定后计入熔断统计。
// 熔断打开或半开探测名额已满时返回 *BreakerError，
// 其 Retryable() 为 false。
func (g *Guard) Allow() (done func(error), err error) {
	innerDone, cbErr := g.tscb.Allow()
	if cbErr != nil {
		return nil, wrapBreakerError(cbErr, g.name)
	}
	return func(opErr error) {
		innerDone(g.resultError(opErr))
	}, nil
}

// resultError 将操作结果转换为 gobreaker done 回调期望的 error 值：
// nil 表示成功，非 nil 表示失败。
func (g *Guard) resultError(err error) error {
	if g.isSuccessful(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// 极端情况：err 为 nil 但 SuccessPolicy 判定失败，给一个占位错误
	return errFailedByPolicy
}

func (g *Guard) isSuccessful(err error) bool {
	if g.successPolicy != nil {
		return g.successPolicy.IsSuccessful(err)
	}
	return err == nil
}

// State 返回熔断器当前状态。
// 冷却期满的 Open 在本次评估时惰性转换为 HalfOpen。
func (g *Guard) State() State {
	return g.tscb.State()
}

// Counts 返回当前统计计数。
func (g *Guard) Counts() Counts {
	return g.tscb.Counts()
}

// Name 返回守卫名称。
func (g *Guard) Name() string {
	return g.name
}

// OpenedAt 返回最近一次进入 Open 的时间。
// 当前不处于 Open（从未熔断或已离开 Open）时返回零值与 false。
func (g *Guard) OpenedAt() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.openedAt.IsZero() {
		return time.Time{}, false
	}
	return g.openedAt, true
}
