package xexec

import (
	"context"
	"log/slog"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"

	"github.com/omeyang/rotakit/pkg/context/xctx"
	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
)

// DefaultMaxAttempts 是单条执行链的默认最大尝试次数（含首次执行）。
const DefaultMaxAttempts = 3

// Operation 是以租借到的凭证执行的一次外部操作。
// 凭证由实现方断言为构建资源池时使用的具体类型。
type Operation[T any] func(ctx context.Context, cred xrotate.Credential) (T, error)

// Executor 驱动「租借资源 → 执行操作 → 上报结果 → 按分类重试」的执行链。
//
// Executor 自身没有可变状态，可在任意多个 goroutine 间共享；
// 每次 Run 的链路状态彼此独立。
type Executor struct {
	mgr         *xrotate.Manager
	maxAttempts int
	backoff     BackoffPolicy
	logger      *slog.Logger
	onRetry     func(attempt int, err error)
}

// ExecutorOption 执行器配置选项。
type ExecutorOption func(*Executor)

// WithMaxAttempts 设置最大尝试次数（含首次执行）。
//
// 默认值：3。非正值被静默忽略。
func WithMaxAttempts(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBackoff 设置重试退避策略。
//
// 默认策略：NewExponentialBackoff()。nil 被静默忽略。
func WithBackoff(p BackoffPolicy) ExecutorOption {
	return func(e *Executor) {
		if p != nil {
			e.backoff = p
		}
	}
}

// WithLogger 设置结构化日志器。
//
// 默认日志器：slog.Default()。
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOnRetry 设置重试回调，attempt 为刚失败的尝试序号（从 1 开始）。
// 回调在退避等待之前同步执行，实现必须轻量。
func WithOnRetry(f func(attempt int, err error)) ExecutorOption {
	return func(e *Executor) {
		if f != nil {
			e.onRetry = f
		}
	}
}

// NewExecutor 创建执行器。
//
// 设计决策: 返回 *Executor 而非接口，因为泛型函数 Run 需要访问内部字段。
// 如需 mock，请在调用方以函数类型封装。
func NewExecutor(mgr *xrotate.Manager, opts ...ExecutorOption) (*Executor, error) {
	if mgr == nil {
		return nil, ErrNilManager
	}
	e := &Executor{
		mgr:         mgr,
		maxAttempts: DefaultMaxAttempts,
		backoff:     NewExponentialBackoff(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Manager 返回底层资源管理器。nil 接收者返回 nil。
func (e *Executor) Manager() *xrotate.Manager {
	if e == nil {
		return nil
	}
	return e.mgr
}

// MaxAttempts 返回最大尝试次数。nil 接收者返回 0。
func (e *Executor) MaxAttempts() int {
	if e == nil {
		return 0
	}
	return e.maxAttempts
}

// runState 是单条执行链在各重试闭包间共享的状态。
type runState struct {
	avoid    string
	lastID   string
	lastKind xclassify.Kind
	attempts int
}

// Run 执行一次带资源轮换与重试的操作。
//
// 无论成败，返回的 Outcome 都有效：失败时携带最后一次尝试的资源、
// 错误分类与尝试次数。error 是最后一次尝试的原始错误（不聚合中间
// 错误）；资源租借失败（全部资源熔断中、上下文已取消）直接终止
// 执行链并原样返回租借错误，此时不消耗任何尝试次数。
//
// 这是泛型函数，必须作为包级函数使用。
func Run[T any](ctx context.Context, e *Executor, op Operation[T]) (Outcome[T], error) {
	var out Outcome[T]
	if e == nil {
		return out, ErrNilExecutor
	}
	if ctx == nil {
		return out, ErrNilContext
	}
	if op == nil {
		return out, ErrNilOperation
	}

	out.RequestID = uuid.NewString()
	ctx = xctx.WithRequestID(ctx, out.RequestID)
	logger := e.logger.With(slog.String(xctx.KeyRequestID, out.RequestID))

	st := &runState{}
	start := time.Now()
	value, err := retry.NewWithData[T](e.buildOptions(ctx, logger, st)...).Do(func() (T, error) {
		return runAttempt(ctx, e, st, op)
	})

	out.Value = value
	out.ResourceID = st.lastID
	out.Attempts = st.attempts
	out.Elapsed = time.Since(start)
	out.Kind = st.lastKind
	out.Category = categorize(err, st.lastKind)
	return out, err
}

// runAttempt 执行链中的单次尝试：租借、执行、上报。
func runAttempt[T any](ctx context.Context, e *Executor, st *runState, op Operation[T]) (T, error) {
	var zero T
	lease, err := e.mgr.AcquireAvoiding(ctx, st.avoid)
	if err != nil {
		// 租借失败说明池子整体不可用或上下文已取消，重试换不来新资源
		st.lastKind = xclassify.KindUnknown
		return zero, retry.Unrecoverable(err)
	}

	st.attempts++
	st.lastID = lease.Resource().ID()

	value, opErr := op(xctx.WithResource(ctx, st.lastID), lease.Resource().Credential())
	st.lastKind = lease.Release(opErr)
	if opErr == nil {
		return value, nil
	}
	if st.lastKind.ShouldRotate() {
		st.avoid = st.lastID
	} else {
		st.avoid = ""
	}
	return zero, opErr
}

// buildOptions 构建 retry-go 的选项。
// 设计决策: 每次 Run 重建选项切片，相对被重试的外部操作本身，
// 这点分配开销可以忽略。
func (e *Executor) buildOptions(ctx context.Context, logger *slog.Logger, st *runState) []retry.Option {
	opts := make([]retry.Option, 0, 6)

	opts = append(opts, retry.Context(ctx))
	opts = append(opts, retry.Attempts(safeIntToUint(e.maxAttempts)))

	// 是否重试由错误分类的策略表决定；Unrecoverable（租借失败）
	// 与上下文取消无条件终止
	opts = append(opts, retry.RetryIf(func(err error) bool {
		if !retry.IsRecoverable(err) {
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		return st.lastKind.Retryable()
	}))

	// 注意：retry-go v5 中 DelayType 的 n 从 1 开始，与 BackoffPolicy.NextDelay 一致
	opts = append(opts, retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
		return e.backoff.NextDelay(safeUintToInt(n))
	}))

	// 注意：retry-go v5 中 OnRetry 的 n 从 0 开始，需要 +1 转换为 1-based
	opts = append(opts, retry.OnRetry(func(n uint, err error) {
		attempt := safeUintToInt(n) + 1
		logger.DebugContext(ctx, "retrying operation",
			slog.Int("attempt", attempt),
			slog.String("resource", st.lastID),
			slog.String("kind", st.lastKind.String()),
			slog.Any("error", err),
		)
		if e.onRetry != nil {
			e.onRetry(attempt, err)
		}
	}))

	// 只返回最后一个错误，调用方用 errors.Is 即可判断
	opts = append(opts, retry.LastErrorOnly(true))

	return opts
}

// safeIntToUint 将 int 安全转换为 uint。
// 负数返回 0，正数直接转换。
func safeIntToUint(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(n)
}

// safeUintToInt 将 uint 安全转换为 int。
// 超过 MaxInt 的值会被截断到 MaxInt。
func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
