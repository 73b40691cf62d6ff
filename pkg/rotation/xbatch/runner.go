package xbatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/rotakit/pkg/context/xctx"
	"github.com/omeyang/rotakit/pkg/rotation/xexec"
	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
	"github.com/omeyang/rotakit/pkg/util/xid"
)

// DefaultWorkers 是默认的 worker 数量。
const DefaultWorkers = 4

// ItemOperation 是对单个工作项、以租借到的凭证执行的一次外部操作。
type ItemOperation[I, T any] func(ctx context.Context, item I, cred xrotate.Credential) (T, error)

// Runner 持有批量执行的调度配置。
//
// Runner 自身没有可变状态，可在任意多个 goroutine 间共享；
// 每次 Run 的 worker 池彼此独立。
type Runner struct {
	exec    *xexec.Executor
	workers int
	logger  *slog.Logger
	hook    func(xexec.Meta)
	// newID 生成批次 ID。默认为 xid.Generator.NewString，测试中可替换。
	newID func() (string, error)
}

// RunnerOption 批量运行器配置选项。
type RunnerOption func(*Runner)

// WithWorkers 设置 worker 数量，即同一批次内的最大并发执行链数。
//
// 默认值：4。非正值被静默忽略。单个批次实际启动的 worker
// 不会超过工作项数量。
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger 设置结构化日志器。
//
// 默认日志器：slog.Default()。
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDGenerator 设置批次 ID 生成器。
//
// 默认在 NewRunner 中创建一个（机器 ID 走 xid.DefaultMachineID 策略）。
func WithIDGenerator(gen *xid.Generator) RunnerOption {
	return func(r *Runner) {
		if gen != nil {
			r.newID = gen.NewString
		}
	}
}

// WithOutcomeHook 设置逐项结果回调，供指标采集等观察方使用。
// worker 在每个工作项的执行链结束后同步调用，实现必须轻量且并发安全。
// 工作项 panic 时不回调（此时没有可上报的执行链元数据）。
func WithOutcomeHook(fn func(xexec.Meta)) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.hook = fn
		}
	}
}

// NewRunner 创建批量运行器。
func NewRunner(exec *xexec.Executor, opts ...RunnerOption) (*Runner, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	r := &Runner{
		exec:    exec,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.newID == nil {
		gen, err := xid.NewGenerator()
		if err != nil {
			return nil, fmt.Errorf("xbatch: create batch id generator: %w", err)
		}
		r.newID = gen.NewString
	}
	return r, nil
}

// Workers 返回 worker 数量。nil 接收者返回 0。
func (r *Runner) Workers() int {
	if r == nil {
		return 0
	}
	return r.workers
}

// Run 并发执行一批工作项，返回与输入等长、顺序一致的结果。
//
// error 仅表示参数违约（nil runner/ctx/op）；工作项失败、ctx 取消
// 都体现在逐项结果里，批次本身总是跑完。空批次合法，直接返回空结果。
//
// 这是泛型函数，必须作为包级函数使用。
func Run[I, T any](ctx context.Context, r *Runner, items []I, op ItemOperation[I, T]) (Result[I, T], error) {
	var res Result[I, T]
	if r == nil {
		return res, ErrNilRunner
	}
	if ctx == nil {
		return res, ErrNilContext
	}
	if op == nil {
		return res, ErrNilOperation
	}

	res.BatchID = r.newBatchID(ctx)
	ctx = xctx.WithBatchID(ctx, res.BatchID)
	logger := r.logger.With(slog.String(xctx.KeyBatchID, res.BatchID))

	res.Items = make([]ItemResult[I, T], len(items))
	workers := min(r.workers, len(items))
	logger.DebugContext(ctx, "batch started",
		slog.Int("items", len(items)),
		slog.Int("workers", workers),
	)

	start := time.Now()
	queue := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				res.Items[idx] = runItem(ctx, r, items[idx], op)
			}
		}()
	}

	// 派发下标而非工作项本身，worker 与取消标记各自写入互不重叠的
	// 下标区间，结果切片无需加锁
dispatch:
	for i := range items {
		if ctx.Err() != nil {
			markUnstarted(res.Items, items, i, ctx.Err())
			break dispatch
		}
		select {
		case queue <- i:
		case <-ctx.Done():
			markUnstarted(res.Items, items, i, ctx.Err())
			break dispatch
		}
	}
	close(queue)
	wg.Wait()
	res.Elapsed = time.Since(start)

	logger.InfoContext(ctx, "batch finished",
		slog.Any("summary", res.Summary()),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// newBatchID 生成批次 ID，生成器失败时退化为 UUID 保住日志关联。
func (r *Runner) newBatchID(ctx context.Context) string {
	id, err := r.newID()
	if err != nil {
		r.logger.WarnContext(ctx, "batch id generation failed, falling back to uuid",
			slog.Any("error", err),
		)
		return uuid.NewString()
	}
	return id
}

// runItem 执行单个工作项并捕获 panic。
func runItem[I, T any](ctx context.Context, r *Runner, item I, op ItemOperation[I, T]) (ir ItemResult[I, T]) {
	ir.Item = item
	defer func() {
		if rec := recover(); rec != nil {
			ir.Err = fmt.Errorf("%w: %v", ErrItemPanic, rec)
			r.logger.ErrorContext(ctx, "batch item panic recovered", slog.Any("panic", rec))
		}
	}()

	out, err := xexec.Run(ctx, r.exec, func(ctx context.Context, cred xrotate.Credential) (T, error) {
		return op(ctx, item, cred)
	})
	ir.Outcome = out
	ir.Err = err
	if r.hook != nil {
		r.hook(out.Meta())
	}
	return ir
}

// markUnstarted 为未派发的工作项写入取消错误。
func markUnstarted[I, T any](results []ItemResult[I, T], items []I, from int, err error) {
	for j := from; j < len(items); j++ {
		results[j] = ItemResult[I, T]{Item: items[j], Err: err}
	}
}
