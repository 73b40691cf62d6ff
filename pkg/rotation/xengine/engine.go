package xengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/rotakit/pkg/config/xconf"
	"github.com/omeyang/rotakit/pkg/observability/xmetrics"
	"github.com/omeyang/rotakit/pkg/rotation/xbatch"
	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xexec"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
	"github.com/omeyang/rotakit/pkg/rotation/xrotate"
	"github.com/omeyang/rotakit/pkg/rotation/xstrategy"
	"github.com/omeyang/rotakit/pkg/storage/xstate"
)

// stateOpTimeout 限制启动恢复与关闭落盘这两次状态存储访问的时长，
// 避免存储不可用时阻塞引擎的生命周期。
const stateOpTimeout = 5 * time.Second

// ===== 配置与选项 =====

type engineConfig struct {
	logger     *slog.Logger
	classifier xclassify.Classifier
	provider   metric.MeterProvider
	schedule   string
	store      xstate.Store
	stateKey   string
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger: slog.Default(),
	}
}

// Option 配置引擎的可选参数。
type Option func(*engineConfig)

// WithLogger 设置结构化日志器。
// 默认使用 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClassifier 设置错误分类器，覆盖默认分类规则。
// 需要按 HTTP 状态码等调用方语义分类时使用。
func WithClassifier(cl xclassify.Classifier) Option {
	return func(c *engineConfig) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithMeterProvider 启用 OpenTelemetry 指标桥接，
// 每条执行记录同步写入 OTel 计数器与耗时直方图。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *engineConfig) {
		if provider != nil {
			c.provider = provider
		}
	}
}

// WithSummarySchedule 启用定时汇总日志，spec 为 cron 表达式
// （支持 @every 语法，如 "@every 1m"）。不设置则不启动定时器。
func WithSummarySchedule(spec string) Option {
	return func(c *engineConfig) {
		c.schedule = spec
	}
}

// WithSnapshotStore 启用池状态持久化：构造时从 store 恢复 key 下的
// 快照，Close 时落盘最终状态。引擎接管 store 的生命周期，
// Close 时一并关闭。
func WithSnapshotStore(store xstate.Store, key string) Option {
	return func(c *engineConfig) {
		c.store = store
		c.stateKey = key
	}
}

// ===== 引擎 =====

// Engine 是面向调用方的顶层门面，把配置、资源池、执行链、批量
// 调度与指标汇聚装配成一个整体。池在构造后不可变，配置变更需要
// 重建引擎。
type Engine struct {
	cfg    xconf.Config
	logger *slog.Logger

	mgr    *xrotate.Manager
	exec   *xexec.Executor
	runner *xbatch.Runner
	sink   *xmetrics.Sink

	reporter *xmetrics.Reporter
	store    xstate.Store
	stateKey string

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New 按配置装配引擎。cfg 必须能通过 Validate 校验。
//
// 配置了快照存储时，构造会尝试恢复历史池状态：快照缺失、损坏或
// 版本不兼容都按全新启动处理并记录日志，不会让构造失败。
func New(cfg xconf.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ec := defaultEngineConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&ec)
		}
	}
	if ec.store != nil && ec.stateKey == "" {
		return nil, ErrEmptyStateKey
	}
	if ec.stateKey != "" && ec.store == nil {
		return nil, ErrNilStore
	}

	strategy, err := xstrategy.Parse(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	mgr, err := newManager(cfg, strategy, ec)
	if err != nil {
		return nil, err
	}

	exec, err := newExecutor(cfg, mgr, ec)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(mgr, ec)
	if err != nil {
		return nil, err
	}

	runner, err := xbatch.NewRunner(exec,
		xbatch.WithWorkers(cfg.Workers()),
		xbatch.WithLogger(ec.logger),
		xbatch.WithOutcomeHook(sink.Record),
	)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		logger:   ec.logger,
		mgr:      mgr,
		exec:     exec,
		runner:   runner,
		sink:     sink,
		store:    ec.store,
		stateKey: ec.stateKey,
	}

	if ec.schedule != "" {
		reporter, err := xmetrics.NewReporter(sink, ec.schedule,
			xmetrics.WithReporterLogger(ec.logger),
		)
		if err != nil {
			_ = sink.Close()
			return nil, err
		}
		e.reporter = reporter
		reporter.Start()
	}

	if e.store != nil {
		e.restoreState()
	}
	return e, nil
}

func newManager(cfg xconf.Config, strategy xstrategy.Strategy, ec engineConfig) (*xrotate.Manager, error) {
	opts := []xrotate.Option{
		xrotate.WithStrategy(strategy),
		xrotate.WithFailureThreshold(cfg.FailureThreshold),
		xrotate.WithRateThreshold(cfg.RateThreshold),
		xrotate.WithMinSampleSize(cfg.MinSampleSize),
		xrotate.WithCoolDown(cfg.CoolDown()),
		xrotate.WithMinInterval(cfg.MinRequestInterval()),
		xrotate.WithLogger(ec.logger),
	}
	if ec.classifier != nil {
		opts = append(opts, xrotate.WithClassifier(ec.classifier))
	}
	return xrotate.NewManager(cfg.BuildResources(), opts...)
}

func newExecutor(cfg xconf.Config, mgr *xrotate.Manager, ec engineConfig) (*xexec.Executor, error) {
	return xexec.NewExecutor(mgr,
		xexec.WithMaxAttempts(int(cfg.MaxAttempts)),
		xexec.WithBackoff(backoffFromConfig(cfg)),
		xexec.WithLogger(ec.logger),
	)
}

// backoffFromConfig 按配置构建指数退避。
// max_delay_seconds 为 0 时不封顶，延迟序列严格按 base * 2^(attempt-1) 增长。
func backoffFromConfig(cfg xconf.Config) *xexec.ExponentialBackoff {
	return xexec.NewExponentialBackoff(
		xexec.WithInitialDelay(cfg.BaseDelay()),
		xexec.WithJitter(cfg.BackoffJitter),
		xexec.WithMaxDelay(cfg.MaxDelay()),
	)
}

func newSink(mgr *xrotate.Manager, ec engineConfig) (*xmetrics.Sink, error) {
	opts := []xmetrics.SinkOption{
		xmetrics.WithLogger(ec.logger),
		xmetrics.WithHealthSource(healthSource(mgr)),
	}
	if ec.provider != nil {
		bridge, err := xmetrics.NewOTelBridge(xmetrics.WithMeterProvider(ec.provider))
		if err != nil {
			return nil, err
		}
		opts = append(opts, xmetrics.WithExporter(bridge))
	}
	return xmetrics.NewSink(opts...), nil
}

// healthSource 把管理器的池快照转成健康统计视图，
// 使指标快照的逐资源部分始终反映真实健康板。
func healthSource(mgr *xrotate.Manager) xmetrics.HealthSource {
	return func() map[string]xhealth.Stats {
		snap := mgr.Snapshot()
		out := make(map[string]xhealth.Stats, len(snap))
		for id, rs := range snap {
			out[id] = rs.Stats
		}
		return out
	}
}

// ===== 访问器 =====

// Manager 返回底层的资源轮换管理器。
func (e *Engine) Manager() *xrotate.Manager {
	return e.mgr
}

// Metrics 返回指标汇聚器，调用方可随时拉取 Snapshot。
func (e *Engine) Metrics() *xmetrics.Sink {
	return e.sink
}

// Config 返回构造时的配置副本。
func (e *Engine) Config() xconf.Config {
	return e.cfg
}

// ===== 执行 =====

// Execute 通过引擎执行一次操作：租借资源、驱动重试与轮换、
// 上报指标。语义与 [xexec.Run] 一致。
func Execute[T any](ctx context.Context, e *Engine, op xexec.Operation[T]) (xexec.Outcome[T], error) {
	if e.closed.Load() {
		var zero xexec.Outcome[T]
		return zero, ErrClosed
	}
	out, err := xexec.Run(ctx, e.exec, op)
	e.sink.Record(out.Meta())
	return out, err
}

// RunBatch 通过引擎批量执行操作，逐条结果随完成上报指标。
// 语义与 [xbatch.Run] 一致。
func RunBatch[I, T any](ctx context.Context, e *Engine, items []I, op xbatch.ItemOperation[I, T]) (xbatch.Result[I, T], error) {
	if e.closed.Load() {
		var zero xbatch.Result[I, T]
		return zero, ErrClosed
	}
	return xbatch.Run(ctx, e.runner, items, op)
}

// ===== 状态持久化 =====

// Snapshot 导出当前池状态，供调用方自行持久化。
func (e *Engine) Snapshot() xrotate.PoolState {
	return e.mgr.ExportState()
}

// Restore 从快照恢复池状态，应在引擎开始服务流量之前调用。
func (e *Engine) Restore(state xrotate.PoolState) error {
	return e.mgr.RestoreState(state)
}

// SaveState 把当前池状态写入快照存储。
func (e *Engine) SaveState(ctx context.Context) error {
	if e.store == nil {
		return ErrNoSnapshotStore
	}
	return e.store.Save(ctx, e.stateKey, e.mgr.ExportState())
}

// LoadState 从快照存储读取并恢复池状态。快照不存在时返回 false。
func (e *Engine) LoadState(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, ErrNoSnapshotStore
	}
	state, ok, err := e.store.Load(ctx, e.stateKey)
	if err != nil || !ok {
		return false, err
	}
	if err := e.mgr.RestoreState(state); err != nil {
		return false, err
	}
	return true, nil
}

// restoreState 在构造时尽力恢复历史池状态。
// 任何失败都降级为全新启动，只记日志。
func (e *Engine) restoreState() {
	ctx, cancel := context.WithTimeout(context.Background(), stateOpTimeout)
	defer cancel()

	ok, err := e.LoadState(ctx)
	switch {
	case err != nil:
		e.logger.Warn("state restore failed, starting fresh",
			slog.String("key", e.stateKey),
			slog.Any("error", err),
		)
	case ok:
		e.logger.Info("pool state restored",
			slog.String("key", e.stateKey),
		)
	default:
		e.logger.Info("no saved pool state, starting fresh",
			slog.String("key", e.stateKey),
		)
	}
}

// ===== 关闭 =====

// Close 停止定时汇总、落盘最终池状态（若配置了快照存储）、
// 关闭指标汇聚器与快照存储。幂等，可安全重复调用。
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)

		if e.reporter != nil {
			e.reporter.Stop()
		}

		var errs []error
		if e.store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), stateOpTimeout)
			if err := e.SaveState(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		if err := e.sink.Close(); err != nil {
			errs = append(errs, err)
		}
		if e.store != nil {
			if err := e.store.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
