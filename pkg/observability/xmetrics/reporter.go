package xmetrics

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/rotakit/pkg/util/xjson"
)

// DefaultSchedule 是摘要报告的默认 cron 计划。
const DefaultSchedule = "@every 1m"

type reporterConfig struct {
	logger *slog.Logger
	hook   func(Snapshot)
}

// ReporterOption 摘要报告器配置选项。
type ReporterOption func(*reporterConfig)

// WithReporterLogger 设置结构化日志器。
//
// 默认日志器：slog.Default()。
func WithReporterLogger(l *slog.Logger) ReporterOption {
	return func(c *reporterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSnapshotHook 设置快照导出回调，每次报告时同步调用。
// 回调在 cron 的执行 goroutine 上运行，实现必须轻量且并发安全。
func WithSnapshotHook(fn func(Snapshot)) ReporterOption {
	return func(c *reporterConfig) {
		if fn != nil {
			c.hook = fn
		}
	}
}

// Reporter 按 cron 计划定期输出 Sink 摘要。
//
// Start 之后必须调用 Stop 释放调度 goroutine；两者都幂等。
type Reporter struct {
	sink   *Sink
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
	hook   func(Snapshot)

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReporter 创建摘要报告器。
// spec 是 robfig/cron 的计划表达式（如 "@every 1m"），构造时即校验。
func NewReporter(sink *Sink, spec string, opts ...ReporterOption) (*Reporter, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if spec == "" {
		return nil, ErrEmptySchedule
	}

	cfg := reporterConfig{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	r := &Reporter{
		sink:   sink,
		cron:   cron.New(),
		spec:   spec,
		logger: cfg.logger,
		hook:   cfg.hook,
	}
	if _, err := r.cron.AddFunc(spec, r.ReportNow); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, spec, err)
	}
	return r, nil
}

// Start 启动定期报告，幂等。
func (r *Reporter) Start() {
	r.startOnce.Do(func() {
		r.logger.Info("metrics reporter started", slog.String("schedule", r.spec))
		r.cron.Start()
	})
}

// Stop 停止定期报告并等待执行中的报告完成，幂等。
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		<-r.cron.Stop().Done()
		r.logger.Info("metrics reporter stopped")
	})
}

// ReportNow 立即输出一次摘要，不影响定期计划。
// 调用方可在批次结束等关键节点主动触发。
func (r *Reporter) ReportNow() {
	snap := r.sink.Snapshot()
	r.logger.Info("metrics summary",
		slog.Any("totals", snap.Totals),
		slog.Int("resources", len(snap.PerResource)),
		slog.Int("recent_errors", len(snap.RecentErrors)),
	)
	r.logger.Debug("metrics snapshot", slog.String("snapshot", xjson.Pretty(snap)))
	if r.hook != nil {
		r.hook(snap)
	}
}
