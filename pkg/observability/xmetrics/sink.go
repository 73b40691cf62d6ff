package xmetrics

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xexec"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
)

// ===== 默认参数 =====

const (
	// DefaultBufferSize 是 Record 缓冲队列的默认容量。
	DefaultBufferSize = 256
	// DefaultRecentErrors 是最近失败样本 LRU 的默认容量。
	DefaultRecentErrors = 128
	// DefaultRecentErrorsTTL 是失败样本的默认保留时长。
	DefaultRecentErrorsTTL = 10 * time.Minute
)

// Exporter 把单条执行链元数据导出到外部观测系统。
// Export 在收集 goroutine 上串行调用，实现不必考虑并发，
// 但也因此不允许长时间阻塞。
type Exporter interface {
	Export(meta xexec.Meta)
}

// HealthSource 提供资源池健康统计的一致性快照。
// 配置后 Snapshot 的逐资源视图以它为准（健康板是乐观计数的
// 权威来源），未配置时退化为 Sink 自身按记录聚合的计数。
type HealthSource func() map[string]xhealth.Stats

// ===== 配置选项 =====

type sinkConfig struct {
	bufferSize  int
	recentCap   int
	recentTTL   time.Duration
	logger      *slog.Logger
	health      HealthSource
	exporters   []Exporter
}

func defaultSinkConfig() sinkConfig {
	return sinkConfig{
		bufferSize: DefaultBufferSize,
		recentCap:  DefaultRecentErrors,
		recentTTL:  DefaultRecentErrorsTTL,
		logger:     slog.Default(),
	}
}

// SinkOption 指标聚合器配置选项。
type SinkOption func(*sinkConfig)

// WithBufferSize 设置 Record 缓冲队列容量。
//
// 默认值：256。非正值被静默忽略。
func WithBufferSize(n int) SinkOption {
	return func(c *sinkConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithRecentErrors 设置最近失败样本的容量与保留时长。
//
// 默认值：128 条、10 分钟。非正值被静默忽略。
func WithRecentErrors(capacity int, ttl time.Duration) SinkOption {
	return func(c *sinkConfig) {
		if capacity > 0 {
			c.recentCap = capacity
		}
		if ttl > 0 {
			c.recentTTL = ttl
		}
	}
}

// WithLogger 设置结构化日志器。
//
// 默认日志器：slog.Default()。
func WithLogger(l *slog.Logger) SinkOption {
	return func(c *sinkConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHealthSource 设置资源池健康统计来源。
func WithHealthSource(src HealthSource) SinkOption {
	return func(c *sinkConfig) {
		if src != nil {
			c.health = src
		}
	}
}

// WithExporter 追加一个外部导出器，可多次使用。
func WithExporter(e Exporter) SinkOption {
	return func(c *sinkConfig) {
		if e != nil {
			c.exporters = append(c.exporters, e)
		}
	}
}

// ===== Sink =====

// resourceAgg 是单个资源在 Sink 视角下的聚合计数。
type resourceAgg struct {
	requests uint64
	errors   uint64
	lastKind xclassify.Kind
	hasError bool
}

// Sink 聚合执行链结果。
//
// Record 永不阻塞：记录进入缓冲队列由收集 goroutine 消费，
// 队列满时丢弃并计数。用完必须调用 Close 释放收集 goroutine。
type Sink struct {
	buf    chan xexec.Meta
	quit   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	health    HealthSource
	exporters []Exporter
	recent    *expirable.LRU[string, ErrorSample]

	mu          sync.Mutex
	success     uint64
	failure     uint64
	notFound    uint64
	byKind      map[xclassify.Kind]uint64
	perResource map[string]*resourceAgg

	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewSink 创建指标聚合器并启动收集 goroutine。
func NewSink(opts ...SinkOption) *Sink {
	cfg := defaultSinkConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s := &Sink{
		buf:         make(chan xexec.Meta, cfg.bufferSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      cfg.logger,
		health:      cfg.health,
		exporters:   cfg.exporters,
		recent:      expirable.NewLRU[string, ErrorSample](cfg.recentCap, nil, cfg.recentTTL),
		byKind:      make(map[xclassify.Kind]uint64),
		perResource: make(map[string]*resourceAgg),
	}
	go s.collect()
	return s
}

// Record 上报一条执行链元数据。
//
// 缓冲满或 Sink 已关闭时记录被丢弃并计数，调用方永不被阻塞。
func (s *Sink) Record(meta xexec.Meta) {
	select {
	case <-s.quit:
		s.dropped.Add(1)
		return
	default:
	}
	select {
	case s.buf <- meta:
	default:
		s.dropped.Add(1)
		s.logger.Warn("metrics record dropped, buffer full",
			slog.String("request_id", meta.RequestID),
			slog.Uint64("dropped_total", s.dropped.Load()),
		)
	}
}

// Dropped 返回累计丢弃的记录条数。
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close 停止收集 goroutine 并排空缓冲中剩余的记录。
// 幂等，可安全重复调用；关闭后 Record 变为丢弃计数的空操作。
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}

// collect 是收集 goroutine 的主循环。
func (s *Sink) collect() {
	defer close(s.done)
	for {
		select {
		case meta := <-s.buf:
			s.apply(meta)
		case <-s.quit:
			// 排空已入队的记录再退出，Close 前的上报不丢
			for {
				select {
				case meta := <-s.buf:
					s.apply(meta)
				default:
					return
				}
			}
		}
	}
}

// apply 把一条记录合入聚合状态并转发给导出器。
func (s *Sink) apply(meta xexec.Meta) {
	s.mu.Lock()
	agg, ok := s.perResource[meta.ResourceID]
	if !ok && meta.ResourceID != "" {
		agg = &resourceAgg{}
		s.perResource[meta.ResourceID] = agg
	}
	if agg != nil {
		agg.requests++
	}

	switch meta.Category {
	case xexec.CategorySuccess:
		s.success++
	case xexec.CategoryNotFound:
		s.notFound++
	default:
		s.failure++
		s.byKind[meta.Kind]++
		if agg != nil {
			agg.errors++
			agg.lastKind = meta.Kind
			agg.hasError = true
		}
	}
	s.mu.Unlock()

	if meta.Category == xexec.CategoryError {
		s.recent.Add(meta.RequestID, ErrorSample{
			RequestID:  meta.RequestID,
			ResourceID: meta.ResourceID,
			Kind:       meta.Kind,
			At:         time.Now(),
		})
	}
	for _, e := range s.exporters {
		e.Export(meta)
	}
}

// Snapshot 返回当前聚合状态的一致性快照。
func (s *Sink) Snapshot() Snapshot {
	snap := Snapshot{
		TakenAt:      time.Now(),
		RecentErrors: s.recent.Values(),
	}

	s.mu.Lock()
	snap.Totals = Totals{
		Success:     s.success,
		Failure:     s.failure,
		NotFound:    s.notFound,
		Dropped:     s.dropped.Load(),
		ByErrorKind: make(map[xclassify.Kind]uint64, len(s.byKind)),
	}
	for k, n := range s.byKind {
		snap.Totals.ByErrorKind[k] = n
	}
	// 配置了健康数据源时逐资源视图以它为准，不再构建 Sink 侧计数视图
	if s.health == nil {
		snap.PerResource = s.perResourceLocked()
	}
	s.mu.Unlock()

	if s.health != nil {
		snap.PerResource = fromHealth(s.health())
	}
	return snap
}

// perResourceLocked 从 Sink 自身计数构建逐资源视图，调用方必须持锁。
func (s *Sink) perResourceLocked() map[string]ResourceSnapshot {
	out := make(map[string]ResourceSnapshot, len(s.perResource))
	for id, agg := range s.perResource {
		rs := ResourceSnapshot{
			Requests: agg.requests,
			Errors:   agg.errors,
		}
		if agg.requests > 0 {
			rs.ErrorRate = float64(agg.errors) / float64(agg.requests)
		}
		if agg.hasError {
			kind := agg.lastKind
			rs.LastErrorKind = &kind
		}
		out[id] = rs
	}
	return out
}

// fromHealth 把健康板快照映射为逐资源视图。
func fromHealth(stats map[string]xhealth.Stats) map[string]ResourceSnapshot {
	out := make(map[string]ResourceSnapshot, len(stats))
	for id, st := range stats {
		out[id] = ResourceSnapshot{
			Requests:      st.Requests,
			Errors:        st.Errors,
			ErrorRate:     st.ErrorRate(),
			LastErrorKind: st.LastErrorKind,
		}
	}
	return out
}
