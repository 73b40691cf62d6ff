package xrotate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/rotakit/pkg/resilience/xbreaker"
	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
	"github.com/omeyang/rotakit/pkg/rotation/xstrategy"
)

// ===== 默认参数 =====

const (
	// DefaultFailureThreshold 是连续失败熔断阈值。
	DefaultFailureThreshold uint32 = 5
	// DefaultRateThreshold 是失败率熔断阈值。
	DefaultRateThreshold = 0.95
	// DefaultMinSampleSize 是失败率熔断生效的最小样本数。
	DefaultMinSampleSize uint32 = 10
	// DefaultCoolDown 是熔断冷却时长。
	DefaultCoolDown = time.Hour
)

// ===== 配置选项 =====

type config struct {
	strategy         xstrategy.Strategy
	selector         xstrategy.Selector
	failureThreshold uint32
	rateThreshold    float64
	minSampleSize    uint32
	coolDown         time.Duration
	minInterval      time.Duration
	classifier       xclassify.Classifier
	logger           *slog.Logger
	stateChangeHook  func(id string, from, to CircuitState)
}

func defaultConfig() config {
	return config{
		strategy:         xstrategy.RoundRobin,
		failureThreshold: DefaultFailureThreshold,
		rateThreshold:    DefaultRateThreshold,
		minSampleSize:    DefaultMinSampleSize,
		coolDown:         DefaultCoolDown,
		classifier:       xclassify.NewDefault(),
		logger:           slog.Default(),
	}
}

// Option 管理器配置选项。
type Option func(*config)

// WithStrategy 设置资源选择策略。
//
// 默认策略：RoundRobin。
func WithStrategy(s xstrategy.Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithSelector 注入自定义选择器，优先于 WithStrategy。
func WithSelector(sel xstrategy.Selector) Option {
	return func(c *config) {
		if sel != nil {
			c.selector = sel
		}
	}
}

// WithFailureThreshold 设置连续失败熔断阈值。
//
// 默认值：5。
func WithFailureThreshold(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.failureThreshold = n
		}
	}
}

// WithRateThreshold 设置失败率熔断阈值，取值 (0, 1]。
//
// 默认值：0.95。
func WithRateThreshold(r float64) Option {
	return func(c *config) {
		if r > 0 && r <= 1 {
			c.rateThreshold = r
		}
	}
}

// WithMinSampleSize 设置失败率熔断生效的最小样本数。
//
// 默认值：10。
func WithMinSampleSize(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.minSampleSize = n
		}
	}
}

// WithCoolDown 设置熔断冷却时长。
//
// 默认值：1 小时。
func WithCoolDown(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.coolDown = d
		}
	}
}

// WithMinInterval 设置同一资源两次使用之间的最小间隔，0 表示不节流。
//
// 默认值：0。
func WithMinInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.minInterval = d
		}
	}
}

// WithClassifier 设置错误分类器。
//
// 默认分类器：xclassify.NewDefault()。
func WithClassifier(cl xclassify.Classifier) Option {
	return func(c *config) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithLogger 设置结构化日志器。
//
// 默认日志器：slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStateChangeHook 设置熔断状态变化回调，用于监控集成。
// 回调在状态转换发生的调用路径上同步执行，实现必须轻量。
func WithStateChangeHook(f func(id string, from, to CircuitState)) Option {
	return func(c *config) { c.stateChangeHook = f }
}

// ===== Manager =====

// Manager 管理固定资源集合的选择、健康统计与熔断隔离。
//
// 资源集合在构建后不可变。全部可变状态都在 xhealth.Board 与
// xbreaker.Guard 的内部锁保护下，Manager 的所有方法并发安全。
type Manager struct {
	resources map[string]Resource
	order     []string
	board     *xhealth.Board
	guards    map[string]*xbreaker.Guard
	selector  xstrategy.Selector
	pace      *pacer
	classify  xclassify.Classifier
	logger    *slog.Logger

	failureThreshold uint32
	coolDown         time.Duration
}

// NewManager 创建资源池管理器。
// 资源 ID 必须非空且互不重复，凭证必须非 nil。
func NewManager(resources []Resource, opts ...Option) (*Manager, error) {
	if len(resources) == 0 {
		return nil, ErrNoResources
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	byID := make(map[string]Resource, len(resources))
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		if r.ID() == "" {
			return nil, ErrEmptyResourceID
		}
		if r.Credential() == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilCredential, r.ID())
		}
		if _, dup := byID[r.ID()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResource, r.ID())
		}
		byID[r.ID()] = r
		ids = append(ids, r.ID())
	}

	board, err := xhealth.NewBoard(ids)
	if err != nil {
		return nil, err
	}

	selector := cfg.selector
	if selector == nil {
		selector, err = xstrategy.New(cfg.strategy, xstrategy.Params{
			RateThreshold: cfg.rateThreshold,
			MinSampleSize: uint64(cfg.minSampleSize),
		})
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		resources:        byID,
		order:            ids,
		board:            board,
		guards:           make(map[string]*xbreaker.Guard, len(ids)),
		selector:         selector,
		pace:             newPacer(ids, cfg.minInterval),
		classify:         cfg.classifier,
		logger:           cfg.logger,
		failureThreshold: cfg.failureThreshold,
		coolDown:         cfg.coolDown,
	}

	// 双条件熔断：连续失败 OR 样本充分时的高失败率。
	// 策略无状态，全部守卫共享同一实例。
	trip := xbreaker.NewCompositePolicy(
		xbreaker.NewConsecutiveFailures(cfg.failureThreshold),
		xbreaker.NewFailureRatio(cfg.rateThreshold, cfg.minSampleSize),
	)
	for _, id := range ids {
		m.guards[id] = xbreaker.NewGuard(id,
			xbreaker.WithTripPolicy(trip),
			xbreaker.WithTimeout(cfg.coolDown),
			xbreaker.WithMaxRequests(1),
			xbreaker.WithOnStateChange(m.guardStateChange(cfg.stateChangeHook)),
		)
	}
	return m, nil
}

// guardStateChange 把守卫状态变化统一记录日志并转发给外部回调。
func (m *Manager) guardStateChange(hook func(id string, from, to CircuitState)) func(string, xbreaker.State, xbreaker.State) {
	return func(name string, from, to xbreaker.State) {
		fromState, toState := fromBreakerState(from), fromBreakerState(to)
		m.logger.Info("circuit state changed",
			slog.String("resource", name),
			slog.String("from", fromState.String()),
			slog.String("to", toState.String()),
		)
		if hook != nil {
			hook(name, fromState, toState)
		}
	}
}

// Acquire 选出一个可用资源并返回租约。
//
// 所有资源都处于熔断冷却期时返回 ErrNoHealthyResource；
// 节流等待期间 ctx 取消时返回 ctx 的错误，不消耗任何熔断名额。
func (m *Manager) Acquire(ctx context.Context) (*Lease, error) {
	return m.AcquireAvoiding(ctx, "")
}

// AcquireAvoiding 在 Acquire 基础上接受规避提示：avoid 指向上一次
// 失败尝试所用的资源，存在其他候选时不再选它，只剩它时忽略提示。
func (m *Manager) AcquireAvoiding(ctx context.Context, avoid string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := m.candidates()
	for len(candidates) > 0 {
		id, ok := m.selector.Pick(candidates, avoid)
		if !ok {
			break
		}

		// 节流在取许可之前：等待被取消时不占用半开探测名额
		if err := m.pace.wait(ctx, id); err != nil {
			return nil, err
		}

		done, err := m.guards[id].Allow()
		if err != nil {
			// 并发竞争下状态可能在选择后翻转（探测名额被抢、刚熔断），
			// 该候选退出本轮选择
			candidates = dropCandidate(candidates, id)
			continue
		}

		tracker, _ := m.board.Tracker(id)
		tracker.Touch(time.Now())
		return &Lease{
			res:      m.resources[id],
			tracker:  tracker,
			done:     done,
			classify: m.classify,
		}, nil
	}
	return nil, ErrNoHealthyResource
}

// candidates 构建当前可选资源集：熔断打开且未冷却的资源不参与。
// 冷却期满的 Open 在 State 评估时惰性转为 HalfOpen，以探测候选身份进入。
func (m *Manager) candidates() []xstrategy.Candidate {
	out := make([]xstrategy.Candidate, 0, len(m.order))
	for _, id := range m.order {
		state := m.guards[id].State()
		if state == xbreaker.StateOpen {
			continue
		}
		stats, _ := m.board.Stats(id)
		out = append(out, xstrategy.Candidate{
			ID:        id,
			Requests:  stats.Requests,
			ErrorRate: stats.ErrorRate(),
			Probing:   state == xbreaker.StateHalfOpen,
		})
	}
	return out
}

// dropCandidate 原地过滤掉指定候选。
func dropCandidate(candidates []xstrategy.Candidate, id string) []xstrategy.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// IDs 返回全部资源 ID 的副本，顺序与构建时一致。
func (m *Manager) IDs() []string {
	return m.board.IDs()
}

// Len 返回资源数量。
func (m *Manager) Len() int {
	return m.board.Len()
}

// Resource 返回指定 ID 的资源。
func (m *Manager) Resource(id string) (Resource, bool) {
	r, ok := m.resources[id]
	return r, ok
}

// Stats 返回指定资源的健康统计快照。
func (m *Manager) Stats(id string) (xhealth.Stats, bool) {
	return m.board.Stats(id)
}

// Snapshot 返回全部资源的健康与熔断状态视图。
func (m *Manager) Snapshot() map[string]ResourceState {
	out := make(map[string]ResourceState, len(m.order))
	for _, id := range m.order {
		g := m.guards[id]
		stats, _ := m.board.Stats(id)
		rs := ResourceState{
			Stats:   stats,
			Circuit: fromBreakerState(g.State()),
		}
		if openedAt, ok := g.OpenedAt(); ok {
			rs.OpenedAt = &openedAt
		}
		out[id] = rs
	}
	return out
}

// ExportState 导出资源池状态快照，供调用方持久化到外部存储。
// 管理器自身从不隐式持久化任何状态。
func (m *Manager) ExportState() PoolState {
	return PoolState{
		Version:   StateVersion,
		TakenAt:   time.Now(),
		Resources: m.Snapshot(),
	}
}

// RestoreState 从快照恢复健康统计与熔断状态，应在管理器
// 开始服务流量之前调用。
//
// 快照中处于 OPEN 且冷却未结束的资源会被重新压回熔断，冷却期从
// 恢复时刻重新起算；冷却已结束的按 CLOSED 恢复，下次被选中即是探测。
// 快照里不认识的资源 ID 跳过并记录日志。
func (m *Manager) RestoreState(state PoolState) error {
	if state.Version != StateVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrIncompatibleState, state.Version, StateVersion)
	}

	now := time.Now()
	for id, rs := range state.Resources {
		tracker, ok := m.board.Tracker(id)
		if !ok {
			m.logger.Warn("skipping state for unknown resource",
				slog.String("resource", id))
			continue
		}
		tracker.Restore(rs.Stats)

		if rs.Circuit != CircuitOpen {
			continue
		}
		// OpenedAt 缺失的 OPEN 快照无从判断冷却进度，按未冷却处理
		if rs.OpenedAt == nil || now.Sub(*rs.OpenedAt) < m.coolDown {
			m.reopen(id)
		}
	}
	return nil
}

// reopen 通过重放失败把守卫压回 Open。
// gobreaker 无法回填熔断时刻，恢复的熔断以当前时间重新起算冷却，
// 宁可多隔离一个冷却周期也不放行仍在惩罚期的资源。
func (m *Manager) reopen(id string) {
	g := m.guards[id]
	for range m.failureThreshold {
		if g.State() == xbreaker.StateOpen {
			return
		}
		done, err := g.Allow()
		if err != nil {
			return
		}
		done(errReplayedFailure)
	}
}

// ===== Lease =====

// Lease 绑定一次执行：所选资源加本次熔断许可。
// 每个租约必须恰好 Release 一次，重复释放是无害的空操作。
type Lease struct {
	res      Resource
	tracker  *xhealth.Tracker
	done     func(error)
	classify xclassify.Classifier
	once     sync.Once
}

// Resource 返回租约绑定的资源。
func (l *Lease) Resource() Resource {
	return l.res
}

// Release 上报本次执行结果并归还租约，返回结果的错误分类
// （opErr 为 nil 时返回 KindUnknown，此时返回值无意义）。
//
// 健康统计与熔断按分类区别对待：不计入熔断的分类（目标不存在、
// 响应解析失败）说明资源本身工作正常，熔断视角按成功上报。
func (l *Lease) Release(opErr error) xclassify.Kind {
	var kind xclassify.Kind
	if opErr != nil {
		kind = l.classify.Classify(opErr)
	}
	l.once.Do(func() {
		if opErr == nil {
			l.tracker.RecordSuccess()
			l.done(nil)
			return
		}
		l.tracker.RecordFailure(kind)
		if kind.CountsTowardCircuit() {
			l.done(opErr)
			return
		}
		l.done(nil)
	})
	return kind
}
