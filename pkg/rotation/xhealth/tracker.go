package xhealth

import (
	"sync"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
)

// Tracker 维护单个资源的健康统计。
// 所有方法并发安全；读取返回一致性快照而非活动引用。
//
// 设计决策: 全部字段在同一把锁下更新，而不是对 requests 单独用原子量。
// 单锁保证快照满足 errors <= requests 不变量，选中路径上的竞争
// 以资源池规模（十级）衡量可以忽略。
type Tracker struct {
	mu                sync.Mutex
	requests          uint64
	errors            uint64
	consecutiveErrors uint64
	lastErrorKind     xclassify.Kind
	hasError          bool
	lastUsedAt        time.Time
}

// NewTracker 创建空统计的 Tracker。
func NewTracker() *Tracker {
	return &Tracker{}
}

// Touch 在资源被选中时调用：requests 乐观递增，last_used_at 刷新为 now。
// 失败的尝试同样占用了一次选中，事后不回退。
func (t *Tracker) Touch(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests++
	t.lastUsedAt = now
}

// RecordSuccess 记录一次成功结果，清零连续错误计数。
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveErrors = 0
}

// RecordFailure 记录一次失败结果。
//
// 只有计入熔断的分类递增 errors 与 consecutiveErrors；
// 非资源故障（PARSE、NOT_FOUND）仅记录分类并打断连败——
// 资源本身工作正常，熔断视角等同一次成功。
func (t *Tracker) RecordFailure(kind xclassify.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErrorKind = kind
	t.hasError = true
	if kind.CountsTowardCircuit() {
		t.errors++
		t.consecutiveErrors++
		return
	}
	t.consecutiveErrors = 0
}

// Stats 返回当前统计的一致性快照。
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{
		Requests:          t.requests,
		Errors:            t.errors,
		ConsecutiveErrors: t.consecutiveErrors,
		LastUsedAt:        t.lastUsedAt,
	}
	if t.hasError {
		kind := t.lastErrorKind
		s.LastErrorKind = &kind
	}
	return s
}

// Restore 用快照覆盖当前统计，用于从外部存储恢复状态。
// errors > requests 的非法快照会被箝位以保持不变量。
func (t *Tracker) Restore(s Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = s.Requests
	t.errors = min(s.Errors, s.Requests)
	t.consecutiveErrors = s.ConsecutiveErrors
	t.lastUsedAt = s.LastUsedAt
	t.hasError = s.LastErrorKind != nil
	if s.LastErrorKind != nil {
		t.lastErrorKind = *s.LastErrorKind
	} else {
		t.lastErrorKind = xclassify.KindUnknown
	}
}
