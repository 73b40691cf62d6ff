package xstrategy

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
)

// Candidate 是一个可被选择的资源在选择时刻的健康视图。
// 候选集由资源池管理器构建，只包含当前可用（非熔断打开，
// 或熔断已冷却待探测）的资源。
type Candidate struct {
	// ID 是资源标识。
	ID string
	// Requests 是该资源累计被选中次数。
	Requests uint64
	// ErrorRate 是计入熔断的错误率。
	ErrorRate float64
	// Probing 表示该候选处于熔断冷却完成后的探测状态。
	Probing bool
}

// Selector 从候选集中选出下一个资源。
//
// avoid 是上一次失败尝试所用的资源 ID（无则为空串）：
// 存在其他候选时应规避它，只剩它一个时忽略提示。
// 候选集为空时返回 ("", false)。
type Selector interface {
	Pick(candidates []Candidate, avoid string) (string, bool)
}

// Params 提供构建 Selector 所需的策略参数，目前仅 Adaptive 使用。
type Params struct {
	// RateThreshold 是 Adaptive 的错误率排除阈值，(0, 1]。
	RateThreshold float64
	// MinSampleSize 是错误率生效所需的最小请求样本数。
	MinSampleSize uint64
}

// New 按策略枚举构建 Selector。
func New(s Strategy, p Params) (Selector, error) {
	switch s {
	case RoundRobin:
		return NewRoundRobin(), nil
	case LeastUsed:
		return NewLeastUsed(), nil
	case Random:
		return NewRandom(), nil
	case Adaptive:
		return NewAdaptive(p.RateThreshold, p.MinSampleSize), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
}

// dropAvoid 在存在替代候选时过滤掉 avoid 指向的资源。
func dropAvoid(candidates []Candidate, avoid string) []Candidate {
	if avoid == "" {
		return candidates
	}
	hasOther := false
	for _, c := range candidates {
		if c.ID != avoid {
			hasOther = true
			break
		}
	}
	if !hasOther {
		return candidates
	}
	out := make([]Candidate, 0, len(candidates)-1)
	for _, c := range candidates {
		if c.ID != avoid {
			out = append(out, c)
		}
	}
	return out
}

// ===== RoundRobin =====

type roundRobinSelector struct {
	cursor atomic.Uint64
}

// NewRoundRobin 创建轮转选择器。游标跨调用单调推进，
// 候选集稳定时各资源被选次数相差不超过 1。
func NewRoundRobin() Selector {
	return &roundRobinSelector{}
}

func (s *roundRobinSelector) Pick(candidates []Candidate, avoid string) (string, bool) {
	candidates = dropAvoid(candidates, avoid)
	if len(candidates) == 0 {
		return "", false
	}
	idx := (s.cursor.Add(1) - 1) % uint64(len(candidates))
	return candidates[idx].ID, true
}

// ===== LeastUsed =====

type leastUsedSelector struct{}

// NewLeastUsed 创建最少使用选择器。requests 并列时按 ID 字典序取小，
// 同一候选集下结果确定。
func NewLeastUsed() Selector {
	return leastUsedSelector{}
}

func (leastUsedSelector) Pick(candidates []Candidate, avoid string) (string, bool) {
	return pickLeastUsed(dropAvoid(candidates, avoid))
}

func pickLeastUsed(candidates []Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Requests < best.Requests ||
			(c.Requests == best.Requests && c.ID < best.ID) {
			best = c
		}
	}
	return best.ID, true
}

// ===== Random =====

type randomSelector struct{}

// NewRandom 创建均匀随机选择器，主要用于混沌与边界测试。
func NewRandom() Selector {
	return randomSelector{}
}

func (randomSelector) Pick(candidates []Candidate, avoid string) (string, bool) {
	candidates = dropAvoid(candidates, avoid)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.IntN(len(candidates))].ID, true
}

// ===== Adaptive =====

type adaptiveSelector struct {
	rateThreshold float64
	minSample     uint64
}

// NewAdaptive 创建自适应选择器。
//
// 在 LeastUsed 基础上排除样本数达到 minSample 且错误率达到
// rateThreshold 的候选。排除后按梯次回退：
//
//  1. 健康且低错误率的候选中取最少使用
//  2. 全部被排除时，在冷却完成的探测候选中取最少使用
//  3. 仍无可选时，忽略错误率排除取最少使用
//
// 设计决策: 最后一档回退保证"池级无健康资源"只由熔断状态决定
// （全部打开且未冷却），错误率排除永远不会把可用的池判成不可用。
func NewAdaptive(rateThreshold float64, minSample uint64) Selector {
	return &adaptiveSelector{
		rateThreshold: rateThreshold,
		minSample:     minSample,
	}
}

func (s *adaptiveSelector) Pick(candidates []Candidate, avoid string) (string, bool) {
	candidates = dropAvoid(candidates, avoid)
	if len(candidates) == 0 {
		return "", false
	}

	healthy := make([]Candidate, 0, len(candidates))
	probing := make([]Candidate, 0, 2)
	for _, c := range candidates {
		// 探测候选不参与错误率排除：它刚熔断过，历史错误率必然难看，
		// 按错误率过滤会让探测永远轮不到
		if c.Probing {
			probing = append(probing, c)
			continue
		}
		if s.excluded(c) {
			continue
		}
		healthy = append(healthy, c)
	}

	if id, ok := pickLeastUsed(healthy); ok {
		return id, true
	}
	if id, ok := pickLeastUsed(probing); ok {
		return id, true
	}
	return pickLeastUsed(candidates)
}

func (s *adaptiveSelector) excluded(c Candidate) bool {
	return c.Requests >= s.minSample && c.ErrorRate >= s.rateThreshold
}
