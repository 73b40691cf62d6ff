package xbreaker

// ConsecutiveFailuresPolicy 连续失败熔断策略。
//
// 当连续失败次数达到阈值时触发熔断，是资源隔离最常用的策略。
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败熔断策略。
//
// threshold: 触发熔断的连续失败次数。
//
// 示例:
//
//	policy := xbreaker.NewConsecutiveFailures(5)
//	// 连续失败 5 次后触发熔断
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{
		threshold: threshold,
	}
}

// ReadyToTrip 判断是否应该触发熔断。
func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值。
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 {
	return p.threshold
}

// FailureRatioPolicy 失败率熔断策略。
//
// 当失败率达到阈值时触发熔断。
// 只有请求数达到最小样本量时才计算失败率，避免小样本误判。
type FailureRatioPolicy struct {
	ratio       float64 // 失败率阈值 (0.0 - 1.0)
	minRequests uint32  // 最小样本量
}

// NewFailureRatio 创建失败率熔断策略。
//
// ratio: 失败率阈值 (0.0 - 1.0)，例如 0.95 表示 95% 失败率。
// minRequests: 最小样本量，请求数不足时不触发熔断。
//
// 示例:
//
//	policy := xbreaker.NewFailureRatio(0.95, 10)
//	// 样本量 >= 10 且失败率 >= 95% 时触发熔断
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &FailureRatioPolicy{
		ratio:       ratio,
		minRequests: minRequests,
	}
}

// ReadyToTrip 判断是否应该触发熔断。
func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	// 样本不足或为零时不触发（也避免除零）
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return failureRatio >= p.ratio
}

// Ratio 返回失败率阈值。
func (p *FailureRatioPolicy) Ratio() float64 {
	return p.ratio
}

// MinRequests 返回最小样本量。
func (p *FailureRatioPolicy) MinRequests() uint32 {
	return p.minRequests
}

// CompositePolicy 组合熔断策略。
//
// 组合多个策略，任一策略满足即触发熔断。
// 典型用法是"连续失败 OR 高失败率"双条件保护。
type CompositePolicy struct {
	policies []TripPolicy
}

// NewCompositePolicy 创建组合熔断策略。
//
// 传入的 nil 策略会被自动过滤。
//
// 示例:
//
//	policy := xbreaker.NewCompositePolicy(
//	    xbreaker.NewConsecutiveFailures(5),
//	    xbreaker.NewFailureRatio(0.95, 10),
//	)
//	// 连续失败 5 次 OR 失败率达到 95% 时触发熔断
func NewCompositePolicy(policies ...TripPolicy) *CompositePolicy {
	filtered := make([]TripPolicy, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &CompositePolicy{
		policies: filtered,
	}
}

// ReadyToTrip 任一子策略返回 true 即触发熔断。
func (p *CompositePolicy) ReadyToTrip(counts Counts) bool {
	for _, policy := range p.policies {
		if policy.ReadyToTrip(counts) {
			return true
		}
	}
	return false
}

// Policies 返回所有子策略的副本，防止外部修改内部状态。
func (p *CompositePolicy) Policies() []TripPolicy {
	if len(p.policies) == 0 {
		return nil
	}
	result := make([]TripPolicy, len(p.policies))
	copy(result, p.policies)
	return result
}

// NeverTripPolicy 永不熔断策略，用于测试或特殊场景。
type NeverTripPolicy struct{}

// NewNeverTrip 创建永不熔断策略。
func NewNeverTrip() *NeverTripPolicy {
	return &NeverTripPolicy{}
}

// ReadyToTrip 永远返回 false。
func (p *NeverTripPolicy) ReadyToTrip(_ Counts) bool {
	return false
}

// AlwaysTripPolicy 总是熔断策略，用于测试场景，任何失败都触发熔断。
type AlwaysTripPolicy struct{}

// NewAlwaysTrip 创建总是熔断策略。
func NewAlwaysTrip() *AlwaysTripPolicy {
	return &AlwaysTripPolicy{}
}

// ReadyToTrip 只要有失败就返回 true。
func (p *AlwaysTripPolicy) ReadyToTrip(counts Counts) bool {
	return counts.TotalFailures > 0
}
