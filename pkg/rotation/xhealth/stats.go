package xhealth

import (
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
)

// Stats 是单个资源健康统计的一致性快照。
// 字段与序列化名称保持稳定，可直接用于状态导出。
type Stats struct {
	// Requests 是累计被选中次数（在选中时乐观递增）。
	Requests uint64 `json:"requests"`
	// Errors 是累计计入熔断的错误次数，恒有 Errors <= Requests。
	Errors uint64 `json:"errors"`
	// ConsecutiveErrors 是当前连续计入熔断的错误次数，成功或非资源故障后清零。
	ConsecutiveErrors uint64 `json:"consecutive_errors"`
	// LastErrorKind 是最近一次失败的分类，从未失败过则为 nil。
	LastErrorKind *xclassify.Kind `json:"last_error_kind,omitempty"`
	// LastUsedAt 是最近一次被选中的时间，从未使用过则为零值。
	LastUsedAt time.Time `json:"last_used_at"`
}

// ErrorRate 返回错误率 Errors/Requests；无请求时为 0。
func (s Stats) ErrorRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Requests)
}

// Used 报告该资源是否被选中过。
func (s Stats) Used() bool {
	return !s.LastUsedAt.IsZero()
}
