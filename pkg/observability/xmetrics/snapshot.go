package xmetrics

import (
	"log/slog"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
)

// ResourceSnapshot 是单个资源的聚合视图。
type ResourceSnapshot struct {
	// Requests 是该资源的累计请求数。
	Requests uint64 `json:"requests"`
	// Errors 是该资源的累计错误数。
	Errors uint64 `json:"errors"`
	// ErrorRate 是错误率 Errors/Requests，无请求时为 0。
	ErrorRate float64 `json:"error_rate"`
	// LastErrorKind 是最近一次失败的分类，从未失败过则为 nil。
	LastErrorKind *xclassify.Kind `json:"last_error_kind,omitempty"`
}

// Totals 是全局聚合计数。
type Totals struct {
	// Success 是成功的执行链条数。
	Success uint64 `json:"success"`
	// Failure 是失败的执行链条数（不含目标不存在）。
	Failure uint64 `json:"failure"`
	// NotFound 是目标不存在的执行链条数。
	NotFound uint64 `json:"not_found"`
	// Dropped 是因缓冲满被丢弃的记录条数。
	Dropped uint64 `json:"dropped"`
	// ByErrorKind 按错误分类统计失败条数。
	ByErrorKind map[xclassify.Kind]uint64 `json:"by_error_kind"`
}

// LogValue 实现 slog.LogValuer。
func (t Totals) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("success", t.Success),
		slog.Uint64("failure", t.Failure),
		slog.Uint64("not_found", t.NotFound),
		slog.Uint64("dropped", t.Dropped),
	)
}

// ErrorSample 是一条失败执行链的样本。
type ErrorSample struct {
	// RequestID 是执行链标识。
	RequestID string `json:"request_id"`
	// ResourceID 是最后一次尝试所用的资源。
	ResourceID string `json:"resource_id"`
	// Kind 是失败的错误分类。
	Kind xclassify.Kind `json:"kind"`
	// At 是样本记录时间。
	At time.Time `json:"at"`
}

// Snapshot 是 Sink 聚合状态的一致性快照。
type Snapshot struct {
	// TakenAt 是快照导出时间。
	TakenAt time.Time `json:"taken_at"`
	// PerResource 按资源 ID 索引逐资源视图。
	PerResource map[string]ResourceSnapshot `json:"per_resource"`
	// Totals 是全局聚合计数。
	Totals Totals `json:"totals"`
	// RecentErrors 是最近失败样本，从旧到新排列。
	RecentErrors []ErrorSample `json:"recent_errors,omitempty"`
}
