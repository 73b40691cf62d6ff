package xbatch

import (
	"log/slog"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xexec"
)

// ItemResult 是单个工作项的执行结果。
type ItemResult[I, T any] struct {
	// Item 是原始工作项。
	Item I
	// Outcome 是该项执行链的结果与元数据。未开始执行的项
	//（派发前 ctx 已取消）为零值，读作失败。
	Outcome xexec.Outcome[T]
	// Err 是该项的最终错误，成功时为 nil。
	Err error
}

// Failed 报告该项是否以失败收场。
func (ir ItemResult[I, T]) Failed() bool {
	return ir.Err != nil
}

// Result 是一个批次的全部结果。
type Result[I, T any] struct {
	// BatchID 是批次标识，同值经 xctx 注入每条执行链的上下文。
	BatchID string
	// Items 与输入等长、顺序一致，每个工作项恰好一个结果。
	Items []ItemResult[I, T]
	// Elapsed 是整个批次的耗时。
	Elapsed time.Duration
}

// Summary 汇总批次内各结果类别的条数。
func (r Result[I, T]) Summary() Summary {
	s := Summary{Total: len(r.Items)}
	for i := range r.Items {
		switch r.Items[i].Outcome.Category {
		case xexec.CategorySuccess:
			s.Success++
		case xexec.CategoryNotFound:
			s.NotFound++
		default:
			// 含未开始执行的项：零值 Outcome 读作失败
			s.Error++
		}
	}
	return s
}

// Summary 是批次结果的按类别计数。
type Summary struct {
	Total    int
	Success  int
	NotFound int
	Error    int
}

// LogValue 实现 slog.LogValuer。
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("success", s.Success),
		slog.Int("not_found", s.NotFound),
		slog.Int("error", s.Error),
	)
}
