package xctx

import (
	"context"
	"log/slog"
)

// AppendAttrs 将 context 中存在的关联标识追加到现有切片。
// 零分配热路径：传入预分配的切片，只追加非空字段。
func AppendAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}

	if v := BatchID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyBatchID, v))
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v := Resource(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyResource, v))
	}

	return attrs
}

// Attrs 从 context 提取关联标识，转换为 slog.Attr 切片。
// 只返回非空字段，全空时返回 nil。每次调用分配新切片，
// 热路径建议使用 AppendAttrs。
func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	attrs := AppendAttrs(make([]slog.Attr, 0, fieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
