package xctx

import "context"

// 设计决策: contextKey 使用 string 而非 int+iota：包私有类型不会与其他包的
// context key 冲突（context 比较包含类型信息），字符串值在调试时可读性更高，
// 性能差异可忽略。
type contextKey string

const (
	keyRequestID = contextKey("xctx:request_id")
	keyBatchID   = contextKey("xctx:batch_id")
	keyResource  = contextKey("xctx:resource")
)

// 日志属性 Key 常量，下划线分隔。
const (
	KeyRequestID = "request_id"
	KeyBatchID   = "batch_id"
	KeyResource  = "resource"

	// fieldCount 关联标识数量，用于 slog 属性预分配
	fieldCount = 3
)

// WithRequestID 将 request ID 注入 context。
//
// 设计决策: nil ctx 归一化为 context.Background() 而非返回错误，
// 注入失败没有可行的调用方处理路径，归一化让热路径保持单返回值。
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID 从 context 提取 request ID，不存在返回空字符串。
func RequestID(ctx context.Context) string {
	return value(ctx, keyRequestID)
}

// WithBatchID 将 batch ID 注入 context。nil ctx 归一化为 context.Background()。
func WithBatchID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyBatchID, id)
}

// BatchID 从 context 提取 batch ID，不存在返回空字符串。
func BatchID(ctx context.Context) string {
	return value(ctx, keyBatchID)
}

// WithResource 将当前资源 ID 注入 context。nil ctx 归一化为 context.Background()。
func WithResource(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyResource, id)
}

// Resource 从 context 提取资源 ID，不存在返回空字符串。
func Resource(ctx context.Context) string {
	return value(ctx, keyResource)
}

func value(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
