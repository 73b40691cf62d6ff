// Package xctx 提供引擎内跨层传递的关联标识：request_id、batch_id 与资源 ID。
//
// # 设计理念
//
// 三个标识覆盖引擎的三层执行粒度：
//   - request_id：一次顶层操作（含全部重试尝试）
//   - batch_id：一次批量运行（其下派生多个 request）
//   - resource：当前尝试所用的资源
//
// 标识由各层的执行器生成并注入 context，日志层通过 Attrs/AppendAttrs
// 把存在的标识统一附到每条记录上，实现跨组件的日志关联。
//
// # 使用示例
//
//	ctx = xctx.WithRequestID(ctx, reqID)
//	logger.LogAttrs(ctx, slog.LevelInfo, "operation finished", xctx.Attrs(ctx)...)
//
// 所有函数对 nil context 安全：注入时归一化为 context.Background()，
// 提取时返回空字符串。
package xctx
