// Package context 提供上下文管理相关的子包。
//
// 子包列表：
//   - xctx: Context 增强，注入/提取请求 ID、批次 ID 与资源 ID
//
// 设计原则：
//   - 所有上下文信息通过 context.Context 传递，不使用全局变量
//   - 同一组键贯穿执行链与日志，保证一条请求可端到端追踪
package context
