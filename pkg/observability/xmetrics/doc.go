// Package xmetrics 聚合执行链结果，供外部观测系统消费。
//
// # 设计理念
//
// Sink 是引擎与观测世界之间的缓冲层：worker 调用 Record 上报一条
// 执行链的元数据后立即返回，聚合工作由单独的收集 goroutine 完成。
// 缓冲满时记录被丢弃并计数——观测永远不能拖慢关键路径，这是硬约束
// 而不是优化。
//
// 聚合结果通过 Snapshot 一次性导出：
//
//   - Totals：按结果类别与错误分类的全局计数（定长聚合，内存有界）
//   - PerResource：逐资源的请求数、错误数与错误率
//   - RecentErrors：最近失败样本，带 TTL 的有界 LRU，旧样本自动老化
//
// # 外部导出
//
// 可选的 OTelBridge 把每条记录转成 OpenTelemetry 计数器与直方图；
// 可选的 Reporter 按 cron 计划定期输出摘要日志并触发导出回调。
// 两者都不是 Sink 的必需品：不配置时 Sink 只做进程内聚合。
package xmetrics
