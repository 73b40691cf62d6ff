// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xmetrics: 执行指标汇聚，快照聚合、OpenTelemetry 桥接、定时汇总
//
// 设计原则：
//   - 指标上报永不阻塞业务执行路径
//   - 遵循 OpenTelemetry 语义规范
//   - 日志输出一律脱敏
package observability
