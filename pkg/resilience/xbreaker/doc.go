// Package xbreaker 提供两阶段熔断保护，隔离持续故障的资源。
//
// # 设计理念
//
// xbreaker 通过类型别名完全暴露 [sony/gobreaker/v2] 原生能力，
// 并以 Guard 封装两阶段（Allow/done）使用模式：调用方先取得执行许可，
// 操作结束后上报结果。许可与上报分离，适合"选资源 → 执行 → 归还"
// 这类获取与释放不在同一调用栈的场景。
//
// # 熔断器状态
//
//   - StateClosed（关闭）：正常状态，请求正常通过
//   - StateOpen（打开）：熔断状态，Allow 直接拒绝
//   - StateHalfOpen（半开）：冷却结束后的探测状态，放行有限请求
//
// 状态转换是惰性的：Open→HalfOpen 在冷却期满后的下一次
// State()/Allow() 评估时发生，无后台定时器。
//
// # 熔断策略
//
// 内置策略（TripPolicy）：
//   - ConsecutiveFailuresPolicy：连续失败 N 次后熔断
//   - FailureRatioPolicy：样本量达标且失败率超阈值后熔断
//   - CompositePolicy：组合多个策略，任一满足即熔断
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
