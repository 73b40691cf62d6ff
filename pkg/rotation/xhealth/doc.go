// Package xhealth 维护资源池中每个资源的滚动健康统计。
//
// # 设计理念
//
// 每个资源一个 Tracker，记录请求数、错误数、连续错误数、最近错误分类
// 与最近使用时间；Board 按资源 ID 聚合全部 Tracker 并提供一致性快照。
// 统计是轮换策略（least_used、adaptive）与熔断判定的共同数据源。
//
// # 计数语义
//
//   - Touch 在资源被选中时乐观递增 requests 并刷新 last_used_at，
//     并发调用方因此不会挤向同一个"最少使用"资源
//   - RecordFailure 只对计入熔断的分类递增 errors/consecutive_errors；
//     PARSE、NOT_FOUND 之类的非资源故障仅记录 last_error_kind 并打断连败
//   - RecordSuccess 清零 consecutive_errors
//
// 不变量：errors <= requests 在任意并发交错下成立（每次 Touch 至多
// 对应一次 Record*）。
package xhealth
