// Package xstate 提供资源池状态快照的可选持久化。
//
// # 设计理念
//
// 引擎自身从不隐式持久化任何状态：健康统计与熔断状态默认只活在
// 单个进程的生命周期内。需要跨进程保留配额惩罚进度时，调用方显式
// 地把 xrotate.PoolState 写入本包的 Store，并在下次启动时恢复——
// 持久化是调用方的明确选择，不是引擎的默认行为。
//
// # 后端
//
//   - RedisStore：JSON 值写入 Redis，支持 TTL 与可选的 redsync 写锁
//     （多副本部署时避免交错覆盖快照）
//   - MemoryStore：ristretto 有界缓存，用于单进程场景与测试
//
// # 读侧去重
//
// Loader 用 singleflight 合并同一 key 的并发 Load：一批 worker
// 同时启动恢复状态时只有一次真正的后端读取。
package xstate
