// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstate: 资源池状态快照持久化，支持 Redis 和内存存储
//
// 设计原则：
//   - 提供统一的接口抽象，支持多种存储后端
//   - 快照内容永不包含凭证明文
//   - 并发安全，读侧合并重复请求
package storage
