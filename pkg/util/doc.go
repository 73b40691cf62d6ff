// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 批次 ID 生成器，基于 sonyflake 的分布式唯一 ID
//   - xjson: JSON 序列化工具，Pretty 格式化输出
//
// 设计原则：
//   - 与领域逻辑解耦，可被任意层引用
//   - 跨平台兼容
package util
