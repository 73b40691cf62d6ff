// Package xclassify 提供失败操作的封闭错误分类与静态传播策略表。
//
// # 设计理念
//
// 引擎的重试、资源轮换与熔断决策全部由错误分类驱动。分类集合封闭
// （Kind 枚举），每个分类的传播策略（是否重试、是否换资源、是否计入熔断）
// 在包内静态查表，调用方不做字符串匹配，也不做异常类型分支。
//
// # 分类途径
//
//   - 操作实现直接返回 NewRateLimited 等构造的 *Error（推荐）
//   - 通过 Classifier 对未分类错误做事后推断（默认实现识别超时与连接类错误）
//   - HTTP 客户端可用 FromHTTPStatus 按状态码归类
//
// # 策略表
//
//   - RATE_LIMITED / DETECTED_BLOCKED / TIMEOUT / CONNECTION / UNKNOWN：
//     可重试，重试前规避当前资源，计入熔断
//   - INVALID_CREDENTIAL：不可重试，计入熔断（失效凭证应尽快隔离）
//   - PARSE / NOT_FOUND：不可重试，不计入熔断（非资源自身故障）
package xclassify
