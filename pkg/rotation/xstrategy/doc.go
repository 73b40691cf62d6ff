// Package xstrategy 提供资源轮换的选择策略。
//
// # 设计理念
//
// 策略集合封闭，以 Strategy 枚举表达而非字符串分支；配置层解析失败
// 立即报错，不做静默回退。Selector 只依赖候选资源的健康视图
// （Candidate），不触碰资源池本身，便于独立测试。
//
// # 内置策略
//
//   - RoundRobin：单调推进的游标取模，O(1)，分布均匀
//   - LeastUsed：选 requests 最小者，并列时按 ID 字典序，结果确定
//   - Random：均匀随机，用于混沌与边界测试
//   - Adaptive：在 LeastUsed 基础上排除错误率达到阈值的资源，
//     全部被排除时按梯次回退（冷却完成的探测候选 → 忽略排除）
//
// 候选集由调用方（资源池管理器）给出：处于熔断打开且未冷却的资源
// 不会出现在候选集中。
package xstrategy
