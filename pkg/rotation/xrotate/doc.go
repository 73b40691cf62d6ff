// Package xrotate 管理可轮换的资源池：凭证选择、健康隔离与熔断恢复。
//
// # 设计理念
//
// Manager 持有一组不可变的 Resource（凭证/出口路径单元），对外只暴露
// Acquire/Release 两个动作。选择哪个资源由注入的 xstrategy.Selector 决定，
// 资源是否可用由每资源一个的 xbreaker.Guard 决定，健康统计由
// xhealth.Board 维护。三者在 Acquire 内汇合：
//
//	候选集（非熔断 + 冷却完成待探测） → 策略选择 → 熔断许可 → 租约
//
// 熔断打开且未冷却的资源不参与候选；全部资源都处于该状态时
// Acquire 返回 ErrNoHealthyResource，调用方不应立即对同一工作项重试。
//
// # 租约
//
// Acquire 成功返回 *Lease，绑定所选资源与本次执行的熔断许可。
// 每个租约必须恰好 Release 一次，重复释放是无害的空操作。
// Release 根据错误分类更新健康统计并向熔断器上报结果：
// 不计入熔断的分类（PARSE、NOT_FOUND）按成功上报。
//
// # 节流
//
// 可选的单资源最小使用间隔（令牌桶），在取得熔断许可前等待，
// 等待期间取消不消耗任何名额。
//
// # 状态外置
//
// ExportState/RestoreState 提供健康与熔断状态的显式快照，
// 配合外部存储实现跨进程保留。默认不持久化任何状态。
package xrotate
