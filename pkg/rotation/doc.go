// Package rotation 提供资源轮换引擎的核心子包。
//
// 子包列表：
//   - xclassify: 错误分类与传播策略表
//   - xhealth: 资源健康统计
//   - xstrategy: 资源选择策略
//   - xrotate: 资源池、租约与熔断管理
//   - xexec: 轮换与重试合成的执行链
//   - xbatch: 批量并发执行
//   - xengine: 顶层装配门面
//
// 依赖方向自上而下单向流动：xengine 装配其余子包，
// xclassify/xhealth/xstrategy 位于最底层，不依赖任何兄弟包。
package rotation
