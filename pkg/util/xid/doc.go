// Package xid 提供可排序的批次 ID 生成能力，基于 Sonyflake 算法实现。
//
// # 设计理念
//
// xid 是对 sony/sonyflake 的薄封装，用于生成批次标识：
//   - 生成的 ID 具有时序性，日志与存储键天然按时间聚簇
//   - 比 UUID 更短（base36 编码 12-13 字符 vs 36 字符）且可排序
//   - 不依赖任何外部服务，离线环境正常工作
//
// 请求级关联 ID 对吞吐无上限要求，仍使用 UUID；批次 ID 需要按时间排序
// 定位问题批次，才使用 Sonyflake。
//
// # ID 结构
//
// Sonyflake ID 由以下部分组成（默认配置）：
//
//	39 bits - 时间戳（10ms 为单位，可用约 174 年）
//	 8 bits - 序列号（同一时间单位内最多 256 个 ID）
//	16 bits - 机器 ID（最多 65536 台机器）
//
// # 快速开始
//
//	gen, err := xid.NewGenerator()
//	if err != nil {
//	    return err
//	}
//	id, err := gen.NewString() // 例如: "1a2b3c4d5e6f7"
//
// # 机器 ID 获取策略
//
// 默认按以下优先级确定机器 ID：
//
//  1. ROTAKIT_MACHINE_ID 环境变量（直接指定数字 0-65535）
//  2. os.Hostname() 的 FNV-1a 哈希折叠
//  3. 私有 IP 地址的低 16 位（sonyflake 默认方式）
//
// 哈希策略（策略 2）存在生日悖论碰撞风险：50 节点约 1.9%，200 节点约 26%。
// 多节点部署需要严格唯一时，请通过 ROTAKIT_MACHINE_ID 显式分配，
// 或使用 WithMachineID 自定义获取逻辑。
//
// # 时钟回拨处理
//
// Sonyflake v2 在内部处理短暂的时钟回拨（等待时钟追上），
// NextID 仅在时间分量溢出时返回错误，对应本包的 [ErrOverTimeLimit]。
//
// # 线程安全
//
// Generator 的所有方法都是并发安全的，可以被多个 goroutine 共享。
//
// 设计决策: 不提供包级全局生成器。批次 ID 只在少数入口生成，
// 调用方显式创建 Generator 并注入，测试隔离也更简单。
package xid
