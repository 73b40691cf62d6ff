package xid

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sony/sonyflake/v2"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrInvalidConfig 配置参数无效。
	// sonyflake.New 初始化失败（如机器 ID 获取失败）时包裹为此错误。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrInvalidID ID 值无效（零或负数）。
	// Parse 解析出非正值或格式错误时返回此错误。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrOverTimeLimit 时间分量溢出，生成器无法继续生成 ID。
	// 这是不可恢复的错误。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrNilGenerator 生成器实例为 nil 或未通过 NewGenerator 创建。
	// 当直接使用零值 Generator 或 nil *Generator 调用方法时返回此错误。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")

	// ErrNoPrivateAddress 无法找到私有 IP 地址。
	// 当所有机器 ID 获取策略（环境变量、主机名）均失败，
	// 且系统没有私有 IPv4 地址时，DefaultMachineID 返回此错误。
	ErrNoPrivateAddress = errors.New("xid: no private IP address found")
)

// =============================================================================
// 配置
// =============================================================================

// options 内部配置结构
type options struct {
	machineID func() (uint16, error)
}

// Option 配置选项函数
type Option func(*options)

// WithMachineID 设置自定义机器 ID 生成函数。
//
// 默认使用 [DefaultMachineID] 的多层回退策略（环境变量 → 主机名哈希 →
// 私有 IP 低 16 位）。需要与外部服务协调机器 ID 分配（如 etcd 注册）
// 或固定指定时可自定义：
//
//	xid.WithMachineID(func() (uint16, error) { return 42, nil })
//
// 函数返回的 ID 必须在 0-65535 范围内。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(c *options) {
		c.machineID = fn
	}
}

// =============================================================================
// Generator
// =============================================================================

// Generator 可排序批次 ID 生成器。
//
// 通过 NewGenerator 创建，所有方法并发安全。
type Generator struct {
	// 设计决策: sf 字段运行时通过 generateID 间接使用。保留此引用
	// 明确 Generator 对 sonyflake 实例的所有权，便于调试和未来扩展。
	sf *sonyflake.Sonyflake
	// generateID 生成下一个 ID。默认为 sf.NextID，测试中可替换。
	generateID func() (int64, error)
}

// NewGenerator 创建新的 ID 生成器实例。
//
// 如果不传入 WithMachineID 选项，默认使用 DefaultMachineID 获取机器 ID。
//
// 设计决策: 返回 *Generator 而非接口。xid 是底层工具包，
// 需要解耦的调用方可以自行用函数类型包装 NewString。
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := &options{}
	// nil Option 静默跳过，便于条件式构建 Option 列表
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	machineIDFn := cfg.machineID
	if machineIDFn == nil {
		machineIDFn = DefaultMachineID
	}
	settings := sonyflake.Settings{
		MachineID: func() (int, error) {
			id, err := machineIDFn()
			return int(id), err
		},
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	g := &Generator{sf: sf}
	g.generateID = sf.NextID
	return g, nil
}

// validate 校验生成器实例是否可用。
// 防止零值 Generator 或 nil *Generator 导致 nil pointer panic。
func (g *Generator) validate() error {
	if g == nil || g.generateID == nil {
		return ErrNilGenerator
	}
	return nil
}

// New 生成新的唯一 ID（int64 格式）。
//
// 时间分量溢出时返回 [ErrOverTimeLimit]（不可恢复）。
// Sonyflake v2 在内部等待处理时钟回拨，无需调用方重试。
func (g *Generator) New() (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	id, err := g.generateID()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return id, nil
}

// NewString 生成新的唯一 ID（字符串格式）。
//
// 使用 base36 编码，结果为 12-13 个字符。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

// =============================================================================
// ID 解析
// =============================================================================

// Parse 从字符串解析 ID。
//
// 字符串必须是 base36 编码的格式（由 NewString 生成）。
// 所有无效输入（语法错误、溢出、非正值）均返回 [ErrInvalidID]。
//
// 设计决策: Parse 采用宽松解析（大小写不敏感，允许前导 "+"），
// 与 strconv.ParseInt 行为一致。NewString 的输出（小写、无前缀）是规范形式，
// 但 Parse 不强制规范性校验，以便兼容外部系统可能引入的大小写变换。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return id, nil
}
