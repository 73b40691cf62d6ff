package xclassify

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 表示一次失败操作的错误分类。
//
// 分类集合是封闭的：所有下游策略（重试、轮换、熔断）都由本包的
// 策略表驱动，新增分类必须同步扩展策略表与名称表。
// 零值为 KindUnknown。
type Kind uint8

const (
	// KindUnknown 表示无法识别的错误。保守地按可重试处理，调用方应记录完整日志。
	KindUnknown Kind = iota
	// KindRateLimited 表示远端限流（典型如 HTTP 429）。
	KindRateLimited
	// KindDetectedBlocked 表示被远端风控识别并拦截（典型如 HTTP 403）。
	KindDetectedBlocked
	// KindTimeout 表示请求超时。
	KindTimeout
	// KindConnection 表示网络连接失败。
	KindConnection
	// KindInvalidCredential 表示凭证无效，重试无意义。
	KindInvalidCredential
	// KindParse 表示响应解析失败，属于数据质量问题而非资源故障。
	KindParse
	// KindNotFound 表示目标不存在，是工作项自身的属性而非故障。
	KindNotFound

	// kindCount 是哨兵值，仅用于表长与越界校验。
	kindCount
)

// ErrUnknownKind 表示分类名称不在封闭集合内。
var ErrUnknownKind = errors.New("xclassify: unknown error kind")

var kindNames = [kindCount]string{
	KindUnknown:           "UNKNOWN",
	KindRateLimited:       "RATE_LIMITED",
	KindDetectedBlocked:   "DETECTED_BLOCKED",
	KindTimeout:           "TIMEOUT",
	KindConnection:        "CONNECTION",
	KindInvalidCredential: "INVALID_CREDENTIAL",
	KindParse:             "PARSE",
	KindNotFound:          "NOT_FOUND",
}

// String 返回分类的规范名称。
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
	return kindNames[k]
}

// Valid 报告 k 是否属于封闭分类集合。
func (k Kind) Valid() bool {
	return k < kindCount
}

// ParseKind 按名称解析分类，大小写不敏感。
// 未知名称返回 ErrUnknownKind 包装错误。
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText 实现 encoding.TextMarshaler，序列化为规范名称。
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Kinds 返回全部分类，顺序固定。
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for i := Kind(0); i < kindCount; i++ {
		out = append(out, i)
	}
	return out
}

// ===== 传播策略 =====

// Policy 描述一个错误分类的传播策略。
//
// 设计决策: 策略以静态查表方式给出，而不是在各调用方用字符串匹配
// 或错误类型分支实现，保证重试、轮换与熔断对同一分类的判断永远一致。
type Policy struct {
	// Retryable 表示同一工作项是否值得再次尝试。
	Retryable bool
	// Rotate 表示重试前是否应规避本次使用的资源。
	Rotate bool
	// CountsTowardCircuit 表示该错误是否计入资源健康统计与熔断判定。
	CountsTowardCircuit bool
}

var policies = [kindCount]Policy{
	KindUnknown:           {Retryable: true, Rotate: true, CountsTowardCircuit: true},
	KindRateLimited:       {Retryable: true, Rotate: true, CountsTowardCircuit: true},
	KindDetectedBlocked:   {Retryable: true, Rotate: true, CountsTowardCircuit: true},
	KindTimeout:           {Retryable: true, Rotate: true, CountsTowardCircuit: true},
	KindConnection:        {Retryable: true, Rotate: true, CountsTowardCircuit: true},
	KindInvalidCredential: {CountsTowardCircuit: true},
	KindParse:             {},
	KindNotFound:          {},
}

// PolicyOf 返回分类对应的传播策略，越界分类按 KindUnknown 处理。
func PolicyOf(k Kind) Policy {
	if !k.Valid() {
		k = KindUnknown
	}
	return policies[k]
}

// Policy 返回分类对应的传播策略。
func (k Kind) Policy() Policy { return PolicyOf(k) }

// Retryable 报告该分类是否可重试。
func (k Kind) Retryable() bool { return PolicyOf(k).Retryable }

// ShouldRotate 报告重试前是否应规避当前资源。
func (k Kind) ShouldRotate() bool { return PolicyOf(k).Rotate }

// CountsTowardCircuit 报告该分类是否计入熔断判定。
func (k Kind) CountsTowardCircuit() bool { return PolicyOf(k).CountsTowardCircuit }
