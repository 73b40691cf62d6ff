package xstrategy

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy 标识一种资源选择策略。
//
// 设计决策: 用封闭枚举而不是字符串分支表达策略集合，
// 非法名称在配置解析阶段即失败，运行期不存在未知策略。
type Strategy uint8

const (
	// RoundRobin 按游标轮转选择。
	RoundRobin Strategy = iota
	// LeastUsed 选择累计请求数最小的资源。
	LeastUsed
	// Random 均匀随机选择。
	Random
	// Adaptive 在 LeastUsed 基础上规避高错误率资源。
	Adaptive

	strategyCount // 哨兵值
)

// ErrUnknownStrategy 表示策略名称不在封闭集合内。
var ErrUnknownStrategy = errors.New("xstrategy: unknown strategy")

var strategyNames = [strategyCount]string{
	RoundRobin: "round_robin",
	LeastUsed:  "least_used",
	Random:     "random",
	Adaptive:   "adaptive",
}

// String 返回策略的规范名称。
func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("STRATEGY(%d)", uint8(s))
	}
	return strategyNames[s]
}

// Valid 报告 s 是否属于封闭策略集合。
func (s Strategy) Valid() bool {
	return s < strategyCount
}

// Parse 按名称解析策略，大小写不敏感。
// 未知名称返回 ErrUnknownStrategy 包装错误。
func Parse(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, sn := range strategyNames {
		if sn == n {
			return Strategy(i), nil
		}
	}
	return RoundRobin, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// MarshalText 实现 encoding.TextMarshaler。
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
	return []byte(strategyNames[s]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Strategies 返回全部策略，顺序固定。
func Strategies() []Strategy {
	out := make([]Strategy, 0, strategyCount)
	for i := Strategy(0); i < strategyCount; i++ {
		out = append(out, i)
	}
	return out
}
