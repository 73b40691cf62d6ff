package xrotate

import (
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/rotakit/pkg/resilience/xbreaker"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
)

// CircuitState 是资源熔断状态的导出表示。
type CircuitState uint8

const (
	// CircuitClosed 正常状态。
	CircuitClosed CircuitState = iota
	// CircuitOpen 熔断状态，冷却期内不参与选择。
	CircuitOpen
	// CircuitHalfOpen 冷却完成后的探测状态。
	CircuitHalfOpen

	circuitStateCount // 哨兵值
)

var circuitStateNames = [circuitStateCount]string{
	CircuitClosed:   "CLOSED",
	CircuitOpen:     "OPEN",
	CircuitHalfOpen: "HALF_OPEN",
}

// String 返回状态的规范名称。
func (s CircuitState) String() string {
	if s >= circuitStateCount {
		return fmt.Sprintf("CIRCUIT(%d)", uint8(s))
	}
	return circuitStateNames[s]
}

// MarshalText 实现 encoding.TextMarshaler。
func (s CircuitState) MarshalText() ([]byte, error) {
	if s >= circuitStateCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCircuitState, uint8(s))
	}
	return []byte(circuitStateNames[s]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (s *CircuitState) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for i, n := range circuitStateNames {
		if n == name {
			*s = CircuitState(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCircuitState, string(text))
}

// fromBreakerState 把 gobreaker 状态映射为导出表示。
func fromBreakerState(s xbreaker.State) CircuitState {
	switch s {
	case xbreaker.StateOpen:
		return CircuitOpen
	case xbreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}

// StateVersion 是池状态快照的格式版本。
const StateVersion = 1

// ResourceState 是单个资源的可序列化状态：健康统计加熔断状态。
type ResourceState struct {
	xhealth.Stats
	// Circuit 是导出时刻的熔断状态。
	Circuit CircuitState `json:"circuit_state"`
	// OpenedAt 是进入 OPEN 的时间，非 OPEN 状态下为 nil。
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

// PoolState 是整个资源池的可序列化状态快照。
// 由调用方决定是否及如何持久化；引擎自身不做任何隐式持久化。
type PoolState struct {
	// Version 是快照格式版本，不匹配的快照拒绝恢复。
	Version int `json:"version"`
	// TakenAt 是快照导出时间。
	TakenAt time.Time `json:"taken_at"`
	// Resources 按资源 ID 索引各资源状态。
	Resources map[string]ResourceState `json:"resources"`
}
