package xhealth

import (
	"errors"
	"fmt"
)

// 包级错误定义。
var (
	// ErrNoResources 表示构建 Board 时资源 ID 列表为空。
	ErrNoResources = errors.New("xhealth: no resources")
	// ErrDuplicateResource 表示资源 ID 重复。
	ErrDuplicateResource = errors.New("xhealth: duplicate resource id")
	// ErrEmptyResourceID 表示资源 ID 为空字符串。
	ErrEmptyResourceID = errors.New("xhealth: empty resource id")
)

// Board 按资源 ID 聚合整个资源池的 Tracker。
// 资源集合在构建后不可变，运行期只有统计内容变化。
type Board struct {
	trackers map[string]*Tracker
	ids      []string // 保持构建顺序，迭代结果确定
}

// NewBoard 为给定资源 ID 集合创建 Board。
// ID 必须非空且互不重复。
func NewBoard(ids []string) (*Board, error) {
	if len(ids) == 0 {
		return nil, ErrNoResources
	}

	b := &Board{
		trackers: make(map[string]*Tracker, len(ids)),
		ids:      make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			return nil, ErrEmptyResourceID
		}
		if _, exists := b.trackers[id]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResource, id)
		}
		b.trackers[id] = NewTracker()
		b.ids = append(b.ids, id)
	}
	return b, nil
}

// Tracker 返回指定资源的 Tracker。
func (b *Board) Tracker(id string) (*Tracker, bool) {
	t, ok := b.trackers[id]
	return t, ok
}

// Stats 返回指定资源的统计快照。
func (b *Board) Stats(id string) (Stats, bool) {
	t, ok := b.trackers[id]
	if !ok {
		return Stats{}, false
	}
	return t.Stats(), true
}

// Snapshot 返回全部资源的统计快照。
func (b *Board) Snapshot() map[string]Stats {
	out := make(map[string]Stats, len(b.trackers))
	for id, t := range b.trackers {
		out[id] = t.Stats()
	}
	return out
}

// IDs 返回全部资源 ID 的副本，顺序与构建时一致。
func (b *Board) IDs() []string {
	out := make([]string, len(b.ids))
	copy(out, b.ids)
	return out
}

// Len 返回资源数量。
func (b *Board) Len() int {
	return len(b.ids)
}
