package xrotate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer 为每个资源维护一个令牌桶，保证同一资源两次使用之间
// 至少间隔 minInterval。资源集合在构造时固定，无需清理。
type pacer struct {
	limiters map[string]*rate.Limiter
}

// newPacer 按资源 ID 预建限速器。minInterval <= 0 时返回 nil，表示不限速。
func newPacer(ids []string, minInterval time.Duration) *pacer {
	if minInterval <= 0 {
		return nil
	}
	limiters := make(map[string]*rate.Limiter, len(ids))
	for _, id := range ids {
		// 突发容量 1：首次使用立即放行，之后按间隔补充
		limiters[id] = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return &pacer{limiters: limiters}
}

// wait 阻塞到资源 id 的下一个使用窗口，或 ctx 取消。
// nil pacer 与未知 id 直接放行。
func (p *pacer) wait(ctx context.Context, id string) error {
	if p == nil {
		return nil
	}
	lim, ok := p.limiters[id]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}
