package xmetrics

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xexec"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func successMeta(resource string) xexec.Meta {
	return xexec.Meta{
		RequestID:  "req-" + resource,
		ResourceID: resource,
		Attempts:   1,
		Elapsed:    10 * time.Millisecond,
		Category:   xexec.CategorySuccess,
	}
}

func errorMeta(id, resource string, kind xclassify.Kind) xexec.Meta {
	return xexec.Meta{
		RequestID:  id,
		ResourceID: resource,
		Attempts:   3,
		Elapsed:    30 * time.Millisecond,
		Category:   xexec.CategoryError,
		Kind:       kind,
	}
}

// collectExporter 收集转发到的元数据，用于断言导出路径。
type collectExporter struct {
	mu    sync.Mutex
	metas []xexec.Meta
}

func (c *collectExporter) Export(meta xexec.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas = append(c.metas, meta)
}

func (c *collectExporter) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.metas)
}

// blockingExporter 阻塞收集 goroutine，直到 release 被关闭。
type blockingExporter struct {
	release chan struct{}
}

func (b *blockingExporter) Export(xexec.Meta) {
	<-b.release
}

func TestSinkAggregation(t *testing.T) {
	t.Run("TotalsByCategory", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		s.Record(successMeta("r-1"))
		s.Record(successMeta("r-2"))
		s.Record(errorMeta("req-e1", "r-1", xclassify.KindRateLimited))
		s.Record(errorMeta("req-e2", "r-1", xclassify.KindTimeout))
		s.Record(xexec.Meta{
			RequestID:  "req-nf",
			ResourceID: "r-2",
			Attempts:   1,
			Category:   xexec.CategoryNotFound,
			Kind:       xclassify.KindNotFound,
		})
		require.NoError(t, s.Close())

		snap := s.Snapshot()
		assert.Equal(t, uint64(2), snap.Totals.Success)
		assert.Equal(t, uint64(2), snap.Totals.Failure)
		assert.Equal(t, uint64(1), snap.Totals.NotFound)
		assert.Equal(t, uint64(0), snap.Totals.Dropped)
		assert.Equal(t, uint64(1), snap.Totals.ByErrorKind[xclassify.KindRateLimited])
		assert.Equal(t, uint64(1), snap.Totals.ByErrorKind[xclassify.KindTimeout])
	})

	t.Run("PerResourceFallback", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		s.Record(successMeta("r-1"))
		s.Record(errorMeta("req-e1", "r-1", xclassify.KindConnection))
		require.NoError(t, s.Close())

		snap := s.Snapshot()
		rs, ok := snap.PerResource["r-1"]
		require.True(t, ok)
		assert.Equal(t, uint64(2), rs.Requests)
		assert.Equal(t, uint64(1), rs.Errors)
		assert.InDelta(t, 0.5, rs.ErrorRate, 1e-9)
		require.NotNil(t, rs.LastErrorKind)
		assert.Equal(t, xclassify.KindConnection, *rs.LastErrorKind)
	})

	t.Run("EmptyResourceIDNotAggregated", func(t *testing.T) {
		// 首次租借即失败的执行链没有资源维度，只进全局计数
		s := NewSink(WithLogger(discardLogger()))
		s.Record(errorMeta("req-e1", "", xclassify.KindUnknown))
		require.NoError(t, s.Close())

		snap := s.Snapshot()
		assert.Equal(t, uint64(1), snap.Totals.Failure)
		assert.Empty(t, snap.PerResource)
	})
}

func TestSinkHealthSource(t *testing.T) {
	kind := xclassify.KindRateLimited
	s := NewSink(
		WithLogger(discardLogger()),
		WithHealthSource(func() map[string]xhealth.Stats {
			return map[string]xhealth.Stats{
				"r-1": {Requests: 42, Errors: 7, LastErrorKind: &kind},
			}
		}),
	)
	defer s.Close() //nolint:errcheck

	// Sink 自身聚合与健康源不同，健康源优先
	s.Record(successMeta("r-9"))

	snap := s.Snapshot()
	require.Len(t, snap.PerResource, 1)
	rs := snap.PerResource["r-1"]
	assert.Equal(t, uint64(42), rs.Requests)
	assert.Equal(t, uint64(7), rs.Errors)
	assert.InDelta(t, 7.0/42.0, rs.ErrorRate, 1e-9)
	require.NotNil(t, rs.LastErrorKind)
	assert.Equal(t, xclassify.KindRateLimited, *rs.LastErrorKind)
}

func TestSinkRecentErrors(t *testing.T) {
	t.Run("OnlyFailuresSampled", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		s.Record(successMeta("r-1"))
		s.Record(errorMeta("req-e1", "r-1", xclassify.KindTimeout))
		require.NoError(t, s.Close())

		snap := s.Snapshot()
		require.Len(t, snap.RecentErrors, 1)
		assert.Equal(t, "req-e1", snap.RecentErrors[0].RequestID)
		assert.Equal(t, xclassify.KindTimeout, snap.RecentErrors[0].Kind)
		assert.False(t, snap.RecentErrors[0].At.IsZero())
	})

	t.Run("CapacityBounded", func(t *testing.T) {
		s := NewSink(
			WithLogger(discardLogger()),
			WithRecentErrors(2, time.Minute),
		)
		for i := range 5 {
			s.Record(errorMeta(fmt.Sprintf("req-%d", i), "r-1", xclassify.KindConnection))
		}
		require.NoError(t, s.Close())

		snap := s.Snapshot()
		require.Len(t, snap.RecentErrors, 2)
		// LRU 保留最新样本，从旧到新排列
		assert.Equal(t, "req-3", snap.RecentErrors[0].RequestID)
		assert.Equal(t, "req-4", snap.RecentErrors[1].RequestID)
	})
}

func TestSinkExporter(t *testing.T) {
	exp := &collectExporter{}
	s := NewSink(WithLogger(discardLogger()), WithExporter(exp))
	s.Record(successMeta("r-1"))
	s.Record(errorMeta("req-e1", "r-1", xclassify.KindTimeout))
	require.NoError(t, s.Close())

	assert.Equal(t, 2, exp.len())
}

func TestSinkNeverBlocks(t *testing.T) {
	exp := &blockingExporter{release: make(chan struct{})}
	s := NewSink(
		WithLogger(discardLogger()),
		WithBufferSize(1),
		WithExporter(exp),
	)

	// 收集 goroutine 被导出器卡死，最多吸收 2 条（1 条在手 + 1 条在缓冲），
	// 其余必须立即丢弃而不是阻塞调用方
	recorded := make(chan struct{})
	go func() {
		for i := range 10 {
			s.Record(errorMeta(fmt.Sprintf("req-%d", i), "r-1", xclassify.KindTimeout))
		}
		close(recorded)
	}()

	select {
	case <-recorded:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on saturated sink")
	}
	assert.GreaterOrEqual(t, s.Dropped(), uint64(8))

	close(exp.release)
	require.NoError(t, s.Close())
	assert.Equal(t, s.Dropped(), s.Snapshot().Totals.Dropped)
}

func TestSinkClose(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
	})

	t.Run("DrainsBufferedRecords", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		for range 100 {
			s.Record(successMeta("r-1"))
		}
		require.NoError(t, s.Close())
		assert.Equal(t, uint64(100), s.Snapshot().Totals.Success+s.Snapshot().Totals.Dropped)
	})

	t.Run("RecordAfterCloseDropped", func(t *testing.T) {
		s := NewSink(WithLogger(discardLogger()))
		require.NoError(t, s.Close())
		before := s.Dropped()
		s.Record(successMeta("r-1"))
		assert.Equal(t, before+1, s.Dropped())
	})
}
