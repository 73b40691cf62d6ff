package xrotate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
	"github.com/omeyang/rotakit/pkg/rotation/xstrategy"
)

var errUpstream = errors.New("upstream unavailable")

func testResources(ids ...string) []Resource {
	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewResource(id, Secret("cred-"+id+"-0123456789")))
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewManagerValidation(t *testing.T) {
	t.Run("NoResources", func(t *testing.T) {
		_, err := NewManager(nil)
		require.ErrorIs(t, err, ErrNoResources)
	})

	t.Run("EmptyID", func(t *testing.T) {
		_, err := NewManager([]Resource{NewResource("", Secret("x"))})
		require.ErrorIs(t, err, ErrEmptyResourceID)
	})

	t.Run("NilCredential", func(t *testing.T) {
		_, err := NewManager([]Resource{NewResource("r-1", nil)})
		require.ErrorIs(t, err, ErrNilCredential)
		assert.Contains(t, err.Error(), "r-1")
	})

	t.Run("DuplicateID", func(t *testing.T) {
		_, err := NewManager(testResources("r-1", "r-1"))
		require.ErrorIs(t, err, ErrDuplicateResource)
	})
}

func TestManagerAccessors(t *testing.T) {
	m, err := NewManager(testResources("r-1", "r-2"), WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.Equal(t, []string{"r-1", "r-2"}, m.IDs())
	assert.Equal(t, 2, m.Len())

	r, ok := m.Resource("r-2")
	require.True(t, ok)
	assert.Equal(t, "r-2", r.ID())

	_, ok = m.Resource("ghost")
	assert.False(t, ok)

	stats, ok := m.Stats("r-1")
	require.True(t, ok)
	assert.False(t, stats.Used())
}

func TestAcquireRoundRobin(t *testing.T) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3"), WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	var got []string
	for range 6 {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		got = append(got, lease.Resource().ID())
		lease.Release(nil)
	}
	assert.Equal(t, []string{"r-1", "r-2", "r-3", "r-1", "r-2", "r-3"}, got)
}

func TestAcquireRoundRobinDistribution(t *testing.T) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3"), WithLogger(discardLogger()))
	require.NoError(t, err)
	ctx := context.Background()

	// 300 次全成功的租借应近乎均匀地落在 3 个资源上
	for range 300 {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		lease.Release(nil)
	}

	for _, id := range m.IDs() {
		stats, ok := m.Stats(id)
		require.True(t, ok)
		assert.GreaterOrEqual(t, stats.Requests, uint64(99), "resource %s under-selected", id)
		assert.LessOrEqual(t, stats.Requests, uint64(101), "resource %s over-selected", id)
	}
}

func TestAcquireAvoiding(t *testing.T) {
	t.Run("PrefersAlternative", func(t *testing.T) {
		m, err := NewManager(testResources("r-1", "r-2"), WithLogger(discardLogger()))
		require.NoError(t, err)

		for range 4 {
			lease, err := m.AcquireAvoiding(context.Background(), "r-1")
			require.NoError(t, err)
			assert.Equal(t, "r-2", lease.Resource().ID())
			lease.Release(nil)
		}
	})

	t.Run("SoleCandidateIgnoresHint", func(t *testing.T) {
		m, err := NewManager(testResources("r-1"), WithLogger(discardLogger()))
		require.NoError(t, err)

		lease, err := m.AcquireAvoiding(context.Background(), "r-1")
		require.NoError(t, err)
		assert.Equal(t, "r-1", lease.Resource().ID())
		lease.Release(nil)
	})
}

func TestAcquireCanceledContext(t *testing.T) {
	m, err := NewManager(testResources("r-1"), WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCircuitTripsOnConsecutiveFailures(t *testing.T) {
	m, err := NewManager(testResources("r-1"),
		WithFailureThreshold(3),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		lease.Release(xclassify.NewConnection(errUpstream))
	}

	snap := m.Snapshot()["r-1"]
	assert.Equal(t, CircuitOpen, snap.Circuit)
	require.NotNil(t, snap.OpenedAt)
	assert.EqualValues(t, 3, snap.ConsecutiveErrors)
	assert.EqualValues(t, 3, snap.Errors)

	// 唯一资源熔断后池级不可用
	_, err = m.Acquire(ctx)
	require.ErrorIs(t, err, ErrNoHealthyResource)
}

func TestCircuitTripsOnErrorRate(t *testing.T) {
	m, err := NewManager(testResources("r-1"),
		WithFailureThreshold(100), // 连续失败臂不参与
		WithRateThreshold(0.5),
		WithMinSampleSize(4),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	run := func(opErr error) {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		lease.Release(opErr)
	}

	run(nil)
	run(nil)
	run(xclassify.NewRateLimited(errUpstream))
	// 样本不足时失败率不触发熔断
	require.Equal(t, CircuitClosed, m.Snapshot()["r-1"].Circuit)

	// 第 4 个样本使失败率达到 50%
	run(xclassify.NewRateLimited(errUpstream))
	assert.Equal(t, CircuitOpen, m.Snapshot()["r-1"].Circuit)
}

func TestOpenCircuitExcludedFromSelection(t *testing.T) {
	m, err := NewManager(testResources("r-1", "r-2"),
		WithFailureThreshold(1),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	// 轮转首选 r-1，让它一次失败即熔断
	lease, err := m.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, "r-1", lease.Resource().ID())
	lease.Release(xclassify.NewTimeout(errUpstream))
	require.Equal(t, CircuitOpen, m.Snapshot()["r-1"].Circuit)

	// 熔断打开的资源不再参与选择，流量全部走 r-2
	for range 4 {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r-2", lease.Resource().ID())
		lease.Release(nil)
	}
}

func TestNonCountingFailures(t *testing.T) {
	m, err := NewManager(testResources("r-1"),
		WithFailureThreshold(2),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	run := func(opErr error) xclassify.Kind {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		return lease.Release(opErr)
	}

	// 目标不存在不是资源故障：重复多次也不积累错误、不熔断
	for range 4 {
		kind := run(xclassify.NewNotFound(errUpstream))
		assert.Equal(t, xclassify.KindNotFound, kind)
	}
	snap := m.Snapshot()["r-1"]
	assert.Equal(t, CircuitClosed, snap.Circuit)
	assert.EqualValues(t, 0, snap.Errors)
	assert.EqualValues(t, 4, snap.Requests)
	require.NotNil(t, snap.LastErrorKind)
	assert.Equal(t, xclassify.KindNotFound, *snap.LastErrorKind)

	// 计入熔断的失败积累连败，随后的非资源故障打断连败
	run(xclassify.NewTimeout(errUpstream))
	assert.EqualValues(t, 1, m.Snapshot()["r-1"].ConsecutiveErrors)

	run(xclassify.NewParse(errUpstream))
	assert.EqualValues(t, 0, m.Snapshot()["r-1"].ConsecutiveErrors)
	assert.Equal(t, CircuitClosed, m.Snapshot()["r-1"].Circuit)
}

func TestHalfOpenProbe(t *testing.T) {
	newTripped := func(t *testing.T) *Manager {
		t.Helper()
		m, err := NewManager(testResources("r-1"),
			WithFailureThreshold(1),
			WithCoolDown(30*time.Millisecond),
			WithLogger(discardLogger()),
		)
		require.NoError(t, err)

		lease, err := m.Acquire(context.Background())
		require.NoError(t, err)
		lease.Release(xclassify.NewDetectedBlocked(errUpstream))
		require.Equal(t, CircuitOpen, m.Snapshot()["r-1"].Circuit)
		return m
	}

	t.Run("OpenRejectsBeforeCoolDown", func(t *testing.T) {
		m := newTripped(t)
		_, err := m.Acquire(context.Background())
		require.ErrorIs(t, err, ErrNoHealthyResource)
	})

	t.Run("SingleProbeAfterCoolDown", func(t *testing.T) {
		m := newTripped(t)
		time.Sleep(40 * time.Millisecond)

		lease, err := m.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, CircuitHalfOpen, m.Snapshot()["r-1"].Circuit)

		// 探测名额只有一个，探测完成前其他获取拿不到资源
		_, err = m.Acquire(context.Background())
		require.ErrorIs(t, err, ErrNoHealthyResource)

		lease.Release(nil)
	})

	t.Run("ProbeSuccessCloses", func(t *testing.T) {
		m := newTripped(t)
		time.Sleep(40 * time.Millisecond)

		lease, err := m.Acquire(context.Background())
		require.NoError(t, err)
		lease.Release(nil)

		snap := m.Snapshot()["r-1"]
		assert.Equal(t, CircuitClosed, snap.Circuit)
		assert.Nil(t, snap.OpenedAt)

		// 恢复后继续服务
		lease, err = m.Acquire(context.Background())
		require.NoError(t, err)
		lease.Release(nil)
	})

	t.Run("ProbeFailureReopens", func(t *testing.T) {
		m := newTripped(t)
		time.Sleep(40 * time.Millisecond)

		lease, err := m.Acquire(context.Background())
		require.NoError(t, err)
		lease.Release(xclassify.NewDetectedBlocked(errUpstream))

		assert.Equal(t, CircuitOpen, m.Snapshot()["r-1"].Circuit)
		_, err = m.Acquire(context.Background())
		require.ErrorIs(t, err, ErrNoHealthyResource)
	})
}

func TestLeaseReleaseIdempotent(t *testing.T) {
	m, err := NewManager(testResources("r-1"), WithLogger(discardLogger()))
	require.NoError(t, err)

	lease, err := m.Acquire(context.Background())
	require.NoError(t, err)

	kind := lease.Release(xclassify.NewRateLimited(errUpstream))
	assert.Equal(t, xclassify.KindRateLimited, kind)

	// 重复释放是无害空操作，统计不会二次记账
	kind = lease.Release(xclassify.NewRateLimited(errUpstream))
	assert.Equal(t, xclassify.KindRateLimited, kind)

	snap := m.Snapshot()["r-1"]
	assert.EqualValues(t, 1, snap.Requests)
	assert.EqualValues(t, 1, snap.Errors)
}

func TestStateChangeHook(t *testing.T) {
	type transition struct {
		id       string
		from, to CircuitState
	}
	var got []transition
	m, err := NewManager(testResources("r-1"),
		WithFailureThreshold(1),
		WithStateChangeHook(func(id string, from, to CircuitState) {
			got = append(got, transition{id, from, to})
		}),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)

	lease, err := m.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release(xclassify.NewTimeout(errUpstream))

	require.Len(t, got, 1)
	assert.Equal(t, transition{"r-1", CircuitClosed, CircuitOpen}, got[0])
}

func TestManagerPacing(t *testing.T) {
	const interval = 60 * time.Millisecond
	m, err := NewManager(testResources("r-1"),
		WithMinInterval(interval),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	lease, err := m.Acquire(ctx)
	require.NoError(t, err)
	lease.Release(nil)

	// 同一资源的第二次获取等满最小间隔
	start := time.Now()
	lease, err = m.Acquire(ctx)
	require.NoError(t, err)
	lease.Release(nil)
	assert.GreaterOrEqual(t, time.Since(start), interval-10*time.Millisecond)

	t.Run("CancelDuringWait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		// 取消发生在节流等待期，错误原样返回而不是误报池级不可用
		_, err := m.Acquire(ctx)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrNoHealthyResource)
	})
}

func TestAdaptiveSelectorSteersTraffic(t *testing.T) {
	// 选择器阈值与熔断阈值独立注入：错误率高但未熔断的资源被绕开
	m, err := NewManager(testResources("r-1", "r-2"),
		WithSelector(xstrategy.NewAdaptive(0.5, 2)),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	// 把 r-1 的错误率推到阈值之上（样本 2，全失败）
	for range 2 {
		lease, err := m.AcquireAvoiding(ctx, "r-2")
		require.NoError(t, err)
		require.Equal(t, "r-1", lease.Resource().ID())
		lease.Release(xclassify.NewRateLimited(errUpstream))
	}
	require.Equal(t, CircuitClosed, m.Snapshot()["r-1"].Circuit)

	// 自适应选择此后只走低错误率的 r-2
	for range 4 {
		lease, err := m.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r-2", lease.Resource().ID())
		lease.Release(nil)
	}
}

func TestExportRestore(t *testing.T) {
	ctx := context.Background()
	newPool := func(t *testing.T) *Manager {
		t.Helper()
		m, err := NewManager(testResources("r-1", "r-2"),
			WithFailureThreshold(2),
			WithLogger(discardLogger()),
		)
		require.NoError(t, err)
		return m
	}

	t.Run("RoundTrip", func(t *testing.T) {
		src := newPool(t)

		// r-1 成功一次；r-2 连续失败两次熔断
		lease, err := src.Acquire(ctx)
		require.NoError(t, err)
		require.Equal(t, "r-1", lease.Resource().ID())
		lease.Release(nil)

		for range 2 {
			lease, err := src.AcquireAvoiding(ctx, "r-1")
			require.NoError(t, err)
			require.Equal(t, "r-2", lease.Resource().ID())
			lease.Release(xclassify.NewInvalidCredential(errUpstream))
		}
		require.Equal(t, CircuitOpen, src.Snapshot()["r-2"].Circuit)

		// 经 JSON 走一轮，模拟外部存储
		data, err := json.Marshal(src.ExportState())
		require.NoError(t, err)
		var loaded PoolState
		require.NoError(t, json.Unmarshal(data, &loaded))
		assert.Equal(t, StateVersion, loaded.Version)

		dst := newPool(t)
		require.NoError(t, dst.RestoreState(loaded))

		snap := dst.Snapshot()
		assert.EqualValues(t, 1, snap["r-1"].Requests)
		assert.Equal(t, CircuitClosed, snap["r-1"].Circuit)

		assert.EqualValues(t, 2, snap["r-2"].Requests)
		assert.EqualValues(t, 2, snap["r-2"].Errors)
		assert.EqualValues(t, 2, snap["r-2"].ConsecutiveErrors)
		require.NotNil(t, snap["r-2"].LastErrorKind)
		assert.Equal(t, xclassify.KindInvalidCredential, *snap["r-2"].LastErrorKind)
		// 冷却未结束的熔断恢复后仍是打开的，冷却从恢复时刻重新起算
		assert.Equal(t, CircuitOpen, snap["r-2"].Circuit)

		// 恢复后 r-2 不参与选择
		lease, err = dst.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r-1", lease.Resource().ID())
		lease.Release(nil)
	})

	t.Run("CooledOpenRestoresClosed", func(t *testing.T) {
		dst := newPool(t)
		opened := time.Now().Add(-2 * DefaultCoolDown)
		kind := xclassify.KindDetectedBlocked
		state := PoolState{
			Version: StateVersion,
			TakenAt: time.Now().Add(-2 * DefaultCoolDown),
			Resources: map[string]ResourceState{
				"r-2": {
					Stats: xhealth.Stats{
						Requests:          9,
						Errors:            9,
						ConsecutiveErrors: 9,
						LastErrorKind:     &kind,
						LastUsedAt:        opened,
					},
					Circuit:  CircuitOpen,
					OpenedAt: &opened,
				},
			},
		}
		require.NoError(t, dst.RestoreState(state))

		// 冷却早已结束：按 CLOSED 恢复，r-2 直接回到轮转
		snap := dst.Snapshot()["r-2"]
		assert.Equal(t, CircuitClosed, snap.Circuit)
		assert.EqualValues(t, 9, snap.Errors)
	})

	t.Run("UnknownResourceSkipped", func(t *testing.T) {
		dst := newPool(t)
		state := PoolState{
			Version:   StateVersion,
			TakenAt:   time.Now(),
			Resources: map[string]ResourceState{"ghost": {}},
		}
		require.NoError(t, dst.RestoreState(state))
		_, ok := dst.Stats("ghost")
		assert.False(t, ok)
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		dst := newPool(t)
		err := dst.RestoreState(PoolState{Version: 99})
		require.ErrorIs(t, err, ErrIncompatibleState)
	})
}

func TestManagerConcurrentAcquire(t *testing.T) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3"),
		WithFailureThreshold(100), // 本测试只验证统计一致性，不触发熔断
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				lease, err := m.Acquire(context.Background())
				if err != nil {
					continue
				}
				if i%5 == 0 {
					lease.Release(xclassify.NewRateLimited(errUpstream))
					continue
				}
				lease.Release(nil)
			}
		}()
	}
	wg.Wait()

	var totalRequests, totalErrors uint64
	for _, rs := range m.Snapshot() {
		assert.LessOrEqual(t, rs.Errors, rs.Requests)
		totalRequests += rs.Requests
		totalErrors += rs.Errors
	}
	assert.EqualValues(t, 400, totalRequests)
	assert.EqualValues(t, 80, totalErrors)
}
