package xrotate

import (
	"context"
	"testing"

	"github.com/omeyang/rotakit/pkg/rotation/xstrategy"
)

func BenchmarkAcquireRelease(b *testing.B) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3", "r-4"),
		WithLogger(discardLogger()),
	)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		lease, err := m.Acquire(ctx)
		if err != nil {
			b.Fatal(err)
		}
		lease.Release(nil)
	}
}

func BenchmarkAcquireReleaseParallel(b *testing.B) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3", "r-4"),
		WithStrategy(xstrategy.LeastUsed),
		WithLogger(discardLogger()),
	)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			lease, err := m.Acquire(context.Background())
			if err != nil {
				b.Error(err)
				return
			}
			lease.Release(nil)
		}
	})
}

func BenchmarkSnapshot(b *testing.B) {
	m, err := NewManager(testResources("r-1", "r-2", "r-3", "r-4"),
		WithLogger(discardLogger()),
	)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = m.Snapshot()
	}
}
