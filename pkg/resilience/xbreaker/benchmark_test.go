package xbreaker

import (
	"testing"
)

func BenchmarkGuardAllow(b *testing.B) {
	g := NewGuard("bench")
	b.ReportAllocs()
	for b.Loop() {
		done, err := g.Allow()
		if err != nil {
			b.Fatal(err)
		}
		done(nil)
	}
}

func BenchmarkGuardState(b *testing.B) {
	g := NewGuard("bench")
	b.ReportAllocs()
	for b.Loop() {
		_ = g.State()
	}
}

func BenchmarkCompositeReadyToTrip(b *testing.B) {
	p := NewCompositePolicy(
		NewConsecutiveFailures(5),
		NewFailureRatio(0.95, 10),
	)
	counts := Counts{Requests: 100, TotalFailures: 30, ConsecutiveFailures: 2}
	b.ReportAllocs()
	for b.Loop() {
		_ = p.ReadyToTrip(counts)
	}
}
