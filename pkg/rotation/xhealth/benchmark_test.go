package xhealth

import (
	"testing"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
)

func BenchmarkTrackerTouch(b *testing.B) {
	tr := NewTracker()
	now := time.Now()
	b.ReportAllocs()
	for b.Loop() {
		tr.Touch(now)
	}
}

func BenchmarkTrackerStats(b *testing.B) {
	tr := NewTracker()
	tr.Touch(time.Now())
	tr.RecordFailure(xclassify.KindTimeout)
	b.ReportAllocs()
	for b.Loop() {
		_ = tr.Stats()
	}
}

func BenchmarkTrackerParallel(b *testing.B) {
	tr := NewTracker()
	now := time.Now()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tr.Touch(now)
			tr.RecordSuccess()
		}
	})
}
