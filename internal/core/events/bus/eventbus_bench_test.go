package bus

import (
	"strconv"
	"sync/atomic"
	"testing"
)

type tickEvent struct {
	Frame int
}

type nopObserver struct{}

func (nopObserver) OnPublish(string, any)          {}
func (nopObserver) OnDelivered(string, int, int64) {}

func BenchmarkPublishSingleSubscriber(b *testing.B) {
	m := New()
	var c int64
	Subscribe(m, func(tickEvent) { atomic.AddInt64(&c, 1) })
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Publish(m, tickEvent{Frame: i})
	}
	b.StopTimer()
	_ = c
}

func BenchmarkPublishManySubscribers(b *testing.B) {
	for _, subs := range []int{1, 4, 16, 64, 256} {
		b.Run("subs="+strconv.Itoa(subs), func(b *testing.B) {
			m := New()
			var c int64
			for i := 0; i < subs; i++ {
				Subscribe(m, func(tickEvent) { atomic.AddInt64(&c, 1) })
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Publish(m, tickEvent{Frame: i})
			}
			b.StopTimer()
			_ = c
		})
	}
}

func BenchmarkConcurrentPublishers(b *testing.B) {
	m := New()
	var c int64
	for i := 0; i < 64; i++ {
		Subscribe(m, func(tickEvent) { atomic.AddInt64(&c, 1) })
	}
	b.ReportAllocs()
	b.SetParallelism(4)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Publish(m, tickEvent{})
		}
	})
	_ = c
}

func BenchmarkObserverOverhead(b *testing.B) {
	m := New()
	var c int64
	for i := 0; i < 32; i++ {
		Subscribe(m, func(tickEvent) { atomic.AddInt64(&c, 1) })
	}
	b.Run("no-observer", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			Publish(m, tickEvent{})
		}
	})
	b.Run("with-observer", func(b *testing.B) {
		obs := nopObserver{}
		m.AddObserver(obs)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			Publish(m, tickEvent{})
		}
		m.RemoveObserver(obs)
	})
	_ = c
}
