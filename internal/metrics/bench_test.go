package metrics

import "testing"

// BenchmarkCollector_RecordCall measures the per-call counter path
// (sync.Map hit plus atomics).
func BenchmarkCollector_RecordCall(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecordCall("net_socket_write", nil)
	}
}

func BenchmarkCollector_RecordCallParallel(b *testing.B) {
	c := New()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.RecordCall("net_socket_read", nil)
		}
	})
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New()
	c.HandleOpened()
	c.BytesSent(1024)
	c.RecordCall("net_socket_open", nil)
	c.RecordError("test")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}

// BenchmarkNilCollector verifies nil-safe no-ops stay cheap.
func BenchmarkNilCollector(b *testing.B) {
	var c *Collector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecordCall("net_socket_write", nil)
		c.BytesSent(32768)
		c.HandleOpened()
	}
}
