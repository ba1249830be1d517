package maxmemory

import "testing"

func BenchmarkTouch(b *testing.B) {
	p := New(WithMaxBytes(1 << 30))
	for i := 0; i < b.N; i++ {
		p.Touch(0, "key", 64)
	}
}

func BenchmarkTouchEvict(b *testing.B) {
	p := New(WithMaxBytes(1024))
	for i := 0; i < b.N; i++ {
		p.Touch(0, "key", 64)
		for p.ShouldEvict() {
			p.EvictOne()
		}
	}
}
