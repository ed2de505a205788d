package memorypool

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/Skryldev/screen-streamer/errors"
)

func TestAcquireZeroSize(t *testing.T) {
	pool := New()
	_, err := pool.Acquire(0)
	if err == nil {
		t.Fatal("expected error for zero-size acquire")
	}
	if !errors.Is(err, apperrors.ErrInvalidBufferSize) {
		t.Errorf("error = %v, want ErrInvalidBufferSize", err)
	}
	if !apperrors.IsCategory(err, apperrors.CategoryPool) {
		t.Errorf("error category: got %v, want pool", err)
	}
}

func TestAcquireRelease(t *testing.T) {
	pool := New()
	buf, err := pool.Acquire(1024)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if buf.Size() != 1024 {
		t.Errorf("size: got %d, want 1024", buf.Size())
	}
	if len(buf.Data()) != 1024 {
		t.Errorf("data length: got %d, want 1024", len(buf.Data()))
	}
	buf.Release()

	stats := pool.Stats()
	if stats.AvailableBuffers != 1 {
		t.Errorf("available buffers: got %d, want 1", stats.AvailableBuffers)
	}
}

func TestReuse(t *testing.T) {
	pool := New()

	buf1, _ := pool.Acquire(1024)
	buf1.Release()

	buf2, _ := pool.Acquire(1024)
	buf2.Release()

	stats := pool.Stats()
	if stats.MemoryReuseCount != 1 {
		t.Errorf("reuse count: got %d, want 1", stats.MemoryReuseCount)
	}
	if stats.TotalBuffersCreated != 1 {
		t.Errorf("buffers created: got %d, want 1", stats.TotalBuffersCreated)
	}
}

func TestSizeBucketRule(t *testing.T) {
	pool := New()

	buf, _ := pool.Acquire(1024)
	buf.Release()

	// 1024 >= 512 and 1024 <= 512*2, so the idle buffer is reused.
	small, _ := pool.Acquire(512)
	small.Release()
	if got := pool.Stats().MemoryReuseCount; got != 1 {
		t.Errorf("reuse count after 512 acquire: got %d, want 1", got)
	}

	// 1024 < 2048, so a 2048 request allocates fresh.
	big, _ := pool.Acquire(2048)
	big.Release()
	if got := pool.Stats().MemoryReuseCount; got != 1 {
		t.Errorf("reuse count after 2048 acquire: got %d, want 1", got)
	}
	if got := pool.Stats().TotalBuffersCreated; got != 2 {
		t.Errorf("buffers created: got %d, want 2", got)
	}
}

func TestActiveMemoryInvariant(t *testing.T) {
	pool := New()

	// Sequential acquire/release cycles, including a reuse of a larger
	// buffer for a smaller request, must leave active memory at zero.
	buf1, _ := pool.Acquire(1024)
	buf1.Release()
	buf2, _ := pool.Acquire(512) // reuses the 1024-byte buffer
	buf2.Release()

	stats := pool.Stats()
	if stats.CurrentMemoryUsage != 0 {
		t.Errorf("active memory after cycle: got %d, want 0", stats.CurrentMemoryUsage)
	}
	if stats.PooledMemory == 0 {
		t.Error("pooled (idle) memory should be non-zero after release")
	}
}

func TestCapFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMemory = 2048
	pool := NewWithConfig(cfg)

	first, err := pool.Acquire(2000)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Second allocation exceeds the cap; it must still succeed, unpooled.
	second, err := pool.Acquire(2000)
	if err != nil {
		t.Fatalf("second acquire under pressure: %v", err)
	}
	if second.pool != nil {
		t.Error("over-cap buffer should not carry a pool back-reference")
	}

	active := pool.Stats().CurrentMemoryUsage
	if active != 2000 {
		t.Errorf("active memory: got %d, want 2000 (untracked buffer excluded)", active)
	}

	first.Release()
	second.Release()
	if got := pool.Stats().CurrentMemoryUsage; got != 0 {
		t.Errorf("active memory after release: got %d, want 0", got)
	}
}

func TestDetachLeavesAccounting(t *testing.T) {
	pool := New()

	buf, _ := pool.Acquire(256)
	data := buf.Detach()
	if len(data) != 256 {
		t.Errorf("detached length: got %d, want 256", len(data))
	}
	stats := pool.Stats()
	if stats.CurrentMemoryUsage != 0 {
		t.Errorf("active memory after detach: got %d, want 0", stats.CurrentMemoryUsage)
	}
	if stats.AvailableBuffers != 0 {
		t.Errorf("detached buffer must not rejoin the idle list, got %d idle", stats.AvailableBuffers)
	}

	// Release after Detach is a no-op.
	buf.Release()
	if got := pool.Stats().CurrentMemoryUsage; got != 0 {
		t.Errorf("active memory after redundant release: got %d, want 0", got)
	}
}

func TestDoubleReleaseIsNoop(t *testing.T) {
	pool := New()
	buf, _ := pool.Acquire(128)
	buf.Release()
	buf.Release()

	stats := pool.Stats()
	if stats.AvailableBuffers != 1 {
		t.Errorf("available buffers: got %d, want 1", stats.AvailableBuffers)
	}
	if stats.CurrentMemoryUsage != 0 {
		t.Errorf("active memory: got %d, want 0", stats.CurrentMemoryUsage)
	}
}

func TestIdleListBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBuffers = 2
	pool := NewWithConfig(cfg)

	bufs := make([]*PooledBuffer, 4)
	for i := range bufs {
		// Distinct sizes outside each other's 2x bounds so nothing reuses.
		b, err := pool.Acquire(100 << (2 * i))
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		bufs[i] = b
	}
	for _, b := range bufs {
		b.Release()
	}

	if got := pool.Stats().AvailableBuffers; got != 2 {
		t.Errorf("idle buffers: got %d, want 2 (MaxBuffers)", got)
	}
}

func TestExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferTimeout = 10 * time.Millisecond
	pool := NewWithConfig(cfg)

	buf, _ := pool.Acquire(1024)
	buf.Release()
	time.Sleep(25 * time.Millisecond)

	// Expiry runs on acquire; a non-matching size keeps the expired entry
	// out of the reuse path either way.
	fresh, _ := pool.Acquire(1024)
	defer fresh.Release()

	stats := pool.Stats()
	if stats.MemoryReuseCount != 0 {
		t.Errorf("expired buffer was reused: reuse count %d", stats.MemoryReuseCount)
	}
	if stats.TotalBuffersCreated != 2 {
		t.Errorf("buffers created: got %d, want 2", stats.TotalBuffersCreated)
	}
}

func TestGrowUndersizedHit(t *testing.T) {
	pool := New()

	buf, _ := pool.Acquire(600)
	buf.Release()

	// 600 >= 512 and 600 <= 1024: reused, then grown to fit.
	grown, _ := pool.Acquire(1000)
	if len(grown.Data()) != 1000 {
		t.Fatalf("grown buffer length: got %d, want 1000", len(grown.Data()))
	}
	grown.Release()

	if got := pool.Stats().CurrentMemoryUsage; got != 0 {
		t.Errorf("active memory after grow cycle: got %d, want 0", got)
	}
}

func TestClear(t *testing.T) {
	pool := New()
	buf, _ := pool.Acquire(1024)
	buf.Release()

	pool.Clear()
	if got := pool.Stats().AvailableBuffers; got != 0 {
		t.Errorf("available buffers after clear: got %d, want 0", got)
	}
}

func TestHitRate(t *testing.T) {
	pool := New()
	if pool.HitRate() != 0 {
		t.Errorf("hit rate on fresh pool: got %v, want 0", pool.HitRate())
	}

	buf, _ := pool.Acquire(1024)
	buf.Release()
	reused, _ := pool.Acquire(1024)
	reused.Release()

	if got := pool.HitRate(); got != 50 {
		t.Errorf("hit rate: got %v, want 50", got)
	}
}

func TestPreallocate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preallocate = true
	cfg.DefaultBufferSize = 4096
	pool := NewWithConfig(cfg)

	stats := pool.Stats()
	if stats.AvailableBuffers == 0 {
		t.Fatal("preallocation produced no idle buffers")
	}
	if stats.CurrentMemoryUsage != 0 {
		t.Errorf("preallocated buffers must be idle, active = %d", stats.CurrentMemoryUsage)
	}
}
