// Package memorypool provides a size-bucketed buffer cache that turns
// per-frame allocation into an amortized-cost operation.
package memorypool

import (
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Skryldev/screen-streamer/errors"
)

// Config controls pool behaviour.  All fields have safe defaults; start with
// DefaultConfig() and override what you need.
type Config struct {
	// MaxBuffers is the maximum number of idle buffers kept for reuse.
	MaxBuffers int
	// MaxMemory caps the total memory checked out to callers, in bytes.
	// It is a soft limit: allocations over the cap still succeed but are
	// not tracked by the pool.
	MaxMemory int
	// BufferTimeout expires idle buffers that have not been reused.
	BufferTimeout time.Duration
	// Preallocate fills the idle list with DefaultBufferSize buffers.
	Preallocate bool
	// DefaultBufferSize is the preallocation size.
	DefaultBufferSize int
}

// DefaultConfig returns production defaults sized for full-HD RGBA frames.
func DefaultConfig() Config {
	return Config{
		MaxBuffers:        10,
		MaxMemory:         500 * 1024 * 1024,
		BufferTimeout:     60 * time.Second,
		Preallocate:       false,
		DefaultBufferSize: 1920 * 1080 * 4,
	}
}

// entry is an idle buffer awaiting reuse.
type entry struct {
	buf      []byte
	size     int
	lastUsed time.Time
	useCount uint32
}

// matchesSize bounds reuse waste to 2x the requested size.
func (e *entry) matchesSize(requested int) bool {
	return e.size >= requested && e.size <= requested*2
}

func (e *entry) expired(timeout time.Duration, now time.Time) bool {
	return timeout > 0 && now.Sub(e.lastUsed) > timeout
}

// Stats is a point-in-time snapshot of pool counters.  Fields are sampled
// independently; relaxed consistency between them is accepted.
type Stats struct {
	AvailableBuffers     int
	TotalBuffersCreated  uint64
	TotalMemoryAllocated int
	PeakMemoryUsage      int
	MemoryReuseCount     uint64
	// CurrentMemoryUsage counts only buffers checked out to callers.
	CurrentMemoryUsage int
	// PooledMemory is held by idle buffers and does not count against
	// the configured cap.
	PooledMemory int
	BufferHits   uint64
	BufferMisses uint64
}

// Pool is a reusable buffer cache with usage accounting.
// Safe for concurrent use.
type Pool struct {
	mu   sync.Mutex
	idle []entry // insertion order; scans are first-fit
	cfg  Config

	totalCreated  atomic.Uint64
	reuseCount    atomic.Uint64
	peakMemory    atomic.Int64
	currentMemory atomic.Int64
	hits          atomic.Uint64
	misses        atomic.Uint64
}

// New creates a pool with default configuration.
func New() *Pool { return NewWithConfig(DefaultConfig()) }

// NewWithConfig creates a pool with custom configuration.
func NewWithConfig(cfg Config) *Pool {
	if cfg.MaxBuffers <= 0 {
		cfg.MaxBuffers = DefaultConfig().MaxBuffers
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = DefaultConfig().MaxMemory
	}
	p := &Pool{cfg: cfg}
	if cfg.Preallocate {
		p.preallocate()
	}
	return p
}

func (p *Pool) preallocate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.cfg.MaxBuffers
	if n > 4 {
		n = 4
	}
	now := time.Now()
	for i := 0; i < n; i++ {
		p.idle = append(p.idle, entry{
			buf:      make([]byte, p.cfg.DefaultBufferSize),
			size:     p.cfg.DefaultBufferSize,
			lastUsed: now,
		})
		// Preallocated buffers sit idle and are not active memory.
		p.totalCreated.Add(1)
	}
}

// Acquire returns a buffer of at least size bytes, reusing an idle buffer
// when one fits within the 2x waste bound.  The returned buffer must be
// handed back with Release (usually deferred) or detached with Detach.
func (p *Pool) Acquire(size int) (*PooledBuffer, error) {
	if size <= 0 {
		return nil, apperrors.New(apperrors.CategoryPool, "acquire", apperrors.ErrInvalidBufferSize)
	}

	p.mu.Lock()
	p.dropExpiredLocked()

	if i := p.findSuitableLocked(size); i >= 0 {
		e := p.idle[i]
		p.idle = append(p.idle[:i], p.idle[i+1:]...)
		p.mu.Unlock()

		e.useCount++
		tracked := e.size
		p.currentMemory.Add(int64(tracked))
		if len(e.buf) < size {
			grown := make([]byte, size)
			copy(grown, e.buf)
			e.buf = grown
			p.currentMemory.Add(int64(size - tracked))
			tracked = size
		}
		p.hits.Add(1)
		p.reuseCount.Add(1)

		return &PooledBuffer{data: e.buf, size: size, tracked: tracked, pool: p}, nil
	}

	// Release the lock before allocating to keep contention low.
	p.mu.Unlock()
	p.misses.Add(1)
	return p.allocate(size), nil
}

// findSuitableLocked scans the idle list in insertion order (first fit).
func (p *Pool) findSuitableLocked(size int) int {
	for i := range p.idle {
		if p.idle[i].matchesSize(size) {
			return i
		}
	}
	return -1
}

// allocate creates a fresh buffer.  When the active-memory cap would be
// exceeded the buffer is handed out without pool tracking so the caller
// still makes progress; the cap throttles pooled growth, not allocation.
func (p *Pool) allocate(size int) *PooledBuffer {
	current := int(p.currentMemory.Load())
	if current+size > p.cfg.MaxMemory {
		return &PooledBuffer{data: make([]byte, size), size: size}
	}

	p.totalCreated.Add(1)
	p.currentMemory.Add(int64(size))
	p.updatePeak()

	return &PooledBuffer{data: make([]byte, size), size: size, tracked: size, pool: p}
}

func (p *Pool) updatePeak() {
	current := p.currentMemory.Load()
	for {
		peak := p.peakMemory.Load()
		if current <= peak {
			return
		}
		if p.peakMemory.CompareAndSwap(peak, current) {
			return
		}
	}
}

// release moves a buffer from active back to idle, or frees it when the
// idle list is full.
func (p *Pool) release(buf []byte, tracked int) {
	p.currentMemory.Add(int64(-tracked))

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) >= p.cfg.MaxBuffers {
		return // idle list full, let GC take it
	}
	p.idle = append(p.idle, entry{buf: buf, size: tracked, lastUsed: time.Now()})
}

// detach removes a buffer from accounting without returning it to the idle
// list; the caller owns it permanently.
func (p *Pool) detach(tracked int) {
	p.currentMemory.Add(int64(-tracked))
}

func (p *Pool) dropExpiredLocked() {
	if p.cfg.BufferTimeout <= 0 || len(p.idle) == 0 {
		return
	}
	now := time.Now()
	kept := p.idle[:0]
	for i := range p.idle {
		if !p.idle[i].expired(p.cfg.BufferTimeout, now) {
			kept = append(kept, p.idle[i])
		}
	}
	p.idle = kept
}

// Clear drops all idle buffers.  Active buffers are unaffected.
func (p *Pool) Clear() {
	p.mu.Lock()
	p.idle = nil
	p.mu.Unlock()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	available := len(p.idle)
	pooled := 0
	for i := range p.idle {
		pooled += p.idle[i].size
	}
	p.mu.Unlock()

	current := int(p.currentMemory.Load())
	return Stats{
		AvailableBuffers:     available,
		TotalBuffersCreated:  p.totalCreated.Load(),
		TotalMemoryAllocated: pooled + current,
		PeakMemoryUsage:      int(p.peakMemory.Load()),
		MemoryReuseCount:     p.reuseCount.Load(),
		CurrentMemoryUsage:   current,
		PooledMemory:         pooled,
		BufferHits:           p.hits.Load(),
		BufferMisses:         p.misses.Load(),
	}
}

// HitRate returns the reuse hit percentage (0-100).
func (p *Pool) HitRate() float64 {
	hits := p.hits.Load()
	total := hits + p.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
