package memorypool

// PooledBuffer is a byte buffer on loan from a Pool.  Call Release when done
// (typically deferred so every exit path returns the buffer), or Detach to
// take permanent ownership.
type PooledBuffer struct {
	data []byte
	// size is the logical size requested by the caller.
	size int
	// tracked is the amount acquire added to active-memory accounting;
	// it can exceed size when a larger idle buffer was reused.
	tracked int
	// pool is nil for untracked over-cap allocations and after
	// Release/Detach.
	pool *Pool
}

// Data returns the buffer contents, sliced to the logical size.
func (b *PooledBuffer) Data() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[:b.size]
}

// Size returns the logical size requested from the pool.
func (b *PooledBuffer) Size() int { return b.size }

// Release hands the buffer back to its pool.  Safe to call more than once;
// only the first call has an effect.  Untracked buffers are simply dropped.
func (b *PooledBuffer) Release() {
	data, pool := b.data, b.pool
	b.data, b.pool = nil, nil
	if pool != nil && data != nil {
		pool.release(data, b.tracked)
	}
}

// Detach removes the buffer from pool management permanently and returns the
// underlying bytes.  The pool's active-memory accounting is decremented as
// with Release, but the buffer never rejoins the idle list.
func (b *PooledBuffer) Detach() []byte {
	data, pool := b.data, b.pool
	b.data, b.pool = nil, nil
	if data == nil {
		return nil
	}
	if pool != nil {
		pool.detach(b.tracked)
	}
	return data[:b.size]
}
