package capture

// Buffer is a fixed-capacity byte buffer filled front to back by chunked
// reads. Its length only grows through Advance.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a buffer able to hold capacity bytes.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Next returns the unfilled region, limited to limit bytes. A negative limit
// returns all remaining capacity.
func (b *Buffer) Next(limit int) []byte {
	end := b.n + limit
	if limit < 0 || end > len(b.data) {
		end = len(b.data)
	}
	return b.data[b.n:end]
}

// Advance marks n more bytes as filled. It panics if n exceeds the
// remaining capacity.
func (b *Buffer) Advance(n int) {
	if n < 0 || b.n+n > len(b.data) {
		panic("capture: buffer advance out of range")
	}
	b.n += n
}

// Len returns the number of filled bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Remaining returns the unfilled capacity.
func (b *Buffer) Remaining() int { return len(b.data) - b.n }

// Full reports whether the buffer has reached its capacity.
func (b *Buffer) Full() bool { return b.n == len(b.data) }

// Bytes returns the filled portion. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Reset empties the buffer for reuse.
func (b *Buffer) Reset() { b.n = 0 }
