package app

import (
	"time"
)

// Chunk is a run of encoded pairs sharing one tag.
type Chunk struct {
	Tag     string
	Data    []byte
	Records int
}

// Buffer accumulates encoded records into per-tag chunks. It is not safe
// for concurrent use; the agent owns it.
type Buffer struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	open      map[string]*Chunk
	order     []string
	sealed    []Chunk
	lastFlush time.Time
}

// NewBuffer creates a buffer that seals chunks at limit bytes and reports
// them due every interval.
func NewBuffer(limit int, interval time.Duration) *Buffer {
	b := &Buffer{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		open:     make(map[string]*Chunk),
	}
	b.lastFlush = b.now()
	return b
}

// SetLimit changes the chunk size limit for chunks sealed from now on.
func (b *Buffer) SetLimit(limit int) {
	b.limit = limit
}

// Append adds one encoded pair under tag. It reports whether a full chunk
// is waiting to be flushed. A pair larger than the limit becomes a chunk of
// its own.
func (b *Buffer) Append(tag string, data []byte) bool {
	c := b.open[tag]
	if c != nil && b.limit > 0 && len(c.Data)+len(data) > b.limit {
		b.seal(tag)
		c = nil
	}
	if c == nil {
		c = &Chunk{Tag: tag}
		b.open[tag] = c
		b.order = append(b.order, tag)
	}
	c.Data = append(c.Data, data...)
	c.Records++

	if b.limit > 0 && len(c.Data) >= b.limit {
		b.seal(tag)
	}
	return len(b.sealed) > 0
}

func (b *Buffer) seal(tag string) {
	c := b.open[tag]
	delete(b.open, tag)
	for i, t := range b.order {
		if t == tag {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.sealed = append(b.sealed, *c)
}

// Due reports whether a flush should happen now: a chunk is full, or the
// flush interval elapsed with records pending.
func (b *Buffer) Due() bool {
	if len(b.sealed) > 0 {
		return true
	}
	return len(b.open) > 0 && b.now().Sub(b.lastFlush) >= b.interval
}

// Drain removes and returns every pending chunk, full ones first.
func (b *Buffer) Drain() []Chunk {
	out := b.sealed
	b.sealed = nil
	for _, tag := range b.order {
		out = append(out, *b.open[tag])
	}
	b.open = make(map[string]*Chunk)
	b.order = nil
	b.lastFlush = b.now()
	return out
}

// Requeue puts chunks back so the next Drain returns them first.
func (b *Buffer) Requeue(chunks []Chunk) {
	if len(chunks) == 0 {
		return
	}
	b.sealed = append(append([]Chunk(nil), chunks...), b.sealed...)
}

// HasPending reports whether any records are buffered.
func (b *Buffer) HasPending() bool {
	return len(b.sealed) > 0 || len(b.open) > 0
}

// Records returns the number of buffered records.
func (b *Buffer) Records() int {
	n := 0
	for _, c := range b.sealed {
		n += c.Records
	}
	for _, c := range b.open {
		n += c.Records
	}
	return n
}
