package domain

import "time"

// Entry is one timestamped record as delivered by the buffering layer.
type Entry struct {
	Time   time.Time
	Record Record
}

// Batch is the ordered set of entries decoded from one chunk.
// It is treated as immutable once handed to the writer.
type Batch struct {
	Entries []Entry
}

// NewBatch creates a batch with room for n entries.
func NewBatch(n int) *Batch {
	return &Batch{Entries: make([]Entry, 0, n)}
}

// Add appends an entry to the batch.
func (b *Batch) Add(e Entry) {
	b.Entries = append(b.Entries, e)
}

// Size returns the number of entries in the batch.
func (b *Batch) Size() int {
	return len(b.Entries)
}

// Empty returns true if the batch has no entries.
func (b *Batch) Empty() bool {
	return len(b.Entries) == 0
}

// Records returns the records of the batch in order.
func (b *Batch) Records() []Record {
	out := make([]Record, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Record
	}
	return out
}

// Event is a record read from an input together with its source tag.
type Event struct {
	Tag    string
	Time   time.Time
	Record Record
}
