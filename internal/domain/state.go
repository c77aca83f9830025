package domain

import "time"

// State is the persisted read position of an input, used to resume after a
// restart without re-sending records that were already flushed.
type State struct {
	// InputPath is the file the offset refers to.
	InputPath string `json:"input_path"`

	// Offset is the byte offset just past the last record included in a
	// successful flush.
	Offset int64 `json:"offset"`

	// LastFlushAt is the time of the last fully successful flush.
	LastFlushAt time.Time `json:"last_flush_at"`

	// Records is the running total of records flushed from this input.
	Records uint64 `json:"records"`
}

// UpdateAfterFlush records a successful flush up to offset.
func (s *State) UpdateAfterFlush(offset int64, records int) {
	s.Offset = offset
	s.Records += uint64(records)
	s.LastFlushAt = time.Now()
}
