// Package codec converts between (time, record) pairs and the msgpack chunk
// format handed around by the buffering layer.
//
// A chunk is a plain concatenation of msgpack arrays, each holding exactly
// two elements: the timestamp and the record map.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/bft-labs/mongoship/internal/domain"
)

// DefaultTimeKey is the record field time injection writes to.
const DefaultTimeKey = "time"

// maxPrealloc caps slice preallocation driven by untrusted headers.
const maxPrealloc = 1024

// Options controls decoding.
type Options struct {
	// InjectTime sets TimeKey on every decoded record.
	InjectTime bool

	// TimeKey is the field name used by InjectTime.
	TimeKey string
}

// Codec encodes and decodes chunks. It is safe for concurrent use.
type Codec struct {
	opts Options
}

// New creates a codec with the given options.
func New(opts Options) *Codec {
	if opts.TimeKey == "" {
		opts.TimeKey = DefaultTimeKey
	}
	return &Codec{opts: opts}
}

// Encode serializes one pair. Record content is not validated.
func (c *Codec) Encode(ts time.Time, rec domain.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteArrayHeader(2); err != nil {
		return nil, err
	}
	if err := writeTimestamp(w, ts); err != nil {
		return nil, err
	}
	if err := writeRecord(w, rec); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode returns a lazy decoder over a chunk.
func (c *Codec) Decode(chunk []byte) *Decoder {
	return &Decoder{
		r:    msgp.NewReader(bytes.NewReader(chunk)),
		opts: c.opts,
	}
}

// DecodeAll decodes a whole chunk into a batch.
func (c *Codec) DecodeAll(chunk []byte) (*domain.Batch, error) {
	d := c.Decode(chunk)
	b := domain.NewBatch(0)
	for {
		e, err := d.Next()
		if errors.Is(err, io.EOF) {
			return b, nil
		}
		if err != nil {
			return nil, err
		}
		b.Add(e)
	}
}

// Decoder yields the entries of one chunk in order.
type Decoder struct {
	r    *msgp.Reader
	opts Options
	n    int
}

// Next returns the next entry, or io.EOF after the last one.
// Any other error wraps domain.ErrMalformedBatch.
func (d *Decoder) Next() (domain.Entry, error) {
	if _, err := d.r.NextType(); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Entry{}, io.EOF
		}
		return domain.Entry{}, d.malformed(err)
	}

	sz, err := d.r.ReadArrayHeader()
	if err != nil {
		return domain.Entry{}, d.malformed(err)
	}
	if sz != 2 {
		return domain.Entry{}, d.malformed(fmt.Errorf("entry has %d elements, want 2", sz))
	}

	ts, err := readTimestamp(d.r)
	if err != nil {
		return domain.Entry{}, d.malformed(err)
	}

	typ, err := d.r.NextType()
	if err != nil {
		return domain.Entry{}, d.malformed(err)
	}
	if typ != msgp.MapType {
		return domain.Entry{}, d.malformed(fmt.Errorf("record is %s, want map", typ))
	}
	rec, err := readRecord(d.r)
	if err != nil {
		return domain.Entry{}, d.malformed(err)
	}

	if d.opts.InjectTime {
		rec = injectTime(rec, d.opts.TimeKey, ts)
	}

	d.n++
	return domain.Entry{Time: ts, Record: rec}, nil
}

func (d *Decoder) malformed(err error) error {
	return fmt.Errorf("%w: entry %d: %v", domain.ErrMalformedBatch, d.n, err)
}

// injectTime sets key to a time value. An existing time, numeric or RFC 3339
// value under key wins over the entry timestamp.
func injectTime(rec domain.Record, key string, ts time.Time) domain.Record {
	t := ts
	if v, ok := rec.Get(key); ok {
		if existing, ok := asTime(v); ok {
			t = existing
		}
	}
	out := rec.Clone()
	out.Set(key, domain.Time(t))
	return out
}

func asTime(v domain.Value) (time.Time, bool) {
	switch v.Kind() {
	case domain.KindTime:
		return v.AsTime(), true
	case domain.KindInt:
		return time.Unix(v.AsInt(), 0), true
	case domain.KindFloat:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)), true
	case domain.KindString:
		t, err := time.Parse(time.RFC3339Nano, v.AsString())
		return t, err == nil
	default:
		return time.Time{}, false
	}
}
