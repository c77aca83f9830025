package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/tinylib/msgp/msgp"
)

// eventTimeExtension is the msgpack extension type used by the fluentd
// forward protocol for nanosecond timestamps.
const eventTimeExtension int8 = 0

// eventTime encodes a timestamp as 8 bytes: big-endian uint32 seconds
// followed by big-endian uint32 nanoseconds. Only times for which
// fitsEventTime holds can be represented.
type eventTime struct {
	t time.Time
}

// fitsEventTime reports whether t lies between 1970 and early 2106.
func fitsEventTime(t time.Time) bool {
	sec := t.Unix()
	return sec >= 0 && sec <= math.MaxUint32
}

var _ msgp.Extension = (*eventTime)(nil)

func (e *eventTime) ExtensionType() int8 { return eventTimeExtension }

func (e *eventTime) Len() int { return 8 }

func (e *eventTime) MarshalBinaryTo(b []byte) error {
	binary.BigEndian.PutUint32(b[0:4], uint32(e.t.Unix()))
	binary.BigEndian.PutUint32(b[4:8], uint32(e.t.Nanosecond()))
	return nil
}

func (e *eventTime) UnmarshalBinary(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("event time: want 8 bytes, got %d", len(b))
	}
	sec := binary.BigEndian.Uint32(b[0:4])
	nsec := binary.BigEndian.Uint32(b[4:8])
	e.t = time.Unix(int64(sec), int64(nsec))
	return nil
}
