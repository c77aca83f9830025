package codec

import (
	"fmt"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/bft-labs/mongoship/internal/domain"
)

func writeRecord(w *msgp.Writer, rec domain.Record) error {
	if err := w.WriteMapHeader(uint32(rec.Len())); err != nil {
		return err
	}
	for _, f := range rec.Fields() {
		if err := writeValue(w, f.Key); err != nil {
			return err
		}
		if err := writeValue(w, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(w *msgp.Writer, v domain.Value) error {
	switch v.Kind() {
	case domain.KindNull:
		return w.WriteNil()
	case domain.KindBool:
		return w.WriteBool(v.AsBool())
	case domain.KindInt:
		return w.WriteInt64(v.AsInt())
	case domain.KindUint:
		return w.WriteUint64(v.AsUint())
	case domain.KindFloat:
		return w.WriteFloat64(v.AsFloat())
	case domain.KindString:
		return w.WriteString(v.AsString())
	case domain.KindBytes:
		return w.WriteBytes(v.AsBytes())
	case domain.KindTime:
		return w.WriteTime(v.AsTime())
	case domain.KindMap:
		return writeRecord(w, v.AsMap())
	case domain.KindArray:
		arr := v.AsArray()
		if err := w.WriteArrayHeader(uint32(len(arr))); err != nil {
			return err
		}
		for _, e := range arr {
			if err := writeValue(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("codec: unsupported value kind %s", v.Kind())
	}
}

func readRecord(r *msgp.Reader) (domain.Record, error) {
	sz, err := r.ReadMapHeader()
	if err != nil {
		return domain.Record{}, err
	}
	fields := make([]domain.Field, 0, min(int(sz), maxPrealloc))
	for i := uint32(0); i < sz; i++ {
		k, err := readValue(r)
		if err != nil {
			return domain.Record{}, err
		}
		v, err := readValue(r)
		if err != nil {
			return domain.Record{}, err
		}
		fields = append(fields, domain.Field{Key: k, Value: v})
	}
	return domain.NewRecord(fields...), nil
}

func readValue(r *msgp.Reader) (domain.Value, error) {
	typ, err := r.NextType()
	if err != nil {
		return domain.Value{}, err
	}
	switch typ {
	case msgp.NilType:
		return domain.Null(), r.ReadNil()
	case msgp.BoolType:
		b, err := r.ReadBool()
		return domain.Bool(b), err
	case msgp.IntType:
		i, err := r.ReadInt64()
		return domain.Int(i), err
	case msgp.UintType:
		u, err := r.ReadUint64()
		return domain.UintValue(u), err
	case msgp.Float32Type:
		f, err := r.ReadFloat32()
		return domain.Float(float64(f)), err
	case msgp.Float64Type:
		f, err := r.ReadFloat64()
		return domain.Float(f), err
	case msgp.StrType:
		s, err := r.ReadString()
		return domain.String(s), err
	case msgp.BinType:
		b, err := r.ReadBytes(nil)
		return domain.Bytes(b), err
	case msgp.MapType:
		rec, err := readRecord(r)
		return domain.Map(rec), err
	case msgp.ArrayType:
		sz, err := r.ReadArrayHeader()
		if err != nil {
			return domain.Value{}, err
		}
		arr := make([]domain.Value, 0, min(int(sz), maxPrealloc))
		for i := uint32(0); i < sz; i++ {
			e, err := readValue(r)
			if err != nil {
				return domain.Value{}, err
			}
			arr = append(arr, e)
		}
		return domain.Array(arr...), nil
	case msgp.TimeType:
		t, err := r.ReadTime()
		return domain.Time(t), err
	case msgp.ExtensionType:
		et := &eventTime{}
		if err := r.ReadExtension(et); err != nil {
			return domain.Value{}, err
		}
		return domain.Time(et.t), nil
	default:
		return domain.Value{}, fmt.Errorf("unsupported msgpack type %s", typ)
	}
}

// writeTimestamp writes the entry time as an event time extension, falling
// back to the msgp time type outside the extension's range.
func writeTimestamp(w *msgp.Writer, ts time.Time) error {
	if fitsEventTime(ts) {
		return w.WriteExtension(&eventTime{t: ts})
	}
	return w.WriteTime(ts)
}

// readTimestamp accepts the event time extension, the msgp time type and
// plain integer or float seconds.
func readTimestamp(r *msgp.Reader) (time.Time, error) {
	v, err := readValue(r)
	if err != nil {
		return time.Time{}, err
	}
	switch v.Kind() {
	case domain.KindTime, domain.KindInt, domain.KindFloat:
		if t, ok := asTime(v); ok {
			return t, nil
		}
	case domain.KindUint:
		return time.Time{}, fmt.Errorf("timestamp %d out of range", v.AsUint())
	}
	return time.Time{}, fmt.Errorf("timestamp is %s", v.Kind())
}
