// Package sanitize rewrites records so that every key and string is
// acceptable to the document store: keys are strings that neither start
// with '$' nor contain '.' or NUL, and text is valid UTF-8.
//
// All functions are total and idempotent.
package sanitize

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/bft-labs/mongoship/internal/domain"
)

const (
	reservedPrefix = '$'
	pathSeparator  = '.'
	nul            = 0
	replacement    = '_'
)

// Records sanitizes every record of a batch. The input is not modified.
func Records(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		out[i] = Record(r)
	}
	return out
}

// Record sanitizes all keys and values of r, preserving field order.
func Record(r domain.Record) domain.Record {
	fields := make([]domain.Field, 0, r.Len())
	for _, f := range r.Fields() {
		v := Value(f.Value)
		fields = append(fields, domain.Field{Key: domain.String(Key(f.Key)), Value: v})
	}
	return domain.NewRecord(fields...)
}

// Value sanitizes a single value. Maps and arrays are handled recursively,
// strings are re-encoded when invalid, anything else is returned unchanged.
func Value(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindMap:
		return domain.Map(Record(v.AsMap()))
	case domain.KindArray:
		src := v.AsArray()
		out := make([]domain.Value, len(src))
		for i, e := range src {
			out[i] = Value(e)
		}
		return domain.Array(out...)
	case domain.KindString:
		return domain.String(Text(v.AsString()))
	default:
		return v
	}
}

// Key converts a map key to a valid field name. Non-string keys are
// stringified first; leading '$' characters, every '.' and every NUL
// become '_'.
func Key(k domain.Value) string {
	s := Text(stringify(k))
	if !strings.HasPrefix(s, string(reservedPrefix)) && strings.IndexByte(s, pathSeparator) < 0 && strings.IndexByte(s, nul) < 0 {
		return s
	}

	b := []byte(s)
	leading := true
	for i, c := range b {
		switch {
		case leading && c == reservedPrefix:
			b[i] = replacement
		case c == pathSeparator || c == nul:
			leading = false
			b[i] = replacement
		default:
			leading = false
		}
	}
	return string(b)
}

// Text returns s unchanged when it is valid UTF-8. Otherwise it decodes s
// as UTF-8, replacing every byte that cannot be mapped with U+FFFD.
func Text(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil || !utf8.ValidString(out) {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return out
}

// stringify renders a key value as text.
func stringify(v domain.Value) string {
	switch v.Kind() {
	case domain.KindNull:
		return ""
	case domain.KindBool:
		return strconv.FormatBool(v.AsBool())
	case domain.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case domain.KindUint:
		return strconv.FormatUint(v.AsUint(), 10)
	case domain.KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case domain.KindString:
		return v.AsString()
	case domain.KindBytes:
		return string(v.AsBytes())
	case domain.KindTime:
		return v.AsTime().Format(time.RFC3339Nano)
	case domain.KindArray:
		parts := make([]string, len(v.AsArray()))
		for i, e := range v.AsArray() {
			parts[i] = stringify(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case domain.KindMap:
		parts := make([]string, 0, v.AsMap().Len())
		for _, f := range v.AsMap().Fields() {
			parts = append(parts, stringify(f.Key)+":"+stringify(f.Value))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return ""
	}
}
