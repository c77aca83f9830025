package mongo

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bft-labs/mongoship/internal/domain"
)

// toDocuments converts records to BSON documents, stopping at the first
// record that cannot be represented.
func toDocuments(records []domain.Record) ([]interface{}, error) {
	docs := make([]interface{}, 0, len(records))
	for _, r := range records {
		d, err := toDocument(r, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func toDocument(r domain.Record, prefix string) (bson.D, error) {
	d := make(bson.D, 0, r.Len())
	for _, f := range r.Fields() {
		if f.Key.Kind() != domain.KindString {
			return nil, &domain.EncodingError{
				Reason: domain.TypeMismatch,
				Path:   prefix,
				Detail: "key is " + f.Key.Kind().String(),
			}
		}
		key := f.Key.AsString()
		path := prefix + key
		if err := checkKey(key, path); err != nil {
			return nil, err
		}
		v, err := toBSON(f.Value, path)
		if err != nil {
			return nil, err
		}
		d = append(d, bson.E{Key: key, Value: v})
	}
	return d, nil
}

func checkKey(key, path string) error {
	switch {
	case !utf8.ValidString(key):
		return &domain.EncodingError{Reason: domain.InvalidKey, Path: path, Detail: "not valid UTF-8"}
	case strings.HasPrefix(key, "$"):
		return &domain.EncodingError{Reason: domain.InvalidKey, Path: path, Detail: "starts with '$'"}
	case strings.Contains(key, "."):
		return &domain.EncodingError{Reason: domain.InvalidKey, Path: path, Detail: "contains '.'"}
	case strings.IndexByte(key, 0) >= 0:
		return &domain.EncodingError{Reason: domain.InvalidKey, Path: path, Detail: "contains NUL"}
	}
	return nil
}

func toBSON(v domain.Value, path string) (interface{}, error) {
	switch v.Kind() {
	case domain.KindNull:
		return nil, nil
	case domain.KindBool:
		return v.AsBool(), nil
	case domain.KindInt:
		return v.AsInt(), nil
	case domain.KindUint:
		// Beyond int64; Decimal128 keeps every digit.
		dec, err := primitive.ParseDecimal128(strconv.FormatUint(v.AsUint(), 10))
		if err != nil {
			return nil, &domain.EncodingError{Reason: domain.TypeMismatch, Path: path, Detail: err.Error()}
		}
		return dec, nil
	case domain.KindFloat:
		return v.AsFloat(), nil
	case domain.KindString:
		s := v.AsString()
		if !utf8.ValidString(s) {
			return nil, &domain.EncodingError{Reason: domain.InvalidString, Path: path}
		}
		return s, nil
	case domain.KindBytes:
		return primitive.Binary{Subtype: 0x00, Data: v.AsBytes()}, nil
	case domain.KindTime:
		return primitive.NewDateTimeFromTime(v.AsTime()), nil
	case domain.KindMap:
		return toDocument(v.AsMap(), path+".")
	case domain.KindArray:
		arr := v.AsArray()
		out := make(bson.A, 0, len(arr))
		for _, e := range arr {
			bv, err := toBSON(e, path)
			if err != nil {
				return nil, err
			}
			out = append(out, bv)
		}
		return out, nil
	default:
		return nil, &domain.EncodingError{Reason: domain.TypeMismatch, Path: path, Detail: "unknown kind"}
	}
}
