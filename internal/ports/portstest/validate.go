package portstest

import (
	"strings"
	"unicode/utf8"

	"github.com/bft-labs/mongoship/internal/domain"
)

// Validate reports the first value of r that a strict document store would
// refuse: non-string keys, keys starting with '$' or containing '.' or NUL,
// and text that is not valid UTF-8. These are the rules the MongoDB adapter
// enforces.
func Validate(r domain.Record) error {
	return validateRecord(r, "")
}

func validateRecord(r domain.Record, prefix string) error {
	for _, f := range r.Fields() {
		if f.Key.Kind() != domain.KindString {
			return &domain.EncodingError{Reason: domain.TypeMismatch, Path: prefix, Detail: "non-string key"}
		}
		key := f.Key.AsString()
		path := prefix + key
		if strings.HasPrefix(key, "$") || strings.Contains(key, ".") || strings.IndexByte(key, 0) >= 0 || !utf8.ValidString(key) {
			return &domain.EncodingError{Reason: domain.InvalidKey, Path: path}
		}
		if err := validateValue(f.Value, path); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(v domain.Value, path string) error {
	switch v.Kind() {
	case domain.KindString:
		if !utf8.ValidString(v.AsString()) {
			return &domain.EncodingError{Reason: domain.InvalidString, Path: path}
		}
	case domain.KindMap:
		return validateRecord(v.AsMap(), path+".")
	case domain.KindArray:
		for _, e := range v.AsArray() {
			if err := validateValue(e, path); err != nil {
				return err
			}
		}
	}
	return nil
}
