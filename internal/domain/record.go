package domain

// Field is one key/value pair of a Record. Keys are usually strings but the
// wire format allows any value as a map key.
type Field struct {
	Key   Value
	Value Value
}

// F builds a Field with a string key.
func F(key string, v Value) Field {
	return Field{Key: String(key), Value: v}
}

// Record is an ordered mapping. Field order is preserved through decoding,
// sanitizing and insertion.
type Record struct {
	fields []Field
}

// NewRecord creates a record from the given fields, in order.
func NewRecord(fields ...Field) Record {
	return Record{fields: fields}
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Fields returns the fields in order. The slice must not be modified.
func (r Record) Fields() []Field {
	return r.fields
}

// Get returns the value stored under a string key.
func (r Record) Get(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Key.kind == KindString && f.Key.s == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set stores v under a string key, replacing an existing field in place or
// appending a new one.
func (r *Record) Set(key string, v Value) {
	for i, f := range r.fields {
		if f.Key.kind == KindString && f.Key.s == key {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, F(key, v))
}

// Clone returns a shallow copy whose field slice can be modified
// independently of r.
func (r Record) Clone() Record {
	if r.fields == nil {
		return Record{}
	}
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return Record{fields: out}
}

// Equal reports whether both records have equal fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if !r.fields[i].Key.Equal(o.fields[i].Key) || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}
