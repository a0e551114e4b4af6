package protocol

import (
	"strconv"
	"time"
)

// Field is a single `key: value` line of a response.
// Data is only set for the binary field, in which case Value holds the
// announced length.
type Field struct {
	Key   string
	Value string
	Data  []byte
}

// IsBinary reports whether the field carries a raw payload.
func (f Field) IsBinary() bool {
	return f.Data != nil
}

// Record is an ordered, string-keyed mapping of response fields.
//
// Setting an existing key overwrites its value in place: the last write wins
// and the key keeps the position of its first occurrence.
//
// The zero value is ready to use.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{}
}

func (r *Record) set(f Field) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[f.Key]; ok {
		r.fields[i] = f
		return
	}
	r.index[f.Key] = len(r.fields)
	r.fields = append(r.fields, f)
}

// Set stores a string value under key.
func (r *Record) Set(key, value string) {
	r.set(Field{Key: key, Value: value})
}

// SetBinary stores a raw payload under key.
func (r *Record) SetBinary(key string, data []byte) {
	if data == nil {
		data = []byte{}
	}
	r.set(Field{Key: key, Value: strconv.Itoa(len(data)), Data: data})
}

// Len returns the number of distinct keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[key]
	return ok
}

// Field returns the field stored under key.
func (r *Record) Field(key string) (Field, bool) {
	if r == nil {
		return Field{}, false
	}
	i, ok := r.index[key]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Get returns the string value stored under key.
// For a binary field the value is the payload length.
func (r *Record) Get(key string) (string, bool) {
	f, ok := r.Field(key)
	return f.Value, ok
}

// String returns the value stored under key, or "" when absent.
func (r *Record) String(key string) string {
	v, _ := r.Get(key)
	return v
}

// Int returns the value under key coerced to an int.
// ok is false when the key is missing or not an integer.
func (r *Record) Int(key string) (int, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Int64 returns the value under key coerced to an int64.
func (r *Record) Int64(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float returns the value under key coerced to a float64.
func (r *Record) Float(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool returns the value under key as a protocol boolean ("1" or "0").
func (r *Record) Bool(key string) (bool, bool) {
	v, ok := r.Get(key)
	if !ok {
		return false, false
	}
	switch v {
	case "1":
		return true, true
	case "0":
		return false, true
	default:
		return false, false
	}
}

// Duration returns the value under key, a number of seconds, as a duration.
func (r *Record) Duration(key string) (time.Duration, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

// Binary returns the raw payload of the binary field, or nil.
func (r *Record) Binary() []byte {
	f, ok := r.Field(BinaryKey)
	if !ok {
		return nil
	}
	return f.Data
}

// Keys returns the keys in order of first occurrence.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the fields in order of first occurrence.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return append([]Field(nil), r.fields...)
}

// Map returns the string values keyed by field name.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, r.Len())
	if r == nil {
		return m
	}
	for _, f := range r.fields {
		m[f.Key] = f.Value
	}
	return m
}
