package cascade

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is an ordered record accumulated while an input travels through the pipeline.
//
// A key written once holds the value as is. Writing the same key again promotes it to a
// []any list holding every value in call order.
type Result struct {
	keys     []string
	data     map[string]any
	promoted map[string]bool
	unnamed  int
}

func NewResult() *Result {
	return &Result{
		data:     make(map[string]any),
		promoted: make(map[string]bool),
	}
}

// NewResultFrom returns a result holding a shallow copy of the other result's current data.
func NewResultFrom(other *Result) *Result {
	r := NewResult()
	if other == nil {
		return r
	}

	r.keys = append(r.keys, other.keys...)
	r.unnamed = other.unnamed
	for _, k := range other.keys {
		v := other.data[k]
		if other.promoted[k] {
			v = copyList(v.([]any))
			r.promoted[k] = true
		}
		r.data[k] = v
	}

	return r
}

// Set stores value under key. An empty key is replaced by "unnamed{N}".
func (r *Result) Set(key string, value any) *Result {
	if key == "" {
		r.unnamed++
		key = fmt.Sprintf("unnamed%d", r.unnamed)
	}

	existing, ok := r.data[key]
	switch {
	case !ok:
		r.keys = append(r.keys, key)
		r.data[key] = value
	case r.promoted[key]:
		r.data[key] = append(existing.([]any), value)
	default:
		r.data[key] = []any{existing, value}
		r.promoted[key] = true
	}

	return r
}

func (r *Result) Get(key string, def any) any {
	if v, ok := r.data[key]; ok {
		return v
	}
	return def
}

func (r *Result) Has(key string) bool {
	_, ok := r.data[key]
	return ok
}

// Keys returns the keys in insertion order.
func (r *Result) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *Result) Len() int {
	return len(r.keys)
}

// ToMap returns a snapshot of the result. Promoted lists are copied.
func (r *Result) ToMap() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		v := r.data[k]
		if r.promoted[k] {
			v = copyList(v.([]any))
		}
		out[k] = v
	}
	return out
}

// MarshalJSON writes the result as a JSON object keeping insertion order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.data[k])
		if err != nil {
			return nil, fmt.Errorf("result key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func copyList(list []any) []any {
	return append(make([]any, 0, len(list)), list...)
}

// Results is an ordered collection of finished results.
type Results []*Result

func (rs Results) AllToMaps() []map[string]any {
	out := make([]map[string]any, len(rs))
	for i, r := range rs {
		out[i] = r.ToMap()
	}
	return out
}
