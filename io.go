package cascade

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
)

// Input is the value a step is invoked with, optionally carrying the result built so far.
type Input struct {
	Value  any
	Result *Result
}

func NewInput(value any, result *Result) Input {
	return Input{Value: value, Result: result}
}

// Output is a single value produced by a step.
type Output struct {
	Value  any
	Result *Result

	keyName string
	key     string
	keyed   bool
}

func NewOutput(value any, result *Result) *Output {
	return &Output{Value: value, Result: result}
}

func (o *Output) ToInput() Input {
	return Input{Value: o.Value, Result: o.Result}
}

// Key returns the dedup key of the output value. Scalars are stringified. For maps, a
// non-empty name selects a member; everything else is identified by a content hash.
func (o *Output) Key(name string) string {
	if o.keyed && o.keyName == name {
		return o.key
	}

	o.key = valueKey(o.Value, name)
	o.keyName = name
	o.keyed = true

	return o.key
}

var hashBuffers = NewPool[*bytes.Buffer](bufferFactory{})

func valueKey(value any, name string) string {
	if isScalar(value) {
		return stringify(value)
	}

	if name != "" {
		if m, ok := value.(map[string]any); ok {
			if member, ok := m[name]; ok {
				if isScalar(member) {
					return stringify(member)
				}
				return contentHash(member)
			}
		}
	}

	return contentHash(value)
}

func isScalar(value any) bool {
	if value == nil {
		return true
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return false
	default:
		return true
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// contentHash hashes the canonical JSON form of value; encoding/json sorts map keys.
func contentHash(value any) string {
	buf := hashBuffers.Get()
	defer hashBuffers.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		buf.Reset()
		fmt.Fprintf(buf, "%#v", value)
	}

	sum := md5.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
