package schema

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Record is an ordered mapping of field name to value. Field order follows
// insertion order, which the solver keeps aligned with schema declaration
// order so that generation is reproducible.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{
		values: make(map[string]any),
	}
}

// RecordFromMap builds a record from a plain map. Field order follows the
// schema when provided, with any extra map keys appended alphabetically.
func RecordFromMap(m map[string]any, s *ObjectSchema) *Record {
	r := NewRecord()
	if s != nil {
		for i := range s.Fields {
			if v, ok := m[s.Fields[i].Name]; ok {
				r.Set(s.Fields[i].Name, v)
			}
		}
	}
	var extra []string
	for k := range m {
		if _, ok := r.values[strings.ToLower(k)]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		r.Set(k, m[k])
	}
	return r
}

// Set assigns a field value, preserving first-insertion order.
// Field names are case-insensitive, as in formulas.
func (r *Record) Set(name string, value any) {
	key := strings.ToLower(name)
	if _, ok := r.values[key]; !ok {
		r.names = append(r.names, name)
	}
	r.values[key] = value
}

// Get returns the value for a field and whether it is present.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[strings.ToLower(name)]
	return v, ok
}

// Delete removes a field from the record.
func (r *Record) Delete(name string) {
	key := strings.ToLower(name)
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, n := range r.names {
		if strings.EqualFold(n, name) {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields set.
func (r *Record) Len() int {
	return len(r.names)
}

// ToMap returns a plain map copy of the record.
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.names))
	for _, n := range r.names {
		out[n] = r.values[strings.ToLower(n)]
	}
	return out
}

// Clone returns a shallow copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		names:  make([]string, len(r.names)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.names, r.names)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[strings.ToLower(n)])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record. Go's map decoding
// does not preserve key order, so fields land alphabetically.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = *RecordFromMap(m, nil)
	return nil
}
