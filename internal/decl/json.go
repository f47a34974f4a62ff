package decl

import (
	"encoding/json"
	"math"
)

// encoding/json rejects NaN and infinities, which appear in constants such
// as Float.NaN or Double.POSITIVE_INFINITY. They are written as the strings
// below and read back for float and double fields and annotation methods.
const (
	jsonNaN    = "NaN"
	jsonPosInf = "Infinity"
	jsonNegInf = "-Infinity"
)

func jsonValue(v any) any {
	switch x := v.(type) {
	case float32:
		if s, ok := nonFinite(float64(x)); ok {
			return s
		}
	case float64:
		if s, ok := nonFinite(x); ok {
			return s
		}
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonValue(item)
		}
		return out
	}
	return v
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return jsonNaN, true
	case math.IsInf(f, 1):
		return jsonPosInf, true
	case math.IsInf(f, -1):
		return jsonNegInf, true
	}
	return "", false
}

// restoreFloat turns a non-finite marker back into a float64 when descriptor
// is a float or double type.
func restoreFloat(v any, descriptor string) any {
	s, ok := v.(string)
	if !ok || (descriptor != "F" && descriptor != "D") {
		return v
	}
	switch s {
	case jsonNaN:
		return math.NaN()
	case jsonPosInf:
		return math.Inf(1)
	case jsonNegInf:
		return math.Inf(-1)
	}
	return v
}

func (f FieldDecl) MarshalJSON() ([]byte, error) {
	type plain FieldDecl
	return json.Marshal(struct {
		*plain
		ConstantValue any `json:"constantValue,omitempty"`
	}{plain: (*plain)(&f), ConstantValue: jsonValue(f.ConstantValue)})
}

func (f *FieldDecl) UnmarshalJSON(data []byte) error {
	type plain FieldDecl
	if err := json.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	f.ConstantValue = restoreFloat(f.ConstantValue, f.Descriptor)
	return nil
}

func (m MethodDecl) MarshalJSON() ([]byte, error) {
	type plain MethodDecl
	return json.Marshal(struct {
		*plain
		DefaultValue any `json:"defaultValue,omitempty"`
	}{plain: (*plain)(&m), DefaultValue: jsonValue(m.DefaultValue)})
}

func (m *MethodDecl) UnmarshalJSON(data []byte) error {
	type plain MethodDecl
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	m.DefaultValue = restoreFloat(m.DefaultValue, m.ReturnType)
	return nil
}

// MarshalJSON writes non-finite float elements as strings. Element types are
// not recorded, so they decode as strings.
func (p Properties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = jsonValue(v)
	}
	return json.Marshal(out)
}
