package export

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	cft "github.com/mvp-joe/apisummarizer/internal/classfile/classfiletest"
	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() map[string]*decl.ClassDecl {
	return map[string]*decl.ClassDecl{
		"com.example.B": {
			BinaryName:  "com.example.B",
			PackageName: "com.example",
			SimpleName:  "B",
			Kind:        decl.KindClass,
			SuperClass:  "java.lang.Object",
			Interfaces:  []string{},
			Modifiers:   []string{"public"},
			Version:     decl.Version{Major: 61},
			Fields: []*decl.FieldDecl{
				{Name: "MAX", Descriptor: "I", Modifiers: []string{"public", "static", "final"}, ConstantValue: int32(7)},
			},
			Methods: []*decl.MethodDecl{
				{Name: "run", Descriptor: "()V", ReturnType: "V", Modifiers: []string{"public"}, Params: []*decl.ParamDecl{}},
			},
			Annotations: decl.Annotations{
				"com.example.Tag": decl.Properties{"value": "x"},
			},
		},
		"com.example.A": {
			BinaryName:  "com.example.A",
			PackageName: "com.example",
			SimpleName:  "A",
			Kind:        decl.KindInterface,
			Interfaces:  []string{},
			Modifiers:   []string{"public", "interface", "abstract"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"cbor", FormatCBOR, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatYAML, FormatForPath("out/summary.yaml", FormatJSON))
	assert.Equal(t, FormatCBOR, FormatForPath("summary.cbor", FormatJSON))
	assert.Equal(t, FormatJSON, FormatForPath("summary", FormatJSON))
	assert.Equal(t, FormatYAML, FormatForPath("summary.txt", FormatYAML))
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, sampleSummary()))

			got, err := DecodeSummary(&buf, format)
			require.NoError(t, err)
			require.Len(t, got, 2)

			b := got["com.example.B"]
			require.NotNil(t, b)
			assert.Equal(t, decl.KindClass, b.Kind)
			assert.Equal(t, "java.lang.Object", b.SuperClass)
			assert.Equal(t, decl.Version{Major: 61}, b.Version)
			require.Len(t, b.Fields, 1)
			assert.EqualValues(t, 7, b.Fields[0].ConstantValue)
			require.Len(t, b.Methods, 1)
			assert.Equal(t, "run", b.Methods[0].Name)
			assert.True(t, b.Annotations.Has("com.example.Tag"))
			assert.Equal(t, "x", b.Annotations["com.example.Tag"]["value"])
		})
	}
}

// floatConstants builds a class with non-finite float and double constants,
// an annotation method defaulting to NaN and an infinite annotation element.
func floatConstants(t *testing.T) map[string]*decl.ClassDecl {
	t.Helper()

	b := cft.New("java/lang/Float")
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "NaN", "F", b.ConstantValueAttr(b.Float(float32(math.NaN()))))
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "POSITIVE_INFINITY", "F", b.ConstantValueAttr(b.Float(float32(math.Inf(1)))))
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "NEGATIVE_INFINITY", "D", b.ConstantValueAttr(b.Double(math.Inf(-1))))
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "MAX", "F", b.ConstantValueAttr(b.Float(1.5)))
	b.AddMethod(cft.AccPublic|cft.AccAbstract, "threshold", "()F", b.AnnotationDefaultAttr(cft.FloatValue(float32(math.NaN()))))
	b.AddAttribute(b.AnnotationsAttr(true, cft.Ann{
		Type:     "Lcom/example/Range;",
		Elements: []cft.Elem{{Name: "max", Value: cft.ArrayValue(cft.DoubleValue(math.Inf(1)), cft.DoubleValue(2))}},
	}))

	d, err := decl.Build(b.Bytes())
	require.NoError(t, err)
	return map[string]*decl.ClassDecl{d.BinaryName: d}
}

func TestEncodeDecode_NonFiniteFloats(t *testing.T) {
	t.Parallel()

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, floatConstants(t)))

			got, err := DecodeSummary(&buf, format)
			require.NoError(t, err)
			c := got["java.lang.Float"]
			require.NotNil(t, c)

			constant := func(name string) float64 {
				f := c.Field(name)
				require.NotNil(t, f, name)
				v, ok := f.ConstantValue.(float64)
				require.True(t, ok, "%s decoded as %T", name, f.ConstantValue)
				return v
			}
			assert.True(t, math.IsNaN(constant("NaN")))
			assert.True(t, math.IsInf(constant("POSITIVE_INFINITY"), 1))
			assert.True(t, math.IsInf(constant("NEGATIVE_INFINITY"), -1))
			assert.Equal(t, 1.5, constant("MAX"))

			methods := c.MethodsNamed("threshold")
			require.Len(t, methods, 1)
			def, ok := methods[0].DefaultValue.(float64)
			require.True(t, ok, "default decoded as %T", methods[0].DefaultValue)
			assert.True(t, math.IsNaN(def))

			assert.True(t, c.Annotations.Has("com.example.Range"))
		})
	}
}

func TestEncode_NonFiniteAnnotationElementsAsJSONStrings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, floatConstants(t)))

	var raw map[string]struct {
		Fields      []map[string]any          `json:"fields"`
		Annotations map[string]map[string]any `json:"annotations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	c := raw["java.lang.Float"]
	assert.Equal(t, "NaN", c.Fields[0]["constantValue"])
	assert.Equal(t, "Infinity", c.Fields[1]["constantValue"])
	assert.Equal(t, []any{"Infinity", 2.0}, c.Annotations["com.example.Range"]["max"])
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	for _, format := range Formats {
		var a, b bytes.Buffer
		require.NoError(t, Encode(&a, format, sampleSummary()))
		require.NoError(t, Encode(&b, format, sampleSummary()))
		assert.Equal(t, a.Bytes(), b.Bytes(), "format %s", format)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, sampleSummary()))
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"com.example.A"`)), bytes.Index(buf.Bytes(), []byte(`"com.example.B"`)))
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := Encode(&bytes.Buffer{}, "xml", sampleSummary())
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = DecodeSummary(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "summary.yaml")
	require.NoError(t, WriteFile(path, FormatYAML, sampleSummary()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := DecodeSummary(f, FormatYAML)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be gone")
}
