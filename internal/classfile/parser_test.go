package classfile

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	cft "github.com/mvp-joe/apisummarizer/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the class file parser:
// - A class with fields, methods and class attributes yields events in file order
// - Field and method attributes are decoded (constants, exceptions, parameters, code range)
// - Annotation element values of every tag are decoded
// - Parse and Events produce identical event sequences
// - Stopping the Events iteration early does not decode further
// - Magic and version validation
// - Truncated input yields *TruncationError with section and offset
// - Unknown constant tag yields *UnsupportedFeatureError
// - Attribute length mismatches and trailing bytes yield *FormatError
// - Unknown attributes are skipped
// - A minimal interface decodes to header, two methods and class end

// recorder collects every event pushed by Parse.
type recorder struct {
	events []Event
}

func (r *recorder) add(e Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) VisitClassHeader(h *ClassHeader) error { return r.add(h) }
func (r *recorder) VisitField(f *Field) error             { return r.add(f) }
func (r *recorder) VisitMethod(m *Method) error           { return r.add(m) }
func (r *recorder) VisitAnnotation(a *Annotation) error   { return r.add(a) }
func (r *recorder) VisitInnerClass(ic *InnerClass) error  { return r.add(ic) }
func (r *recorder) VisitClassEnd(e *ClassEnd) error       { return r.add(e) }

func collect(t *testing.T, data []byte) []Event {
	t.Helper()
	var events []Event
	for e, err := range Events(data) {
		require.NoError(t, err)
		events = append(events, e)
	}
	return events
}

func kinds(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = fmt.Sprintf("%T", e)
	}
	return out
}

var widgetCode = []byte{0x2A, 0xB7, 0x00, 0x01, 0xB1}

func widgetClass() []byte {
	b := cft.New("com/example/Widget")
	b.AddInterface("java/io/Serializable")
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "MAX", "I", b.ConstantValueAttr(b.Integer(42)))
	b.AddField(cft.AccPrivate, "flag", "Z",
		b.ConstantValueAttr(b.Integer(1)),
		b.AnnotationsAttr(true, cft.Ann{Type: "Ljavax/annotation/Nullable;"}),
	)
	b.AddMethod(cft.AccPublic, "<init>", "()V", b.CodeAttr(1, 1, widgetCode))
	b.AddMethod(cft.AccPublic, "run", "(ILjava/lang/String;)J",
		b.ExceptionsAttr("java/io/IOException"),
		b.MethodParametersAttr(cft.MethodParam{Name: "count"}, cft.MethodParam{Name: "label", Access: cft.AccFinal}),
		b.ParameterAnnotationsAttr(false, nil, []cft.Ann{{Type: "Lcom/example/NotNull;"}}),
		b.SignatureAttr("(ILjava/lang/String;)J"),
		cft.DeprecatedAttr(),
	)
	b.AddAttribute(
		b.SourceFileAttr("Widget.java"),
		b.AnnotationsAttr(true, cft.Ann{Type: "Ljava/lang/Deprecated;"}),
		b.InnerClassesAttr(cft.InnerClassEntry{
			Name: "com/example/Widget$Part", Outer: "com/example/Widget", InnerName: "Part",
			Access: cft.AccPublic | cft.AccStatic,
		}),
		b.SignatureAttr("Ljava/lang/Object;Ljava/io/Serializable;"),
	)
	return b.Bytes()
}

func TestEvents_FileOrder(t *testing.T) {
	t.Parallel()

	events := collect(t, widgetClass())

	assert.Equal(t, []string{
		"*classfile.ClassHeader",
		"*classfile.Field",
		"*classfile.Field",
		"*classfile.Annotation",
		"*classfile.Method",
		"*classfile.Method",
		"*classfile.Annotation",
		"*classfile.Annotation",
		"*classfile.InnerClass",
		"*classfile.ClassEnd",
	}, kinds(events))

	h := events[0].(*ClassHeader)
	assert.Equal(t, "com/example/Widget", h.Name)
	assert.Equal(t, "java/lang/Object", h.SuperName)
	assert.Equal(t, []string{"java/io/Serializable"}, h.Interfaces)
	assert.Equal(t, uint16(52), h.MajorVersion)

	fieldAnn := events[3].(*Annotation)
	assert.Equal(t, TargetField, fieldAnn.Target)
	assert.Equal(t, 1, fieldAnn.Member)
	assert.True(t, fieldAnn.Visible)
	assert.Equal(t, "Ljavax/annotation/Nullable;", fieldAnn.Type)

	paramAnn := events[6].(*Annotation)
	assert.Equal(t, TargetParameter, paramAnn.Target)
	assert.Equal(t, 1, paramAnn.Member)
	assert.Equal(t, 1, paramAnn.Parameter)
	assert.False(t, paramAnn.Visible)

	classAnn := events[7].(*Annotation)
	assert.Equal(t, TargetClass, classAnn.Target)
	assert.Equal(t, "Ljava/lang/Deprecated;", classAnn.Type)

	ic := events[8].(*InnerClass)
	assert.Equal(t, "com/example/Widget$Part", ic.Name)
	assert.Equal(t, "com/example/Widget", ic.OuterName)
	assert.Equal(t, "Part", ic.InnerName)

	end := events[9].(*ClassEnd)
	assert.Equal(t, "Widget.java", end.SourceFile)
	assert.Equal(t, "Ljava/lang/Object;Ljava/io/Serializable;", end.Signature)
}

func TestEvents_MemberAttributes(t *testing.T) {
	t.Parallel()

	data := widgetClass()
	events := collect(t, data)

	maxField := events[1].(*Field)
	assert.Equal(t, "MAX", maxField.Name)
	assert.Equal(t, 0, maxField.Index)
	assert.Equal(t, int32(42), maxField.ConstantValue)

	flagField := events[2].(*Field)
	assert.Equal(t, true, flagField.ConstantValue, "Z constants decode as bool")

	ctor := events[4].(*Method)
	require.NotNil(t, ctor.Code)
	assert.Equal(t, len(widgetCode), ctor.Code.Length)
	assert.Equal(t, uint16(1), ctor.Code.MaxStack)
	assert.Equal(t, widgetCode, data[ctor.Code.Offset:ctor.Code.Offset+ctor.Code.Length])

	run := events[5].(*Method)
	assert.Equal(t, 1, run.Index)
	assert.Nil(t, run.Code)
	assert.Equal(t, []string{"java/io/IOException"}, run.Exceptions)
	assert.Equal(t, []MethodParameter{{Name: "count"}, {Name: "label", Access: AccFinal}}, run.Parameters)
	assert.Equal(t, "(ILjava/lang/String;)J", run.Signature)
	assert.True(t, run.Deprecated)
}

func TestEvents_ElementValues(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/Annotated")
	b.AddMethod(cft.AccPublic|cft.AccAbstract, "level", "()I", b.AnnotationDefaultAttr(cft.IntValue('I', 3)))
	b.AddAttribute(b.AnnotationsAttr(true, cft.Ann{
		Type: "Lcom/example/Config;",
		Elements: []cft.Elem{
			{Name: "b", Value: cft.IntValue('B', -1)},
			{Name: "c", Value: cft.IntValue('C', 'x')},
			{Name: "i", Value: cft.IntValue('I', 7)},
			{Name: "s", Value: cft.IntValue('S', 300)},
			{Name: "z", Value: cft.IntValue('Z', 0)},
			{Name: "j", Value: cft.LongValue(1 << 40)},
			{Name: "f", Value: cft.FloatValue(1.5)},
			{Name: "d", Value: cft.DoubleValue(2.25)},
			{Name: "str", Value: cft.StringValue("hi")},
			{Name: "e", Value: cft.EnumValue("Ljava/lang/annotation/RetentionPolicy;", "RUNTIME")},
			{Name: "cls", Value: cft.ClassValue("Ljava/lang/String;")},
			{Name: "nested", Value: cft.AnnotationValue(cft.Ann{Type: "Lcom/example/Inner;"})},
			{Name: "arr", Value: cft.ArrayValue(cft.IntValue('I', 1), cft.IntValue('I', 2))},
		},
	}))

	events := collect(t, b.Bytes())
	require.Len(t, events, 4)

	level := events[1].(*Method)
	require.NotNil(t, level.AnnotationDefault)
	assert.Equal(t, int32(3), level.AnnotationDefault.Const)

	a := events[2].(*Annotation)
	got := map[string]ElementValue{}
	for _, p := range a.Elements {
		got[p.Name] = p.Value
	}
	assert.Equal(t, int8(-1), got["b"].Const)
	assert.Equal(t, "x", got["c"].Const)
	assert.Equal(t, int32(7), got["i"].Const)
	assert.Equal(t, int16(300), got["s"].Const)
	assert.Equal(t, false, got["z"].Const)
	assert.Equal(t, int64(1<<40), got["j"].Const)
	assert.Equal(t, float32(1.5), got["f"].Const)
	assert.Equal(t, 2.25, got["d"].Const)
	assert.Equal(t, "hi", got["str"].Const)
	assert.Equal(t, "Ljava/lang/annotation/RetentionPolicy;", got["e"].EnumType)
	assert.Equal(t, "RUNTIME", got["e"].EnumName)
	assert.Equal(t, "Ljava/lang/String;", got["cls"].Class)
	require.NotNil(t, got["nested"].Annotation)
	assert.Equal(t, "Lcom/example/Inner;", got["nested"].Annotation.Type)
	require.Len(t, got["arr"].Array, 2)
	assert.Equal(t, int32(2), got["arr"].Array[1].Const)
}

func TestParse_MatchesEvents(t *testing.T) {
	t.Parallel()

	data := widgetClass()
	rec := &recorder{}
	require.NoError(t, Parse(data, rec))
	assert.Equal(t, collect(t, data), rec.events)
}

func TestParse_VisitorErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	v := &stopAfterHeader{err: boom}
	err := Parse(widgetClass(), v)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, v.calls)
}

type stopAfterHeader struct {
	recorder
	calls int
	err   error
}

func (s *stopAfterHeader) VisitClassHeader(*ClassHeader) error {
	s.calls++
	return s.err
}

func TestEvents_EarlyBreak(t *testing.T) {
	t.Parallel()

	n := 0
	for e, err := range Events(widgetClass()) {
		require.NoError(t, err)
		require.IsType(t, &ClassHeader{}, e)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestEvents_MinimalInterface(t *testing.T) {
	t.Parallel()

	data := cft.MinimalInterface("com/example/Shape", "java/lang/Comparable", "area", "perimeter")
	events := collect(t, data)

	require.Equal(t, []string{
		"*classfile.ClassHeader",
		"*classfile.Method",
		"*classfile.Method",
		"*classfile.ClassEnd",
	}, kinds(events))

	h := events[0].(*ClassHeader)
	assert.NotZero(t, h.Access&AccInterface)
	assert.Equal(t, []string{"java/lang/Comparable"}, h.Interfaces)
	assert.Equal(t, "area", events[1].(*Method).Name)
	assert.Equal(t, "perimeter", events[2].(*Method).Name)
}

func TestEvents_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		major  uint16
		minor  uint16
		wantOK bool
	}{
		{"java 1.1", 45, 3, true},
		{"java 8", 52, 0, true},
		{"java 25", 69, 0, true},
		{"java 17 preview", 61, 0xFFFF, true},
		{"too old", 44, 0, false},
		{"too new", 70, 0, false},
		{"preview before 12", 52, 0xFFFF, false},
		{"bad minor after 12", 61, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := cft.New("com/example/V")
			b.Major, b.Minor = tt.major, tt.minor
			err := Parse(b.Bytes(), &recorder{})
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, 4, fe.Offset)
		})
	}
}

func TestEvents_BadMagic(t *testing.T) {
	t.Parallel()

	data := cft.New("com/example/M").Bytes()
	data[0] = 0xCB

	var fe *FormatError
	require.ErrorAs(t, Parse(data, &recorder{}), &fe)
	assert.Equal(t, 0, fe.Offset)
}

func TestEvents_TruncatedAfterHeader(t *testing.T) {
	t.Parallel()

	data := widgetClass()[:8]

	var got []Event
	var lastErr error
	for e, err := range Events(data) {
		if err != nil {
			lastErr = err
			continue
		}
		got = append(got, e)
	}

	assert.Empty(t, got)
	var trunc *TruncationError
	require.ErrorAs(t, lastErr, &trunc)
	assert.Equal(t, "constant pool", trunc.Section)
	assert.Equal(t, 8, trunc.Offset)
}

func TestEvents_TruncatedEverywhere(t *testing.T) {
	t.Parallel()

	data := widgetClass()
	for cut := 0; cut < len(data); cut++ {
		var sawErr bool
		for _, err := range Events(data[:cut]) {
			require.False(t, sawErr, "event after error at cut %d", cut)
			if err != nil {
				sawErr = true
				var trunc *TruncationError
				require.ErrorAs(t, err, &trunc, "cut %d", cut)
			}
		}
		require.True(t, sawErr, "cut %d parsed without error", cut)
	}
}

func TestEvents_UnknownConstantTag(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/U")
	b.RawConstant(2, nil)

	var ue *UnsupportedFeatureError
	require.ErrorAs(t, Parse(b.Bytes(), &recorder{}), &ue)
	assert.Contains(t, ue.Feature, "tag 2")
}

func TestEvents_FormatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() []byte
	}{
		{"trailing bytes", func() []byte {
			return append(cft.New("com/example/T").Bytes(), 0x00)
		}},
		{"attribute shorter than content", func() []byte {
			b := cft.New("com/example/T")
			b.AddMethod(cft.AccPublic, "m", "()V", cft.Attr{Name: "Signature", Body: []byte{0x00}})
			return b.Bytes()
		}},
		{"attribute longer than content", func() []byte {
			b := cft.New("com/example/T")
			idx := b.Utf8("Ljava/util/List;")
			b.AddField(cft.AccPublic, "f", "Ljava/util/List;", cft.Attr{Name: "Signature", Body: []byte{byte(idx >> 8), byte(idx), 0x00}})
			return b.Bytes()
		}},
		{"constant index out of range", func() []byte {
			b := cft.New("com/example/T")
			b.AddField(cft.AccPublic, "f", "I", b.ConstantValueAttr(999))
			return b.Bytes()
		}},
		{"wrong constant type", func() []byte {
			b := cft.New("com/example/T")
			b.AddField(cft.AccPublic, "f", "I", cft.Attr{Name: "Signature", Body: []byte{0x00, byte(b.Class("x/Y"))}})
			return b.Bytes()
		}},
		{"invalid field descriptor", func() []byte {
			b := cft.New("com/example/T")
			b.AddField(cft.AccPublic, "f", "Q")
			return b.Bytes()
		}},
		{"invalid method descriptor", func() []byte {
			b := cft.New("com/example/T")
			b.AddMethod(cft.AccPublic, "m", "(I")
			return b.Bytes()
		}},
		{"malformed utf8 constant", func() []byte {
			b := cft.New("com/example/T")
			b.RawUtf8([]byte{0xFF})
			return b.Bytes()
		}},
		{"annotation nesting too deep", func() []byte {
			b := cft.New("com/example/T")
			ann := cft.Ann{Type: "Lcom/example/Leaf;"}
			for i := 0; i < maxAnnotationNesting+2; i++ {
				ann = cft.Ann{Type: "Lcom/example/Wrap;", Elements: []cft.Elem{{Name: "value", Value: cft.AnnotationValue(ann)}}}
			}
			b.AddAttribute(b.AnnotationsAttr(true, ann))
			return b.Bytes()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var fe *FormatError
			err := Parse(tt.build(), &recorder{})
			require.ErrorAs(t, err, &fe, "got %v", err)
		})
	}
}

func TestEvents_UnknownAttributeSkipped(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/K")
	b.AddField(cft.AccPublic, "f", "I", cft.Attr{Name: "org.example.Custom", Body: []byte{1, 2, 3}})
	b.AddAttribute(cft.Attr{Name: "BootstrapMethods", Body: bytes.Repeat([]byte{0xFF}, 9)})

	events := collect(t, b.Bytes())
	assert.Equal(t, []string{"*classfile.ClassHeader", "*classfile.Field", "*classfile.ClassEnd"}, kinds(events))
}
