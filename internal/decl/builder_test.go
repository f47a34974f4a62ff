package decl

import (
	"testing"

	"github.com/mvp-joe/apisummarizer/internal/classfile"
	cft "github.com/mvp-joe/apisummarizer/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the declaration builder:
// - Class header populates names, kind, supertypes, modifiers and version
// - Fields and methods are kept in input order with dotted exceptions and parameter names
// - Annotations attach to the class, the preceding field/method, or a parameter
// - Annotation element values convert to EnumValue, ClassValue, *Annotation and []any
// - A nested class takes its modifiers, outer class and simple name from its own InnerClasses entry
// - Kind is derived from the access flags
// - Result before class end is ErrIncomplete
// - Events before the header or after class end are ErrOutOfOrder

func TestBuild_ClassShape(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/Widget")
	b.AddInterface("java/io/Serializable").AddInterface("java/lang/Comparable")
	b.AddField(cft.AccPublic|cft.AccStatic|cft.AccFinal, "MAX", "I", b.ConstantValueAttr(b.Integer(42)))
	b.AddField(cft.AccPrivate, "name", "Ljava/lang/String;", b.SignatureAttr("Ljava/lang/String;"))
	b.AddMethod(cft.AccPublic, "<init>", "()V", b.CodeAttr(1, 1, []byte{0xB1}))
	b.AddMethod(cft.AccPublic, "resize", "(IJ)Ljava/util/List;",
		b.ExceptionsAttr("java/io/IOException", "java/lang/InterruptedException"),
		b.MethodParametersAttr(cft.MethodParam{Name: "width"}, cft.MethodParam{Name: "height"}),
	)
	b.AddAttribute(b.SourceFileAttr("Widget.java"))

	d, err := Build(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com.example.Widget", d.BinaryName)
	assert.Equal(t, "com.example", d.PackageName)
	assert.Equal(t, "Widget", d.SimpleName)
	assert.Equal(t, KindClass, d.Kind)
	assert.Equal(t, "java.lang.Object", d.SuperClass)
	assert.Equal(t, []string{"java.io.Serializable", "java.lang.Comparable"}, d.Interfaces)
	assert.Equal(t, []string{"public"}, d.Modifiers)
	assert.Equal(t, Version{Major: 52}, d.Version)
	assert.Equal(t, "Widget.java", d.SourceFile)

	require.Len(t, d.Fields, 2)
	assert.Equal(t, "MAX", d.Fields[0].Name)
	assert.Equal(t, int32(42), d.Fields[0].ConstantValue)
	assert.Equal(t, []string{"public", "static", "final"}, d.Fields[0].Modifiers)
	assert.Equal(t, "name", d.Fields[1].Name)
	assert.Equal(t, "Ljava/lang/String;", d.Fields[1].Signature)

	require.Len(t, d.Methods, 2)
	ctor := d.Methods[0]
	assert.True(t, ctor.IsConstructor())
	assert.Empty(t, ctor.Params)
	assert.Equal(t, "V", ctor.ReturnType)
	require.NotNil(t, ctor.Code)
	assert.Equal(t, 1, ctor.Code.Length)

	resize := d.Methods[1]
	assert.Equal(t, "Ljava/util/List;", resize.ReturnType)
	require.Len(t, resize.Params, 2)
	assert.Equal(t, &ParamDecl{Name: "width", Descriptor: "I"}, resize.Params[0])
	assert.Equal(t, &ParamDecl{Name: "height", Descriptor: "J"}, resize.Params[1])
	assert.Equal(t, []string{"java.io.IOException", "java.lang.InterruptedException"}, resize.Exceptions)
	assert.Nil(t, resize.Code)

	assert.Equal(t, d.Fields[0], d.Field("MAX"))
	assert.Nil(t, d.Field("missing"))
	assert.Len(t, d.MethodsNamed("resize"), 1)
}

func TestBuild_Annotations(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/Service")
	b.AddField(cft.AccPrivate, "repo", "Lcom/example/Repo;",
		b.AnnotationsAttr(true, cft.Ann{Type: "Ljavax/inject/Inject;"}),
	)
	b.AddMethod(cft.AccPublic, "find", "(Ljava/lang/String;I)V",
		b.AnnotationsAttr(true, cft.Ann{Type: "Ljava/lang/Deprecated;"}),
		b.ParameterAnnotationsAttr(true,
			[]cft.Ann{{Type: "Lcom/example/NotNull;"}},
			nil,
			[]cft.Ann{{Type: "Lcom/example/Extra;"}}, // beyond the descriptor
		),
	)
	b.AddAttribute(b.AnnotationsAttr(true, cft.Ann{
		Type: "Lcom/example/Config;",
		Elements: []cft.Elem{
			{Name: "name", Value: cft.StringValue("svc")},
			{Name: "retention", Value: cft.EnumValue("Ljava/lang/annotation/RetentionPolicy;", "RUNTIME")},
			{Name: "type", Value: cft.ClassValue("Ljava/lang/String;")},
			{Name: "meta", Value: cft.AnnotationValue(cft.Ann{
				Type:     "Lcom/example/Meta;",
				Elements: []cft.Elem{{Name: "level", Value: cft.IntValue('I', 2)}},
			})},
			{Name: "tags", Value: cft.ArrayValue(cft.StringValue("a"), cft.StringValue("b"))},
		},
	}))

	d, err := Build(b.Bytes())
	require.NoError(t, err)

	assert.True(t, d.Fields[0].Annotations.Has("javax.inject.Inject"))

	find := d.Methods[0]
	assert.True(t, find.Annotations.Has("java.lang.Deprecated"))
	assert.True(t, find.Deprecated, "@Deprecated marks the method deprecated")
	assert.True(t, find.Params[0].Annotations.Has("com.example.NotNull"))
	assert.Nil(t, find.Params[1].Annotations)

	props := d.Annotations["com.example.Config"]
	require.NotNil(t, props)
	assert.Equal(t, "svc", props["name"])
	assert.Equal(t, EnumValue{Type: "java.lang.annotation.RetentionPolicy", Name: "RUNTIME"}, props["retention"])
	assert.Equal(t, ClassValue{Descriptor: "Ljava/lang/String;"}, props["type"])
	assert.Equal(t, &Annotation{Type: "com.example.Meta", Properties: Properties{"level": int32(2)}}, props["meta"])
	assert.Equal(t, []any{"a", "b"}, props["tags"])
}

func TestBuild_NestedClassUsesOwnInnerClassEntry(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/Outer$Inner")
	b.Access = cft.AccSuper // the top-level flags never carry private or static
	b.AddAttribute(b.InnerClassesAttr(
		cft.InnerClassEntry{Name: "com/example/Outer$Inner", Outer: "com/example/Outer", InnerName: "Inner", Access: cft.AccPrivate | cft.AccStatic},
		cft.InnerClassEntry{Name: "com/example/Outer$Inner$Deep", Outer: "com/example/Outer$Inner", InnerName: "Deep", Access: cft.AccPublic},
	))

	d, err := Build(b.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com.example.Outer$Inner", d.BinaryName)
	assert.Equal(t, []string{"private", "static"}, d.Modifiers)
	assert.Equal(t, "com.example.Outer", d.Outer)
	assert.Equal(t, "Inner", d.SimpleName)
	require.Len(t, d.InnerClasses, 2)
	assert.Equal(t, "com.example.Outer$Inner$Deep", d.InnerClasses[1].Name)
	assert.Equal(t, []string{"public"}, d.InnerClasses[1].Modifiers)
}

func TestBuild_LocalClassOuterFromEnclosingMethod(t *testing.T) {
	t.Parallel()

	b := cft.New("com/example/Host$1")
	b.AddAttribute(b.EnclosingMethodAttr("com/example/Host", "run", "()V"))

	d, err := Build(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "com.example.Host", d.Outer)
}

func TestBuild_Kind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		access uint16
		want   Kind
	}{
		{cft.AccPublic | cft.AccSuper, KindClass},
		{cft.AccPublic | cft.AccInterface | cft.AccAbstract, KindInterface},
		{cft.AccPublic | cft.AccInterface | cft.AccAbstract | cft.AccAnnotation, KindAnnotation},
		{cft.AccPublic | cft.AccFinal | cft.AccSuper | cft.AccEnum, KindEnum},
	}

	for _, tt := range tests {
		b := cft.New("com/example/K")
		b.Access = tt.access
		d, err := Build(b.Bytes())
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Kind, "access 0x%04x", tt.access)
	}
}

func TestBuilder_ResultBeforeEnd(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	_, err := b.Result()
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, b.VisitClassHeader(&classfile.ClassHeader{Name: "a/B"}))
	_, err = b.Result()
	assert.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, b.VisitClassEnd(&classfile.ClassEnd{}))
	d, err := b.Result()
	require.NoError(t, err)
	assert.Equal(t, "a.B", d.BinaryName)
}

func TestBuilder_OutOfOrder(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	assert.ErrorIs(t, b.VisitField(&classfile.Field{Name: "x", Descriptor: "I"}), ErrOutOfOrder)
	assert.ErrorIs(t, b.VisitClassEnd(&classfile.ClassEnd{}), ErrOutOfOrder)

	require.NoError(t, b.VisitClassHeader(&classfile.ClassHeader{Name: "a/B"}))
	assert.ErrorIs(t, b.VisitClassHeader(&classfile.ClassHeader{Name: "a/C"}), ErrOutOfOrder)
	assert.ErrorIs(t, b.VisitAnnotation(&classfile.Annotation{Target: classfile.TargetField, Member: 0, Type: "LX;"}), ErrOutOfOrder)

	require.NoError(t, b.VisitClassEnd(&classfile.ClassEnd{}))
	assert.ErrorIs(t, b.VisitMethod(&classfile.Method{Name: "m", Descriptor: "()V"}), ErrOutOfOrder)
	assert.ErrorIs(t, b.VisitInnerClass(&classfile.InnerClass{Name: "a/B$C"}), ErrOutOfOrder)
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "java.util.Map$Entry", BinaryName("java/util/Map$Entry"))
	assert.Equal(t, "java.lang.Deprecated", DescriptorToBinaryName("Ljava/lang/Deprecated;"))
	assert.Equal(t, "[I", DescriptorToBinaryName("[I"))

	pkg, simple := SplitBinaryName("java.util.Map$Entry")
	assert.Equal(t, "java.util", pkg)
	assert.Equal(t, "Map$Entry", simple)

	pkg, simple = SplitBinaryName("Toplevel")
	assert.Equal(t, "", pkg)
	assert.Equal(t, "Toplevel", simple)
}
