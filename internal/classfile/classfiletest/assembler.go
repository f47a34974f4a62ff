// Package classfiletest assembles class-file bytes for tests.
//
// The assembler interns constant pool entries as helpers are called, so
// attribute bodies can be built before the class is serialized:
//
//	b := classfiletest.New("com/example/Foo")
//	b.AddField(classfiletest.AccPublic, "x", "I")
//	b.AddMethod(classfiletest.AccPublic, "run", "()V", b.CodeAttr(1, 1, []byte{0xB1}))
//	data := b.Bytes()
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Access flag values used when assembling members.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// Attr is one raw attribute: the name is interned when the class is
// serialized.
type Attr struct {
	Name string
	Body []byte
}

// Member is a field_info or method_info entry.
type Member struct {
	Access     uint16
	Name       string
	Descriptor string
	Attrs      []Attr
}

// InnerClassEntry is one InnerClasses row. Empty Outer or InnerName encode
// as index 0.
type InnerClassEntry struct {
	Name      string
	Outer     string
	InnerName string
	Access    uint16
}

// MethodParam is one MethodParameters row.
type MethodParam struct {
	Name   string
	Access uint16
}

// Ann is an annotation to encode. Type is a field descriptor.
type Ann struct {
	Type     string
	Elements []Elem
}

// Elem is one element_value_pair.
type Elem struct {
	Name  string
	Value Value
}

// Value is an element_value. Use the constructor functions below.
type Value struct {
	Tag    byte
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Str    string
	Str2   string
	Ann    *Ann
	Array  []Value
}

func IntValue(tag byte, v int32) Value { return Value{Tag: tag, Int: v} }
func LongValue(v int64) Value          { return Value{Tag: 'J', Long: v} }
func FloatValue(v float32) Value       { return Value{Tag: 'F', Float: v} }
func DoubleValue(v float64) Value      { return Value{Tag: 'D', Double: v} }
func StringValue(s string) Value       { return Value{Tag: 's', Str: s} }
func EnumValue(typ, name string) Value { return Value{Tag: 'e', Str: typ, Str2: name} }
func ClassValue(desc string) Value     { return Value{Tag: 'c', Str: desc} }
func AnnotationValue(a Ann) Value      { return Value{Tag: '@', Ann: &a} }
func ArrayValue(items ...Value) Value  { return Value{Tag: '[', Array: items} }

// Builder assembles one class file.
type Builder struct {
	Major      uint16
	Minor      uint16
	Access     uint16
	This       string
	Super      string
	Interfaces []string

	Fields  []Member
	Methods []Member
	Attrs   []Attr

	pool      bytes.Buffer
	poolCount uint16
	utf8      map[string]uint16
	classes   map[string]uint16
}

// New returns a builder for a public class extending java/lang/Object,
// version 52.0.
func New(name string) *Builder {
	return &Builder{
		Major:     52,
		Access:    AccPublic | AccSuper,
		This:      name,
		Super:     "java/lang/Object",
		poolCount: 1,
		utf8:      map[string]uint16{},
		classes:   map[string]uint16{},
	}
}

func (b *Builder) next(slots uint16) uint16 {
	idx := b.poolCount
	b.poolCount += slots
	return idx
}

// Utf8 interns a CONSTANT_Utf8 entry. Strings are written as plain UTF-8,
// which matches modified UTF-8 for NUL-free BMP text.
func (b *Builder) Utf8(s string) uint16 {
	if idx, ok := b.utf8[s]; ok {
		return idx
	}
	b.pool.WriteByte(1)
	b.u2(&b.pool, uint16(len(s)))
	b.pool.WriteString(s)
	idx := b.next(1)
	b.utf8[s] = idx
	return idx
}

// RawUtf8 adds a CONSTANT_Utf8 entry with the given encoded bytes.
func (b *Builder) RawUtf8(raw []byte) uint16 {
	b.pool.WriteByte(1)
	b.u2(&b.pool, uint16(len(raw)))
	b.pool.Write(raw)
	return b.next(1)
}

// Class interns a CONSTANT_Class entry.
func (b *Builder) Class(name string) uint16 {
	if idx, ok := b.classes[name]; ok {
		return idx
	}
	nameIdx := b.Utf8(name)
	b.pool.WriteByte(7)
	b.u2(&b.pool, nameIdx)
	idx := b.next(1)
	b.classes[name] = idx
	return idx
}

func (b *Builder) Integer(v int32) uint16 {
	b.pool.WriteByte(3)
	b.u4(&b.pool, uint32(v))
	return b.next(1)
}

func (b *Builder) Float(v float32) uint16 {
	b.pool.WriteByte(4)
	b.u4(&b.pool, math.Float32bits(v))
	return b.next(1)
}

func (b *Builder) Long(v int64) uint16 {
	b.pool.WriteByte(5)
	b.u8(&b.pool, uint64(v))
	return b.next(2)
}

func (b *Builder) Double(v float64) uint16 {
	b.pool.WriteByte(6)
	b.u8(&b.pool, math.Float64bits(v))
	return b.next(2)
}

// StringConst adds a CONSTANT_String entry.
func (b *Builder) StringConst(s string) uint16 {
	idx := b.Utf8(s)
	b.pool.WriteByte(8)
	b.u2(&b.pool, idx)
	return b.next(1)
}

func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	b.pool.WriteByte(12)
	b.u2(&b.pool, n)
	b.u2(&b.pool, d)
	return b.next(1)
}

// MethodRef adds a CONSTANT_Methodref entry.
func (b *Builder) MethodRef(class, name, desc string) uint16 {
	c, nt := b.Class(class), b.NameAndType(name, desc)
	b.pool.WriteByte(10)
	b.u2(&b.pool, c)
	b.u2(&b.pool, nt)
	return b.next(1)
}

// RawConstant appends an entry with an arbitrary tag and payload.
func (b *Builder) RawConstant(tag byte, payload []byte) uint16 {
	b.pool.WriteByte(tag)
	b.pool.Write(payload)
	return b.next(1)
}

func (b *Builder) AddInterface(name string) *Builder {
	b.Interfaces = append(b.Interfaces, name)
	return b
}

func (b *Builder) AddField(access uint16, name, desc string, attrs ...Attr) *Builder {
	b.Fields = append(b.Fields, Member{Access: access, Name: name, Descriptor: desc, Attrs: attrs})
	return b
}

func (b *Builder) AddMethod(access uint16, name, desc string, attrs ...Attr) *Builder {
	b.Methods = append(b.Methods, Member{Access: access, Name: name, Descriptor: desc, Attrs: attrs})
	return b
}

func (b *Builder) AddAttribute(attrs ...Attr) *Builder {
	b.Attrs = append(b.Attrs, attrs...)
	return b
}

func (b *Builder) ConstantValueAttr(idx uint16) Attr {
	return Attr{Name: "ConstantValue", Body: be16(idx)}
}

func (b *Builder) SignatureAttr(sig string) Attr {
	return Attr{Name: "Signature", Body: be16(b.Utf8(sig))}
}

func (b *Builder) SourceFileAttr(name string) Attr {
	return Attr{Name: "SourceFile", Body: be16(b.Utf8(name))}
}

func DeprecatedAttr() Attr { return Attr{Name: "Deprecated"} }
func SyntheticAttr() Attr  { return Attr{Name: "Synthetic"} }

// CodeAttr builds a Code attribute with an empty exception table and no
// nested attributes.
func (b *Builder) CodeAttr(maxStack, maxLocals uint16, code []byte) Attr {
	var buf bytes.Buffer
	b.u2(&buf, maxStack)
	b.u2(&buf, maxLocals)
	b.u4(&buf, uint32(len(code)))
	buf.Write(code)
	b.u2(&buf, 0)
	b.u2(&buf, 0)
	return Attr{Name: "Code", Body: buf.Bytes()}
}

func (b *Builder) ExceptionsAttr(classes ...string) Attr {
	var buf bytes.Buffer
	b.u2(&buf, uint16(len(classes)))
	for _, c := range classes {
		b.u2(&buf, b.Class(c))
	}
	return Attr{Name: "Exceptions", Body: buf.Bytes()}
}

func (b *Builder) InnerClassesAttr(entries ...InnerClassEntry) Attr {
	var buf bytes.Buffer
	b.u2(&buf, uint16(len(entries)))
	for _, e := range entries {
		b.u2(&buf, b.Class(e.Name))
		b.u2(&buf, b.optionalClass(e.Outer))
		b.u2(&buf, b.optionalUtf8(e.InnerName))
		b.u2(&buf, e.Access)
	}
	return Attr{Name: "InnerClasses", Body: buf.Bytes()}
}

// EnclosingMethodAttr records the enclosing class and, when name is not
// empty, the enclosing method.
func (b *Builder) EnclosingMethodAttr(class, name, desc string) Attr {
	var buf bytes.Buffer
	b.u2(&buf, b.Class(class))
	if name == "" {
		b.u2(&buf, 0)
	} else {
		b.u2(&buf, b.NameAndType(name, desc))
	}
	return Attr{Name: "EnclosingMethod", Body: buf.Bytes()}
}

func (b *Builder) MethodParametersAttr(params ...MethodParam) Attr {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(params)))
	for _, p := range params {
		b.u2(&buf, b.optionalUtf8(p.Name))
		b.u2(&buf, p.Access)
	}
	return Attr{Name: "MethodParameters", Body: buf.Bytes()}
}

// AnnotationsAttr builds Runtime(In)VisibleAnnotations.
func (b *Builder) AnnotationsAttr(visible bool, anns ...Ann) Attr {
	name := "RuntimeInvisibleAnnotations"
	if visible {
		name = "RuntimeVisibleAnnotations"
	}
	var buf bytes.Buffer
	b.u2(&buf, uint16(len(anns)))
	for _, a := range anns {
		b.annotation(&buf, a)
	}
	return Attr{Name: name, Body: buf.Bytes()}
}

// ParameterAnnotationsAttr builds Runtime(In)VisibleParameterAnnotations
// with one annotation list per parameter.
func (b *Builder) ParameterAnnotationsAttr(visible bool, params ...[]Ann) Attr {
	name := "RuntimeInvisibleParameterAnnotations"
	if visible {
		name = "RuntimeVisibleParameterAnnotations"
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(len(params)))
	for _, anns := range params {
		b.u2(&buf, uint16(len(anns)))
		for _, a := range anns {
			b.annotation(&buf, a)
		}
	}
	return Attr{Name: name, Body: buf.Bytes()}
}

func (b *Builder) AnnotationDefaultAttr(v Value) Attr {
	var buf bytes.Buffer
	b.value(&buf, v)
	return Attr{Name: "AnnotationDefault", Body: buf.Bytes()}
}

func (b *Builder) annotation(buf *bytes.Buffer, a Ann) {
	b.u2(buf, b.Utf8(a.Type))
	b.u2(buf, uint16(len(a.Elements)))
	for _, e := range a.Elements {
		b.u2(buf, b.Utf8(e.Name))
		b.value(buf, e.Value)
	}
}

func (b *Builder) value(buf *bytes.Buffer, v Value) {
	buf.WriteByte(v.Tag)
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z':
		b.u2(buf, b.Integer(v.Int))
	case 'J':
		b.u2(buf, b.Long(v.Long))
	case 'F':
		b.u2(buf, b.Float(v.Float))
	case 'D':
		b.u2(buf, b.Double(v.Double))
	case 's':
		b.u2(buf, b.Utf8(v.Str))
	case 'e':
		b.u2(buf, b.Utf8(v.Str))
		b.u2(buf, b.Utf8(v.Str2))
	case 'c':
		b.u2(buf, b.Utf8(v.Str))
	case '@':
		b.annotation(buf, *v.Ann)
	case '[':
		b.u2(buf, uint16(len(v.Array)))
		for _, item := range v.Array {
			b.value(buf, item)
		}
	}
}

func (b *Builder) optionalClass(name string) uint16 {
	if name == "" {
		return 0
	}
	return b.Class(name)
}

func (b *Builder) optionalUtf8(s string) uint16 {
	if s == "" {
		return 0
	}
	return b.Utf8(s)
}

// Bytes serializes the class. Every name referenced by the class structure is
// interned first so the constant pool is complete before it is written.
func (b *Builder) Bytes() []byte {
	this := b.Class(b.This)
	super := b.optionalClass(b.Super)
	ifaces := make([]uint16, len(b.Interfaces))
	for i, name := range b.Interfaces {
		ifaces[i] = b.Class(name)
	}
	type resolved struct {
		name, desc uint16
	}
	intern := func(members []Member) []resolved {
		out := make([]resolved, len(members))
		for i, m := range members {
			out[i] = resolved{b.Utf8(m.Name), b.Utf8(m.Descriptor)}
			for _, a := range m.Attrs {
				b.Utf8(a.Name)
			}
		}
		return out
	}
	fields, methods := intern(b.Fields), intern(b.Methods)
	for _, a := range b.Attrs {
		b.Utf8(a.Name)
	}

	var out bytes.Buffer
	b.u4(&out, 0xCAFEBABE)
	b.u2(&out, b.Minor)
	b.u2(&out, b.Major)
	b.u2(&out, b.poolCount)
	out.Write(b.pool.Bytes())
	b.u2(&out, b.Access)
	b.u2(&out, this)
	b.u2(&out, super)
	b.u2(&out, uint16(len(ifaces)))
	for _, idx := range ifaces {
		b.u2(&out, idx)
	}
	writeMembers := func(members []Member, ids []resolved) {
		b.u2(&out, uint16(len(members)))
		for i, m := range members {
			b.u2(&out, m.Access)
			b.u2(&out, ids[i].name)
			b.u2(&out, ids[i].desc)
			b.attrs(&out, m.Attrs)
		}
	}
	writeMembers(b.Fields, fields)
	writeMembers(b.Methods, methods)
	b.attrs(&out, b.Attrs)
	return out.Bytes()
}

func (b *Builder) attrs(out *bytes.Buffer, attrs []Attr) {
	b.u2(out, uint16(len(attrs)))
	for _, a := range attrs {
		b.u2(out, b.utf8[a.Name])
		b.u4(out, uint32(len(a.Body)))
		out.Write(a.Body)
	}
}

func (b *Builder) u2(buf *bytes.Buffer, v uint16) { buf.Write(be16(v)) }

func (b *Builder) u4(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func (b *Builder) u8(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func be16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// MinimalInterface assembles an interface with no fields, the given abstract
// methods in order and one super-interface.
func MinimalInterface(name, superInterface string, methods ...string) []byte {
	b := New(name)
	b.Access = AccPublic | AccInterface | AccAbstract
	b.AddInterface(superInterface)
	for _, m := range methods {
		b.AddMethod(AccPublic|AccAbstract, m, "()V")
	}
	return b.Bytes()
}
