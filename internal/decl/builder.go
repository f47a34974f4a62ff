package decl

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/apisummarizer/internal/classfile"
)

var (
	// ErrIncomplete is returned by Result before the class-end event.
	ErrIncomplete = errors.New("class declaration incomplete")

	// ErrOutOfOrder reports an event before the class header or after the
	// class end, or one that refers to a member that was never declared.
	ErrOutOfOrder = errors.New("structural event out of order")
)

type builderState int

const (
	stateEmpty builderState = iota
	stateOpen
	stateClosed
)

// Builder accumulates the events of exactly one class file into a ClassDecl.
// It implements classfile.Visitor.
type Builder struct {
	state        builderState
	decl         *ClassDecl
	internalName string
}

var _ classfile.Visitor = (*Builder)(nil)

// NewBuilder returns a builder waiting for a class header.
func NewBuilder() *Builder {
	return &Builder{}
}

// Result returns the finished declaration, or ErrIncomplete if the class-end
// event has not been seen.
func (b *Builder) Result() (*ClassDecl, error) {
	if b.state != stateClosed {
		return nil, ErrIncomplete
	}
	return b.decl, nil
}

func (b *Builder) requireOpen(event string) error {
	switch b.state {
	case stateEmpty:
		return fmt.Errorf("%w: %s before class header", ErrOutOfOrder, event)
	case stateClosed:
		return fmt.Errorf("%w: %s after class end", ErrOutOfOrder, event)
	}
	return nil
}

func (b *Builder) VisitClassHeader(h *classfile.ClassHeader) error {
	if b.state != stateEmpty {
		return fmt.Errorf("%w: second class header %s", ErrOutOfOrder, h.Name)
	}
	name := BinaryName(h.Name)
	pkg, simple := SplitBinaryName(name)
	interfaces := make([]string, len(h.Interfaces))
	for i, iface := range h.Interfaces {
		interfaces[i] = BinaryName(iface)
	}
	b.decl = &ClassDecl{
		BinaryName:  name,
		PackageName: pkg,
		SimpleName:  simple,
		Kind:        kindOf(h.Access),
		SuperClass:  BinaryName(h.SuperName),
		Interfaces:  interfaces,
		Access:      h.Access,
		Modifiers:   classfile.Modifiers(h.Access, classfile.ClassFlags),
		Version:     Version{Major: h.MajorVersion, Minor: h.MinorVersion},
		Fields:      []*FieldDecl{},
		Methods:     []*MethodDecl{},
	}
	b.internalName = h.Name
	b.state = stateOpen
	return nil
}

func kindOf(access uint16) Kind {
	switch {
	case access&classfile.AccAnnotation != 0:
		return KindAnnotation
	case access&classfile.AccInterface != 0:
		return KindInterface
	case access&classfile.AccEnum != 0:
		return KindEnum
	default:
		return KindClass
	}
}

func (b *Builder) VisitField(f *classfile.Field) error {
	if err := b.requireOpen("field " + f.Name); err != nil {
		return err
	}
	b.decl.Fields = append(b.decl.Fields, &FieldDecl{
		Name:          f.Name,
		Descriptor:    f.Descriptor,
		Access:        f.Access,
		Modifiers:     classfile.Modifiers(f.Access, classfile.FieldFlags),
		Signature:     f.Signature,
		ConstantValue: f.ConstantValue,
		Deprecated:    f.Deprecated,
	})
	return nil
}

func (b *Builder) VisitMethod(m *classfile.Method) error {
	if err := b.requireOpen("method " + m.Name); err != nil {
		return err
	}
	params, ret, err := classfile.SplitMethodDescriptor(m.Descriptor)
	if err != nil {
		return err
	}
	md := &MethodDecl{
		Name:       m.Name,
		Descriptor: m.Descriptor,
		Access:     m.Access,
		Modifiers:  classfile.Modifiers(m.Access, classfile.MethodFlags),
		Params:     make([]*ParamDecl, len(params)),
		ReturnType: ret,
		Signature:  m.Signature,
		Deprecated: m.Deprecated,
	}
	for i, p := range params {
		md.Params[i] = &ParamDecl{Descriptor: p}
		if i < len(m.Parameters) {
			md.Params[i].Name = m.Parameters[i].Name
		}
	}
	if len(m.Exceptions) > 0 {
		md.Exceptions = make([]string, len(m.Exceptions))
		for i, e := range m.Exceptions {
			md.Exceptions[i] = BinaryName(e)
		}
	}
	if m.AnnotationDefault != nil {
		md.DefaultValue = elementValue(*m.AnnotationDefault)
	}
	if m.Code != nil {
		md.Code = &CodeRange{
			Offset:    m.Code.Offset,
			Length:    m.Code.Length,
			MaxStack:  m.Code.MaxStack,
			MaxLocals: m.Code.MaxLocals,
		}
	}
	b.decl.Methods = append(b.decl.Methods, md)
	return nil
}

func (b *Builder) VisitAnnotation(a *classfile.Annotation) error {
	if err := b.requireOpen("annotation " + a.Type); err != nil {
		return err
	}
	d := b.decl
	switch a.Target {
	case classfile.TargetClass:
		d.Annotations = d.Annotations.add(a.Type, a.Elements)
	case classfile.TargetField:
		if a.Member < 0 || a.Member >= len(d.Fields) {
			return fmt.Errorf("%w: annotation %s for undeclared field #%d", ErrOutOfOrder, a.Type, a.Member)
		}
		f := d.Fields[a.Member]
		f.Annotations = f.Annotations.add(a.Type, a.Elements)
	case classfile.TargetMethod, classfile.TargetParameter:
		if a.Member < 0 || a.Member >= len(d.Methods) {
			return fmt.Errorf("%w: annotation %s for undeclared method #%d", ErrOutOfOrder, a.Type, a.Member)
		}
		m := d.Methods[a.Member]
		if a.Target == classfile.TargetMethod {
			m.Annotations = m.Annotations.add(a.Type, a.Elements)
			return nil
		}
		// The parameter annotation table may disagree with the descriptor
		// for constructors with synthetic parameters; extras are dropped.
		if a.Parameter < len(m.Params) {
			p := m.Params[a.Parameter]
			p.Annotations = p.Annotations.add(a.Type, a.Elements)
		}
	}
	return nil
}

func (b *Builder) VisitInnerClass(ic *classfile.InnerClass) error {
	if err := b.requireOpen("inner class " + ic.Name); err != nil {
		return err
	}
	d := b.decl
	d.InnerClasses = append(d.InnerClasses, &InnerClassDecl{
		Name:       BinaryName(ic.Name),
		Outer:      BinaryName(ic.OuterName),
		SimpleName: ic.InnerName,
		Access:     ic.Access,
		Modifiers:  classfile.Modifiers(ic.Access, classfile.InnerClassFlags),
	})

	// The entry describing this class itself carries the source-level flags
	// of a nested class.
	if ic.Name == b.internalName {
		d.Access = ic.Access
		d.Modifiers = classfile.Modifiers(ic.Access, classfile.InnerClassFlags)
		d.Outer = BinaryName(ic.OuterName)
		if ic.InnerName != "" {
			d.SimpleName = ic.InnerName
		}
	}
	return nil
}

func (b *Builder) VisitClassEnd(e *classfile.ClassEnd) error {
	if err := b.requireOpen("class end"); err != nil {
		return err
	}
	d := b.decl
	d.Signature = e.Signature
	d.SourceFile = e.SourceFile
	d.Deprecated = e.Deprecated || d.Annotations.Has(deprecatedAnnotation)
	if d.Outer == "" && e.EnclosingClass != "" {
		d.Outer = BinaryName(e.EnclosingClass)
	}
	for _, f := range d.Fields {
		f.Deprecated = f.Deprecated || f.Annotations.Has(deprecatedAnnotation)
	}
	for _, m := range d.Methods {
		m.Deprecated = m.Deprecated || m.Annotations.Has(deprecatedAnnotation)
	}
	b.state = stateClosed
	return nil
}

const deprecatedAnnotation = "java.lang.Deprecated"

// Build decodes data and returns its declaration. It is the one-shot form of
// classfile.Parse with a fresh Builder.
func Build(data []byte) (*ClassDecl, error) {
	b := NewBuilder()
	if err := classfile.Parse(data, b); err != nil {
		return nil, err
	}
	return b.Result()
}
