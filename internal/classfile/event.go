package classfile

// Event is one structural unit decoded from a class file. The set of
// variants is closed: ClassHeader, Field, Method, Annotation, InnerClass and
// ClassEnd.
type Event interface {
	event()
}

// Visitor consumes events pushed by Parse, one method per variant.
type Visitor interface {
	VisitClassHeader(h *ClassHeader) error
	VisitField(f *Field) error
	VisitMethod(m *Method) error
	VisitAnnotation(a *Annotation) error
	VisitInnerClass(ic *InnerClass) error
	VisitClassEnd(e *ClassEnd) error
}

// Accept dispatches e to the matching Visitor method.
func Accept(e Event, v Visitor) error {
	switch e := e.(type) {
	case *ClassHeader:
		return v.VisitClassHeader(e)
	case *Field:
		return v.VisitField(e)
	case *Method:
		return v.VisitMethod(e)
	case *Annotation:
		return v.VisitAnnotation(e)
	case *InnerClass:
		return v.VisitInnerClass(e)
	case *ClassEnd:
		return v.VisitClassEnd(e)
	}
	return nil
}

// ClassHeader carries everything before the field table. Names use the
// internal slash-separated form found in the class file.
type ClassHeader struct {
	MinorVersion uint16
	MajorVersion uint16
	Access       uint16
	Name         string
	SuperName    string // empty for java/lang/Object and module-info
	Interfaces   []string
}

// Field is one field_info entry together with the attributes that describe it.
type Field struct {
	Index         int
	Access        uint16
	Name          string
	Descriptor    string
	Signature     string
	ConstantValue any // nil when the field has no ConstantValue attribute
	Deprecated    bool
	Synthetic     bool
}

// Method is one method_info entry. Code holds only the location of the
// bytecode; instructions are not decoded.
type Method struct {
	Index             int
	Access            uint16
	Name              string
	Descriptor        string
	Signature         string
	Exceptions        []string
	Parameters        []MethodParameter // from MethodParameters, may be empty
	AnnotationDefault *ElementValue
	Code              *CodeRange
	Deprecated        bool
	Synthetic         bool
}

// MethodParameter is one MethodParameters entry.
type MethodParameter struct {
	Name   string // empty when the compiler did not record it
	Access uint16
}

// CodeRange locates a Code attribute body in the class file.
type CodeRange struct {
	Offset    int
	Length    int
	MaxStack  uint16
	MaxLocals uint16
}

// AnnotationTarget identifies what an Annotation event belongs to.
type AnnotationTarget int

const (
	TargetClass AnnotationTarget = iota
	TargetField
	TargetMethod
	TargetParameter
)

func (t AnnotationTarget) String() string {
	switch t {
	case TargetClass:
		return "class"
	case TargetField:
		return "field"
	case TargetMethod:
		return "method"
	case TargetParameter:
		return "parameter"
	}
	return "unknown"
}

// Annotation is one annotation instance. Member is the field or method index
// for field, method and parameter targets; Parameter is the parameter index.
type Annotation struct {
	Target    AnnotationTarget
	Member    int
	Parameter int
	Visible   bool
	Type      string // field descriptor, e.g. "Ljava/lang/Deprecated;"
	Elements  []ElementPair
}

// ElementPair is one name = value pair of an annotation.
type ElementPair struct {
	Name  string
	Value ElementValue
}

// ElementValue is an annotation element value. Tag is the element_value tag:
// one of BCDFIJSZs for constants, 'e' enum, 'c' class, '@' annotation, '[' array.
type ElementValue struct {
	Tag        byte
	Const      any
	EnumType   string
	EnumName   string
	Class      string
	Annotation *Annotation
	Array      []ElementValue
}

// InnerClass is one InnerClasses attribute entry.
type InnerClass struct {
	Name      string
	OuterName string // empty for local and anonymous classes
	InnerName string // empty for anonymous classes
	Access    uint16
}

// ClassEnd closes the class and carries the trailing class attributes that
// are not events of their own.
type ClassEnd struct {
	Signature       string
	SourceFile      string
	Deprecated      bool
	Synthetic       bool
	EnclosingClass  string
	EnclosingMethod string
}

func (*ClassHeader) event() {}
func (*Field) event()       {}
func (*Method) event()      {}
func (*Annotation) event()  {}
func (*InnerClass) event()  {}
func (*ClassEnd) event()    {}
