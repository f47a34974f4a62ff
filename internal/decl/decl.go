// Package decl holds the declaration model produced from one class file and
// the Builder that assembles it from structural events.
package decl

// Kind classifies a declaration.
type Kind string

const (
	KindClass      Kind = "CLASS"
	KindInterface  Kind = "INTERFACE"
	KindEnum       Kind = "ENUM"
	KindAnnotation Kind = "ANNOTATION"
)

// Version is the class file version.
type Version struct {
	Major uint16 `json:"major" yaml:"major"`
	Minor uint16 `json:"minor" yaml:"minor"`
}

// ClassDecl is the structural summary of one class, interface, enum or
// annotation type. It is immutable once returned by Builder.Result.
type ClassDecl struct {
	BinaryName   string            `json:"binaryName" yaml:"binaryName"`
	PackageName  string            `json:"packageName" yaml:"packageName"`
	SimpleName   string            `json:"simpleName" yaml:"simpleName"`
	Kind         Kind              `json:"kind" yaml:"kind"`
	SuperClass   string            `json:"superClass,omitempty" yaml:"superClass,omitempty"`
	Interfaces   []string          `json:"interfaces" yaml:"interfaces"`
	Access       uint16            `json:"access" yaml:"access"`
	Modifiers    []string          `json:"modifiers" yaml:"modifiers"`
	Signature    string            `json:"signature,omitempty" yaml:"signature,omitempty"`
	Outer        string            `json:"outer,omitempty" yaml:"outer,omitempty"`
	SourceFile   string            `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
	Deprecated   bool              `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Version      Version           `json:"version" yaml:"version"`
	Fields       []*FieldDecl      `json:"fields" yaml:"fields"`
	Methods      []*MethodDecl     `json:"methods" yaml:"methods"`
	InnerClasses []*InnerClassDecl `json:"innerClasses,omitempty" yaml:"innerClasses,omitempty"`
	Annotations  Annotations       `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// FieldDecl is one declared field.
type FieldDecl struct {
	Name          string      `json:"name" yaml:"name"`
	Descriptor    string      `json:"descriptor" yaml:"descriptor"`
	Access        uint16      `json:"access" yaml:"access"`
	Modifiers     []string    `json:"modifiers" yaml:"modifiers"`
	Signature     string      `json:"signature,omitempty" yaml:"signature,omitempty"`
	ConstantValue any         `json:"constantValue,omitempty" yaml:"constantValue,omitempty"`
	Annotations   Annotations `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Deprecated    bool        `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// MethodDecl is one declared method or constructor.
type MethodDecl struct {
	Name         string       `json:"name" yaml:"name"`
	Descriptor   string       `json:"descriptor" yaml:"descriptor"`
	Access       uint16       `json:"access" yaml:"access"`
	Modifiers    []string     `json:"modifiers" yaml:"modifiers"`
	Params       []*ParamDecl `json:"params" yaml:"params"`
	ReturnType   string       `json:"returnType" yaml:"returnType"`
	Exceptions   []string     `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	Signature    string       `json:"signature,omitempty" yaml:"signature,omitempty"`
	Annotations  Annotations  `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	DefaultValue any          `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Deprecated   bool         `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Code         *CodeRange   `json:"code,omitempty" yaml:"code,omitempty"`
}

// IsConstructor reports whether the method is an instance initializer.
func (m *MethodDecl) IsConstructor() bool {
	return m.Name == "<init>"
}

// ParamDecl is one formal parameter. Name is empty unless the class was
// compiled with parameter names.
type ParamDecl struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Descriptor  string      `json:"descriptor" yaml:"descriptor"`
	Annotations Annotations `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// CodeRange is the opaque location of a method body in the source bytes.
type CodeRange struct {
	Offset    int    `json:"offset" yaml:"offset"`
	Length    int    `json:"length" yaml:"length"`
	MaxStack  uint16 `json:"maxStack" yaml:"maxStack"`
	MaxLocals uint16 `json:"maxLocals" yaml:"maxLocals"`
}

// InnerClassDecl is one InnerClasses entry, names dotted.
type InnerClassDecl struct {
	Name       string   `json:"name" yaml:"name"`
	Outer      string   `json:"outer,omitempty" yaml:"outer,omitempty"`
	SimpleName string   `json:"simpleName,omitempty" yaml:"simpleName,omitempty"`
	Access     uint16   `json:"access" yaml:"access"`
	Modifiers  []string `json:"modifiers" yaml:"modifiers"`
}

// Field returns the first field with the given name.
func (c *ClassDecl) Field(name string) *FieldDecl {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// MethodsNamed returns every overload with the given name, in declaration order.
func (c *ClassDecl) MethodsNamed(name string) []*MethodDecl {
	var out []*MethodDecl
	for _, m := range c.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// HasModifier reports whether mod is one of the class modifiers.
func (c *ClassDecl) HasModifier(mod string) bool {
	for _, m := range c.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}
