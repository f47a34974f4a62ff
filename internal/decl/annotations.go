package decl

import "github.com/mvp-joe/apisummarizer/internal/classfile"

// Annotations maps a dotted annotation type name to its element values.
type Annotations map[string]Properties

// Properties maps element names to values. Values are Go scalars for
// constants (int32, int64, float32, float64, bool, string, int8, int16),
// EnumValue, ClassValue, *Annotation for nested annotations and []any for
// arrays.
type Properties map[string]any

// EnumValue is an enum constant used as an annotation element.
type EnumValue struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// ClassValue is a class literal used as an annotation element. Descriptor is
// a return descriptor such as "Ljava/lang/String;" or "V".
type ClassValue struct {
	Descriptor string `json:"descriptor" yaml:"descriptor"`
}

// Annotation is an annotation nested inside another annotation.
type Annotation struct {
	Type       string     `json:"type" yaml:"type"`
	Properties Properties `json:"properties" yaml:"properties"`
}

func (a Annotations) add(typeDescriptor string, elements []classfile.ElementPair) Annotations {
	if a == nil {
		a = Annotations{}
	}
	a[DescriptorToBinaryName(typeDescriptor)] = properties(elements)
	return a
}

// Has reports whether an annotation with the dotted type name is present.
func (a Annotations) Has(binaryName string) bool {
	_, ok := a[binaryName]
	return ok
}

func properties(elements []classfile.ElementPair) Properties {
	props := make(Properties, len(elements))
	for _, e := range elements {
		props[e.Name] = elementValue(e.Value)
	}
	return props
}

func elementValue(v classfile.ElementValue) any {
	switch v.Tag {
	case 'e':
		return EnumValue{Type: DescriptorToBinaryName(v.EnumType), Name: v.EnumName}
	case 'c':
		return ClassValue{Descriptor: v.Class}
	case '@':
		return &Annotation{
			Type:       DescriptorToBinaryName(v.Annotation.Type),
			Properties: properties(v.Annotation.Elements),
		}
	case '[':
		items := make([]any, len(v.Array))
		for i, item := range v.Array {
			items[i] = elementValue(item)
		}
		return items
	default:
		return v.Const
	}
}
