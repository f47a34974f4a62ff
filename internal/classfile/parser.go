package classfile

import (
	"errors"
	"iter"
)

const (
	// Magic is the first four bytes of every class file.
	Magic = 0xCAFEBABE

	// MinMajorVersion and MaxMajorVersion bound the accepted class file
	// versions: JDK 1.1 (45) through Java 25 (69).
	MinMajorVersion = 45
	MaxMajorVersion = 69

	previewMinorVersion  = 0xFFFF
	firstPreviewVersion  = 56
	maxAnnotationNesting = 64
)

// errStopped unwinds the parser when the consumer of Events stops early.
var errStopped = errors.New("event iteration stopped")

// Parse decodes data and pushes each event to v in file order. It stops at
// the first decode error or the first error returned by v.
func Parse(data []byte, v Visitor) error {
	for e, err := range Events(data) {
		if err != nil {
			return err
		}
		if err := Accept(e, v); err != nil {
			return err
		}
	}
	return nil
}

// Events returns a lazy sequence of the events in data. Decoding advances only
// as the sequence is consumed. A decode error is yielded once as the final
// element with a nil Event.
func Events(data []byte) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		p := &parser{r: newReader(data), yield: yield}
		if err := p.run(); err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

type parser struct {
	r     *reader
	cp    *ConstantPool
	yield func(Event, error) bool
}

func (p *parser) emit(e Event) error {
	if !p.yield(e, nil) {
		return errStopped
	}
	return nil
}

func (p *parser) run() error {
	r := p.r
	r.section = "header"
	magic, err := r.u4()
	if err != nil {
		return err
	}
	if magic != Magic {
		return formatErrorf(0, "bad magic number 0x%08X", magic)
	}
	minor, err := r.u2()
	if err != nil {
		return err
	}
	major, err := r.u2()
	if err != nil {
		return err
	}
	if err := checkVersion(major, minor); err != nil {
		return err
	}

	if p.cp, err = readConstantPool(r); err != nil {
		return err
	}

	header, err := p.readClassHeader()
	if err != nil {
		return err
	}
	header.MajorVersion = major
	header.MinorVersion = minor
	if err := p.emit(header); err != nil {
		return err
	}

	r.section = "fields"
	fieldCount, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := p.readField(i); err != nil {
			return err
		}
	}

	r.section = "methods"
	methodCount, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(methodCount); i++ {
		if err := p.readMethod(i); err != nil {
			return err
		}
	}

	end, err := p.readClassAttributes()
	if err != nil {
		return err
	}
	if r.remaining() > 0 {
		return formatErrorf(r.pos(), "%d trailing bytes after class attributes", r.remaining())
	}
	return p.emit(end)
}

func checkVersion(major, minor uint16) error {
	if major < MinMajorVersion || major > MaxMajorVersion {
		return formatErrorf(4, "unsupported class file version %d.%d (supported major versions %d-%d)",
			major, minor, MinMajorVersion, MaxMajorVersion)
	}
	if major >= firstPreviewVersion && minor != 0 && minor != previewMinorVersion {
		return formatErrorf(4, "invalid minor version %d for major version %d", minor, major)
	}
	if major < firstPreviewVersion && minor == previewMinorVersion {
		return formatErrorf(4, "preview minor version requires major version %d or later, got %d", firstPreviewVersion, major)
	}
	return nil
}

func (p *parser) readClassHeader() (*ClassHeader, error) {
	r := p.r
	r.section = "class header"
	access, err := r.u2()
	if err != nil {
		return nil, err
	}
	at := r.pos()
	thisIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	superIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	r.section = "interfaces"
	ifaceAt := r.pos()
	ifaceIndexes, err := r.u2s()
	if err != nil {
		return nil, err
	}

	h := &ClassHeader{Access: access, Interfaces: make([]string, 0, len(ifaceIndexes))}
	if h.Name, err = p.cp.classNameAt(thisIndex, at); err != nil {
		return nil, err
	}
	if h.SuperName, err = p.cp.optionalClassNameAt(superIndex, at+2); err != nil {
		return nil, err
	}
	for _, idx := range ifaceIndexes {
		name, err := p.cp.classNameAt(idx, ifaceAt)
		if err != nil {
			return nil, err
		}
		h.Interfaces = append(h.Interfaces, name)
	}
	return h, nil
}

// memberInfo is the fixed prefix shared by field_info and method_info.
type memberInfo struct {
	access     uint16
	name       string
	descriptor string
}

func (p *parser) readMemberInfo(kind string) (memberInfo, error) {
	r := p.r
	var m memberInfo
	var err error
	if m.access, err = r.u2(); err != nil {
		return m, err
	}
	at := r.pos()
	nameIndex, err := r.u2()
	if err != nil {
		return m, err
	}
	descIndex, err := r.u2()
	if err != nil {
		return m, err
	}
	if m.name, err = p.cp.utf8At(nameIndex, at); err != nil {
		return m, err
	}
	if m.descriptor, err = p.cp.utf8At(descIndex, at+2); err != nil {
		return m, err
	}
	if m.name == "" {
		return m, formatErrorf(at, "%s with empty name", kind)
	}
	return m, nil
}

func (p *parser) readField(index int) error {
	info, err := p.readMemberInfo("field")
	if err != nil {
		return err
	}
	if !ValidFieldDescriptor(info.descriptor) {
		return formatErrorf(p.r.pos(), "field %s has invalid descriptor %q", info.name, info.descriptor)
	}
	f := &Field{Index: index, Access: info.access, Name: info.name, Descriptor: info.descriptor}

	var annotations []*Annotation
	err = p.forEachAttribute(func(name string, body *reader) error {
		switch name {
		case "ConstantValue":
			at := body.pos()
			idx, err := body.u2()
			if err != nil {
				return err
			}
			v, err := p.cp.valueAt(idx, at)
			if err != nil {
				return err
			}
			f.ConstantValue = coerceConstant(v, info.descriptor)
		case "Signature":
			s, err := p.readSignature(body)
			if err != nil {
				return err
			}
			f.Signature = s
		case "Deprecated":
			f.Deprecated = true
		case "Synthetic":
			f.Synthetic = true
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			anns, err := p.readAnnotations(body, name == "RuntimeVisibleAnnotations")
			if err != nil {
				return err
			}
			for _, a := range anns {
				a.Target, a.Member = TargetField, index
			}
			annotations = append(annotations, anns...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.emit(f); err != nil {
		return err
	}
	for _, a := range annotations {
		if err := p.emit(a); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) readMethod(index int) error {
	info, err := p.readMemberInfo("method")
	if err != nil {
		return err
	}
	if _, _, err := SplitMethodDescriptor(info.descriptor); err != nil {
		return formatErrorf(p.r.pos(), "method %s: %v", info.name, err)
	}
	m := &Method{Index: index, Access: info.access, Name: info.name, Descriptor: info.descriptor}

	var annotations []*Annotation
	err = p.forEachAttribute(func(name string, body *reader) error {
		switch name {
		case "Code":
			code, err := readCodeRange(body)
			if err != nil {
				return err
			}
			m.Code = code
		case "Exceptions":
			at := body.pos()
			idxs, err := body.u2s()
			if err != nil {
				return err
			}
			m.Exceptions = make([]string, 0, len(idxs))
			for _, idx := range idxs {
				n, err := p.cp.classNameAt(idx, at)
				if err != nil {
					return err
				}
				m.Exceptions = append(m.Exceptions, n)
			}
		case "Signature":
			s, err := p.readSignature(body)
			if err != nil {
				return err
			}
			m.Signature = s
		case "Deprecated":
			m.Deprecated = true
		case "Synthetic":
			m.Synthetic = true
		case "MethodParameters":
			params, err := p.readMethodParameters(body)
			if err != nil {
				return err
			}
			m.Parameters = params
		case "AnnotationDefault":
			v, err := p.readElementValue(body, 0)
			if err != nil {
				return err
			}
			m.AnnotationDefault = &v
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			anns, err := p.readAnnotations(body, name == "RuntimeVisibleAnnotations")
			if err != nil {
				return err
			}
			for _, a := range anns {
				a.Target, a.Member = TargetMethod, index
			}
			annotations = append(annotations, anns...)
		case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
			anns, err := p.readParameterAnnotations(body, name == "RuntimeVisibleParameterAnnotations")
			if err != nil {
				return err
			}
			for _, a := range anns {
				a.Member = index
			}
			annotations = append(annotations, anns...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.emit(m); err != nil {
		return err
	}
	for _, a := range annotations {
		if err := p.emit(a); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) readClassAttributes() (*ClassEnd, error) {
	p.r.section = "class attributes"
	end := &ClassEnd{}
	err := p.forEachAttribute(func(name string, body *reader) error {
		switch name {
		case "SourceFile":
			at := body.pos()
			idx, err := body.u2()
			if err != nil {
				return err
			}
			if end.SourceFile, err = p.cp.utf8At(idx, at); err != nil {
				return err
			}
		case "Signature":
			s, err := p.readSignature(body)
			if err != nil {
				return err
			}
			end.Signature = s
		case "Deprecated":
			end.Deprecated = true
		case "Synthetic":
			end.Synthetic = true
		case "EnclosingMethod":
			return p.readEnclosingMethod(body, end)
		case "InnerClasses":
			entries, err := p.readInnerClasses(body)
			if err != nil {
				return err
			}
			for _, ic := range entries {
				if err := p.emit(ic); err != nil {
					return err
				}
			}
		case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
			anns, err := p.readAnnotations(body, name == "RuntimeVisibleAnnotations")
			if err != nil {
				return err
			}
			for _, a := range anns {
				if err := p.emit(a); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return end, nil
}
