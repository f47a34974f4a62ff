package classfile

// forEachAttribute reads an attributes_count-prefixed attribute table and
// hands each body to fn as a bounded sub-reader. Attributes fn does not touch
// are skipped by length; attributes it starts reading must be consumed
// exactly.
func (p *parser) forEachAttribute(fn func(name string, body *reader) error) error {
	r := p.r
	section := r.section
	defer func() { r.section = section }()

	count, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		r.section = section
		at := r.pos()
		nameIndex, err := r.u2()
		if err != nil {
			return err
		}
		length, err := r.u4()
		if err != nil {
			return err
		}
		name, err := p.cp.utf8At(nameIndex, at)
		if err != nil {
			return err
		}
		r.section = name + " attribute"
		body, err := r.sub(int(length), name+" attribute")
		if err != nil {
			return err
		}
		if err := fn(name, body); err != nil {
			return err
		}
		if body.offset > 0 && body.remaining() != 0 {
			return formatErrorf(body.pos(), "%s attribute has %d unread bytes", name, body.remaining())
		}
	}
	return nil
}

func readCodeRange(body *reader) (*CodeRange, error) {
	maxStack, err := body.u2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := body.u2()
	if err != nil {
		return nil, err
	}
	length, err := body.u4()
	if err != nil {
		return nil, err
	}
	code := &CodeRange{Offset: body.pos(), Length: int(length), MaxStack: maxStack, MaxLocals: maxLocals}
	if err := body.need(int(length)); err != nil {
		return nil, err
	}
	// exception table and nested attributes are not part of the summary
	return code, body.skip(body.remaining())
}

func (p *parser) readSignature(body *reader) (string, error) {
	at := body.pos()
	idx, err := body.u2()
	if err != nil {
		return "", err
	}
	return p.cp.utf8At(idx, at)
}

func (p *parser) readMethodParameters(body *reader) ([]MethodParameter, error) {
	count, err := body.u1()
	if err != nil {
		return nil, err
	}
	params := make([]MethodParameter, 0, count)
	for i := 0; i < int(count); i++ {
		at := body.pos()
		nameIndex, err := body.u2()
		if err != nil {
			return nil, err
		}
		access, err := body.u2()
		if err != nil {
			return nil, err
		}
		name, err := p.cp.optionalUTF8At(nameIndex, at)
		if err != nil {
			return nil, err
		}
		params = append(params, MethodParameter{Name: name, Access: access})
	}
	return params, nil
}

func (p *parser) readInnerClasses(body *reader) ([]*InnerClass, error) {
	count, err := body.u2()
	if err != nil {
		return nil, err
	}
	entries := make([]*InnerClass, 0, count)
	for i := 0; i < int(count); i++ {
		at := body.pos()
		var idx [3]uint16
		for j := range idx {
			if idx[j], err = body.u2(); err != nil {
				return nil, err
			}
		}
		access, err := body.u2()
		if err != nil {
			return nil, err
		}
		ic := &InnerClass{Access: access}
		if ic.Name, err = p.cp.classNameAt(idx[0], at); err != nil {
			return nil, err
		}
		if ic.OuterName, err = p.cp.optionalClassNameAt(idx[1], at+2); err != nil {
			return nil, err
		}
		if ic.InnerName, err = p.cp.optionalUTF8At(idx[2], at+4); err != nil {
			return nil, err
		}
		entries = append(entries, ic)
	}
	return entries, nil
}

func (p *parser) readEnclosingMethod(body *reader, end *ClassEnd) error {
	at := body.pos()
	classIndex, err := body.u2()
	if err != nil {
		return err
	}
	methodIndex, err := body.u2()
	if err != nil {
		return err
	}
	if end.EnclosingClass, err = p.cp.classNameAt(classIndex, at); err != nil {
		return err
	}
	if methodIndex != 0 {
		name, desc, err := p.cp.nameAndTypeAt(methodIndex, at+2)
		if err != nil {
			return err
		}
		end.EnclosingMethod = name + desc
	}
	return nil
}

func (p *parser) readAnnotations(body *reader, visible bool) ([]*Annotation, error) {
	count, err := body.u2()
	if err != nil {
		return nil, err
	}
	anns := make([]*Annotation, 0, count)
	for i := 0; i < int(count); i++ {
		a, err := p.readAnnotation(body, 0)
		if err != nil {
			return nil, err
		}
		a.Visible = visible
		anns = append(anns, a)
	}
	return anns, nil
}

func (p *parser) readParameterAnnotations(body *reader, visible bool) ([]*Annotation, error) {
	params, err := body.u1()
	if err != nil {
		return nil, err
	}
	var anns []*Annotation
	for param := 0; param < int(params); param++ {
		count, err := body.u2()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(count); i++ {
			a, err := p.readAnnotation(body, 0)
			if err != nil {
				return nil, err
			}
			a.Target = TargetParameter
			a.Parameter = param
			a.Visible = visible
			anns = append(anns, a)
		}
	}
	return anns, nil
}

func (p *parser) readAnnotation(r *reader, depth int) (*Annotation, error) {
	if depth > maxAnnotationNesting {
		return nil, formatErrorf(r.pos(), "annotation nesting deeper than %d", maxAnnotationNesting)
	}
	at := r.pos()
	typeIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	a := &Annotation{}
	if a.Type, err = p.cp.utf8At(typeIndex, at); err != nil {
		return nil, err
	}
	pairs, err := r.u2()
	if err != nil {
		return nil, err
	}
	a.Elements = make([]ElementPair, 0, pairs)
	for i := 0; i < int(pairs); i++ {
		at := r.pos()
		nameIndex, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := p.cp.utf8At(nameIndex, at)
		if err != nil {
			return nil, err
		}
		v, err := p.readElementValue(r, depth)
		if err != nil {
			return nil, err
		}
		a.Elements = append(a.Elements, ElementPair{Name: name, Value: v})
	}
	return a, nil
}

func (p *parser) readElementValue(r *reader, depth int) (ElementValue, error) {
	at := r.pos()
	tag, err := r.u1()
	if err != nil {
		return ElementValue{}, err
	}
	v := ElementValue{Tag: tag}
	switch tag {
	case 'B', 'C', 'I', 'S', 'Z':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		n, err := p.cp.intAt(idx, at+1)
		if err != nil {
			return v, err
		}
		v.Const = coerceConstant(n, string(tag))
	case 'D', 'F', 'J', 's':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		want := map[byte]uint8{'D': TagDouble, 'F': TagFloat, 'J': TagLong, 's': TagUtf8}[tag]
		if v.Const, err = p.cp.typedValueAt(idx, want, at+1); err != nil {
			return v, err
		}
	case 'e':
		typeIndex, err := r.u2()
		if err != nil {
			return v, err
		}
		nameIndex, err := r.u2()
		if err != nil {
			return v, err
		}
		if v.EnumType, err = p.cp.utf8At(typeIndex, at+1); err != nil {
			return v, err
		}
		if v.EnumName, err = p.cp.utf8At(nameIndex, at+3); err != nil {
			return v, err
		}
	case 'c':
		idx, err := r.u2()
		if err != nil {
			return v, err
		}
		if v.Class, err = p.cp.utf8At(idx, at+1); err != nil {
			return v, err
		}
	case '@':
		if v.Annotation, err = p.readAnnotation(r, depth+1); err != nil {
			return v, err
		}
	case '[':
		if depth > maxAnnotationNesting {
			return v, formatErrorf(at, "annotation array nesting deeper than %d", maxAnnotationNesting)
		}
		count, err := r.u2()
		if err != nil {
			return v, err
		}
		v.Array = make([]ElementValue, 0, count)
		for i := 0; i < int(count); i++ {
			elem, err := p.readElementValue(r, depth+1)
			if err != nil {
				return v, err
			}
			v.Array = append(v.Array, elem)
		}
	default:
		return v, &UnsupportedFeatureError{Offset: at, Feature: "annotation element tag " + string(rune(tag))}
	}
	return v, nil
}

// coerceConstant narrows an Integer constant to the Go type matching its
// field descriptor or element tag; other values pass through.
func coerceConstant(v any, descriptor string) any {
	n, ok := v.(int32)
	if !ok {
		return v
	}
	switch descriptor {
	case "Z":
		return n != 0
	case "B":
		return int8(n)
	case "S":
		return int16(n)
	case "C":
		return string(rune(uint16(n)))
	}
	return n
}
