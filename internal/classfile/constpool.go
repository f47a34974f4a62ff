package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// constant is one resolved constant pool slot. Only the fields relevant to
// the tag are set: Utf8 fills str, numeric tags fill value, reference tags
// fill ref1/ref2.
type constant struct {
	tag   uint8
	str   string
	value any
	ref1  uint16
	ref2  uint16
}

// ConstantPool is the decoded constant pool. Index 0 and the second slot of
// Long/Double entries are unusable, as in the class file.
type ConstantPool struct {
	entries []constant
}

// Len returns constant_pool_count, i.e. one past the highest valid index.
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}

func readConstantPool(r *reader) (*ConstantPool, error) {
	r.section = "constant pool"
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, formatErrorf(r.pos()-2, "constant_pool_count must be at least 1")
	}

	cp := &ConstantPool{entries: make([]constant, count)}
	for i := 1; i < int(count); i++ {
		start := r.pos()
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := constant{tag: tag}
		switch tag {
		case TagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			raw, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			if c.str, err = decodeModifiedUTF8(raw); err != nil {
				return nil, formatErrorf(start, "constant #%d: %v", i, err)
			}
		case TagInteger:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.value = int32(v)
		case TagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.value = math.Float32frombits(v)
		case TagLong, TagDouble:
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			if tag == TagLong {
				c.value = int64(v)
			} else {
				c.value = math.Float64frombits(v)
			}
			if i+1 >= int(count) {
				return nil, formatErrorf(start, "constant #%d: 8-byte constant in last slot", i)
			}
			cp.entries[i] = c
			i++ // occupies two slots
			continue
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if c.ref1, err = r.u2(); err != nil {
				return nil, err
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
			TagDynamic, TagInvokeDynamic:
			if c.ref1, err = r.u2(); err != nil {
				return nil, err
			}
			if c.ref2, err = r.u2(); err != nil {
				return nil, err
			}
		case TagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return nil, err
			}
			c.ref1 = uint16(kind)
			if c.ref2, err = r.u2(); err != nil {
				return nil, err
			}
		default:
			return nil, &UnsupportedFeatureError{
				Offset:  start,
				Feature: fmt.Sprintf("constant pool tag %d at index %d", tag, i),
			}
		}
		cp.entries[i] = c
	}
	return cp, nil
}

func (cp *ConstantPool) entry(index uint16, want uint8, offset int) (*constant, error) {
	if index == 0 || int(index) >= len(cp.entries) {
		return nil, formatErrorf(offset, "constant pool index %d out of range [1,%d)", index, len(cp.entries))
	}
	c := &cp.entries[index]
	if c.tag == 0 {
		return nil, formatErrorf(offset, "constant pool index %d is an unusable slot", index)
	}
	if want != 0 && c.tag != want {
		return nil, formatErrorf(offset, "constant pool index %d has tag %d, want %d", index, c.tag, want)
	}
	return c, nil
}

// UTF8 resolves a CONSTANT_Utf8 entry.
func (cp *ConstantPool) UTF8(index uint16) (string, error) {
	return cp.utf8At(index, 0)
}

func (cp *ConstantPool) utf8At(index uint16, offset int) (string, error) {
	c, err := cp.entry(index, TagUtf8, offset)
	if err != nil {
		return "", err
	}
	return c.str, nil
}

// ClassName resolves a CONSTANT_Class entry to its internal (slash separated) name.
func (cp *ConstantPool) ClassName(index uint16) (string, error) {
	return cp.classNameAt(index, 0)
}

func (cp *ConstantPool) classNameAt(index uint16, offset int) (string, error) {
	c, err := cp.entry(index, TagClass, offset)
	if err != nil {
		return "", err
	}
	return cp.utf8At(c.ref1, offset)
}

// optionalClassNameAt resolves a class reference where index 0 means "none".
func (cp *ConstantPool) optionalClassNameAt(index uint16, offset int) (string, error) {
	if index == 0 {
		return "", nil
	}
	return cp.classNameAt(index, offset)
}

func (cp *ConstantPool) optionalUTF8At(index uint16, offset int) (string, error) {
	if index == 0 {
		return "", nil
	}
	return cp.utf8At(index, offset)
}

// Value resolves a loadable constant used by ConstantValue and annotation
// elements: Integer, Float, Long, Double or String.
func (cp *ConstantPool) Value(index uint16) (any, error) {
	return cp.valueAt(index, 0)
}

func (cp *ConstantPool) valueAt(index uint16, offset int) (any, error) {
	c, err := cp.entry(index, 0, offset)
	if err != nil {
		return nil, err
	}
	switch c.tag {
	case TagInteger, TagFloat, TagLong, TagDouble:
		return c.value, nil
	case TagString:
		return cp.utf8At(c.ref1, offset)
	case TagUtf8:
		return c.str, nil
	default:
		return nil, formatErrorf(offset, "constant pool index %d (tag %d) is not a constant value", index, c.tag)
	}
}

// NameAndType resolves a CONSTANT_NameAndType entry.
func (cp *ConstantPool) nameAndTypeAt(index uint16, offset int) (name, descriptor string, err error) {
	c, err := cp.entry(index, TagNameAndType, offset)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.utf8At(c.ref1, offset); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.utf8At(c.ref2, offset); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// intAt resolves an Integer constant, used for annotation B/C/I/S/Z elements.
func (cp *ConstantPool) intAt(index uint16, offset int) (int32, error) {
	c, err := cp.entry(index, TagInteger, offset)
	if err != nil {
		return 0, err
	}
	return c.value.(int32), nil
}

func (cp *ConstantPool) typedValueAt(index uint16, tag uint8, offset int) (any, error) {
	c, err := cp.entry(index, tag, offset)
	if err != nil {
		return nil, err
	}
	if tag == TagUtf8 {
		return c.str, nil
	}
	return c.value, nil
}
