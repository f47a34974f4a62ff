package classfile

import "fmt"

// SplitMethodDescriptor splits "(IJLjava/lang/String;)[B" into its parameter
// descriptors and return descriptor. The descriptor is only checked for
// syntax; referenced classes are not resolved.
func SplitMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "", fmt.Errorf("method descriptor %q does not start with '('", desc)
	}
	params = []string{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldTypeLen(desc, i)
		if err != nil {
			return nil, "", err
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q has no ')'", desc)
	}
	i++ // ')'
	if i < len(desc) && desc[i] == 'V' && i+1 == len(desc) {
		return params, "V", nil
	}
	n, err := fieldTypeLen(desc, i)
	if err != nil {
		return nil, "", err
	}
	if i+n != len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q has trailing characters", desc)
	}
	return params, desc[i:], nil
}

// ValidFieldDescriptor reports whether desc is exactly one field type.
func ValidFieldDescriptor(desc string) bool {
	n, err := fieldTypeLen(desc, 0)
	return err == nil && n == len(desc)
}

// fieldTypeLen returns the length of the field type starting at desc[i].
func fieldTypeLen(desc string, i int) (int, error) {
	start := i
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i-start > 255 {
		return 0, fmt.Errorf("descriptor %q exceeds 255 array dimensions", desc)
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("descriptor %q ends inside a type", desc)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1 - start, nil
	case 'L':
		for j := i + 1; j < len(desc); j++ {
			if desc[j] == ';' {
				if j == i+1 {
					return 0, fmt.Errorf("descriptor %q has an empty class name", desc)
				}
				return j + 1 - start, nil
			}
		}
		return 0, fmt.Errorf("descriptor %q has an unterminated class name", desc)
	default:
		return 0, fmt.Errorf("descriptor %q has invalid type character %q", desc, desc[i])
	}
}
