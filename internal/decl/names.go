package decl

import "strings"

// BinaryName converts an internal name ("java/util/Map$Entry") to the dotted
// binary name ("java.util.Map$Entry").
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// DescriptorToBinaryName converts an object field descriptor
// ("Ljava/lang/Deprecated;") to a dotted binary name. Other descriptors are
// returned unchanged.
func DescriptorToBinaryName(desc string) string {
	if len(desc) >= 3 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return BinaryName(desc[1 : len(desc)-1])
	}
	return desc
}

// SplitBinaryName returns the package and simple name of a dotted binary
// name. The simple name keeps any '$' nesting.
func SplitBinaryName(name string) (pkg, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
