// Package classfile decodes JVM class files into a stream of structural
// events.
//
// The decoder reads the header, the constant pool, the access flags, the
// this/super/interface references, the field and method tables and the
// attributes that describe the declared surface of a class. Method bodies are
// located but never interpreted.
//
// Two entry points share one decoder:
//
//	for e, err := range classfile.Events(data) { ... } // pull
//	err := classfile.Parse(data, visitor)               // push
//
// Errors are typed: *FormatError for malformed bytes, *TruncationError when
// the input ends early and *UnsupportedFeatureError for constructs the
// decoder cannot skip.
package classfile
