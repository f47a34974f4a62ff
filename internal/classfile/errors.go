package classfile

import "fmt"

// FormatError reports bytes that violate the class-file format: a bad magic
// number, an unsupported version, an invalid constant pool reference or an
// attribute whose content does not match its declared length.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("class format error at offset %d: %s", e.Offset, e.Msg)
}

// TruncationError reports a stream that ended before a required section was
// complete.
type TruncationError struct {
	Section string
	Offset  int
	Need    int
	Have    int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("class file truncated in %s at offset %d: need %d bytes, have %d",
		e.Section, e.Offset, e.Need, e.Have)
}

// UnsupportedFeatureError reports a construct the parser does not know how to
// skip, such as an unknown constant pool tag.
type UnsupportedFeatureError struct {
	Offset  int
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported class file feature at offset %d: %s", e.Offset, e.Feature)
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
