package classfile

// Access flags. Several bits are reused with different meanings for classes,
// fields and methods, so modifier names are resolved per context.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // class
	AccSynchronized = 0x0020 // method
	AccVolatile     = 0x0040 // field
	AccBridge       = 0x0040 // method
	AccTransient    = 0x0080 // field
	AccVarargs      = 0x0080 // method
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000 // class
	AccMandated     = 0x8000 // parameter
)

// FlagContext selects which modifier table applies to an access bitmask.
type FlagContext int

const (
	ClassFlags FlagContext = iota
	InnerClassFlags
	FieldFlags
	MethodFlags
)

type flagName struct {
	bit  uint16
	name string
}

var (
	classModifiers = []flagName{
		{AccPublic, "public"},
		{AccFinal, "final"},
		{AccInterface, "interface"},
		{AccAbstract, "abstract"},
		{AccSynthetic, "synthetic"},
		{AccAnnotation, "annotation"},
		{AccEnum, "enum"},
		{AccModule, "module"},
	}
	innerClassModifiers = []flagName{
		{AccPublic, "public"},
		{AccPrivate, "private"},
		{AccProtected, "protected"},
		{AccStatic, "static"},
		{AccFinal, "final"},
		{AccInterface, "interface"},
		{AccAbstract, "abstract"},
		{AccSynthetic, "synthetic"},
		{AccAnnotation, "annotation"},
		{AccEnum, "enum"},
	}
	fieldModifiers = []flagName{
		{AccPublic, "public"},
		{AccPrivate, "private"},
		{AccProtected, "protected"},
		{AccStatic, "static"},
		{AccFinal, "final"},
		{AccVolatile, "volatile"},
		{AccTransient, "transient"},
		{AccSynthetic, "synthetic"},
		{AccEnum, "enum"},
	}
	methodModifiers = []flagName{
		{AccPublic, "public"},
		{AccPrivate, "private"},
		{AccProtected, "protected"},
		{AccStatic, "static"},
		{AccFinal, "final"},
		{AccSynchronized, "synchronized"},
		{AccBridge, "bridge"},
		{AccVarargs, "varargs"},
		{AccNative, "native"},
		{AccAbstract, "abstract"},
		{AccStrict, "strictfp"},
		{AccSynthetic, "synthetic"},
	}
)

// Modifiers returns the modifier names set in flags, in bit order.
func Modifiers(flags uint16, ctx FlagContext) []string {
	var table []flagName
	switch ctx {
	case ClassFlags:
		table = classModifiers
	case InnerClassFlags:
		table = innerClassModifiers
	case FieldFlags:
		table = fieldModifiers
	case MethodFlags:
		table = methodModifiers
	}
	mods := []string{}
	for _, f := range table {
		if flags&f.bit != 0 {
			mods = append(mods, f.name)
		}
	}
	return mods
}
