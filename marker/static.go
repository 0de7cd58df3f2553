package marker

// Static is embedded as the first, blank field of a namespace type:
//
//	type Stats struct{ _ marker.Static }
//
// A namespace type is never instantiated; it only groups static declarations.
type Static struct{}

// StaticDecl is one declaration attached to a namespace type.
type StaticDecl struct {
	Name  string
	Value any
	// Member is nil for declarations that are only referenced by name, such
	// as processors and condition helpers.
	Member *Member
}

// Monitored reports whether the declaration produces a unit.
func (d StaticDecl) Monitored() bool {
	return d.Member != nil
}

// Var monitors the package variable ptr points to.
func Var(name string, ptr any, opts ...Option) StaticDecl {
	m := newMember(KindField, name, opts)
	return StaticDecl{Name: name, Value: ptr, Member: &m}
}

// Getter monitors fn, which must have the shape func() V or func() (V, error).
func Getter(name string, fn any, opts ...Option) StaticDecl {
	m := newMember(KindProperty, name, opts)
	return StaticDecl{Name: name, Value: fn, Member: &m}
}

// Func monitors fn as a method that is invoked on every refresh.
func Func(name string, fn any, opts ...Option) StaticDecl {
	m := newMember(KindMethod, name, opts)
	return StaticDecl{Name: name, Value: fn, Member: &m}
}

// Processor declares a static value processor. fn must have the shape
// func(FormatOptions, V) string.
func Processor(name string, fn any) StaticDecl {
	return StaticDecl{Name: name, Value: fn}
}

// Declare attaches an unmonitored variable pointer or function to the
// namespace so conditions can reference it by name.
func Declare(name string, v any) StaticDecl {
	return StaticDecl{Name: name, Value: v}
}
