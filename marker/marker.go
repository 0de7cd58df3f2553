// Package marker holds the declarative markers that make a member visible to
// glimpse.
//
// A struct field is marked with a `glimpse` struct tag. Properties, methods
// and events have no tag position in Go, so a type declares them from a
// MonitorMembers method:
//
//	func (*Player) MonitorMembers() []marker.Member {
//		return []marker.Member{
//			marker.Property("Health", marker.Label("HP"), marker.Compare(marker.Gt, 0)),
//			marker.Method("Roll", marker.OutParam(0, "dice")),
//			marker.Event("Died"),
//		}
//	}
//
// Static members hang off a namespace type whose first field is the blank
// marker.Static; see Var, Func and Processor.
package marker

import "fmt"

// Kind is the kind of a monitored member.
type Kind uint8

const (
	KindField Kind = iota + 1
	KindProperty
	KindMethod
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	case KindMethod:
		return "method"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Segment is the update-segment hint consumed by the update loop.
type Segment uint8

const (
	SegmentAuto Segment = iota
	SegmentManual
	SegmentFrame
	SegmentTick
)

var segmentNames = [...]string{
	SegmentAuto:   "auto",
	SegmentManual: "manual",
	SegmentFrame:  "frame",
	SegmentTick:   "tick",
}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("segment(%d)", uint8(s))
}

// ParseSegment parses a segment name.
func ParseSegment(s string) (Segment, error) {
	for i, name := range segmentNames {
		if name == s {
			return Segment(i), nil
		}
	}
	return SegmentAuto, fmt.Errorf("unknown update segment %q", s)
}

// FormatOptions carries the display hints of one member. Custom processors
// receive it by value.
type FormatOptions struct {
	Label         string
	Format        string
	FontSize      int
	Group         string
	ElementIndent int
	Indent        int
	ShowIndex     bool
	Position      int
	Prefix        string
	Color         string
}

// DefaultFontSize is used when no font marker is present.
const DefaultFontSize = 14

// DefaultElementIndent is the indent applied to collection elements.
const DefaultElementIndent = 2

// Out names one pointer parameter of a monitored method whose pointee is
// displayed after the call.
type Out struct {
	Index int
	Name  string
}

// Member is the full declaration of one monitored member.
type Member struct {
	Kind        Kind
	Name        string
	Segment     Segment
	Options     FormatOptions
	Tags        []string
	Processor   string
	UpdateEvent string
	Condition   *Condition
	Args        []any
	Outs        []Out
	Redact      bool
}

// Option customizes a Member.
type Option func(*Member)

func newMember(kind Kind, name string, opts []Option) Member {
	m := Member{
		Kind: kind,
		Name: name,
		Options: FormatOptions{
			Label:         name,
			FontSize:      DefaultFontSize,
			ElementIndent: DefaultElementIndent,
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Field declares a monitored struct field. Fields are usually marked with a
// struct tag instead.
func Field(name string, opts ...Option) Member { return newMember(KindField, name, opts) }

// Property declares a getter method `Name() V` or `Name() (V, error)`.
func Property(name string, opts ...Option) Member { return newMember(KindProperty, name, opts) }

// Method declares a method that is invoked on every refresh.
func Method(name string, opts ...Option) Member { return newMember(KindMethod, name, opts) }

// Event declares an event field.
func Event(name string, opts ...Option) Member { return newMember(KindEvent, name, opts) }

// Annotated is implemented by types that declare monitored members in code.
// MonitorMembers is called once per type on a zero value.
type Annotated interface {
	MonitorMembers() []Member
}

func Label(s string) Option           { return func(m *Member) { m.Options.Label = s } }
func Format(s string) Option          { return func(m *Member) { m.Options.Format = s } }
func FontSize(n int) Option           { return func(m *Member) { m.Options.FontSize = n } }
func Group(s string) Option           { return func(m *Member) { m.Options.Group = s } }
func Indent(n int) Option             { return func(m *Member) { m.Options.Indent = n } }
func ElementIndent(n int) Option      { return func(m *Member) { m.Options.ElementIndent = n } }
func ShowIndex() Option               { return func(m *Member) { m.Options.ShowIndex = true } }
func Position(n int) Option           { return func(m *Member) { m.Options.Position = n } }
func Color(c string) Option           { return func(m *Member) { m.Options.Color = c } }
func Update(s Segment) Option         { return func(m *Member) { m.Segment = s } }
func UpdateEvent(name string) Option  { return func(m *Member) { m.UpdateEvent = name } }
func UseProcessor(name string) Option { return func(m *Member) { m.Processor = name } }
func Redact() Option                  { return func(m *Member) { m.Redact = true } }

// Tags appends display tags.
func Tags(tags ...string) Option {
	return func(m *Member) { m.Tags = append(m.Tags, tags...) }
}

// Args sets the literal arguments passed to a monitored method. Missing
// arguments are zero values.
func Args(args ...any) Option {
	return func(m *Member) { m.Args = append([]any(nil), args...) }
}

// OutParam marks the pointer parameter at index as an out parameter.
func OutParam(index int, name string) Option {
	return func(m *Member) { m.Outs = append(m.Outs, Out{Index: index, Name: name}) }
}
