package marker

import "fmt"

// ConditionKind selects how a visibility condition is built.
type ConditionKind uint8

const (
	// ByMember names a bool method, property or field on the declaring type.
	ByMember ConditionKind = iota + 1
	// Comparison compares the monitored value with a literal.
	Comparison
	// Predicate applies a built-in predicate to the monitored value.
	Predicate
	// EventDriven names an event.Event[bool] member that toggles visibility.
	EventDriven
	// Expression is an expr-lang boolean expression over value and target.
	Expression
)

// Op is a comparison operator.
type Op uint8

const (
	Eq Op = iota + 1
	Ne
	Gt
	Ge
	Lt
	Le
)

var opNames = map[Op]string{Eq: "eq", Ne: "ne", Gt: "gt", Ge: "ge", Lt: "lt", Le: "le"}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ParseOp parses eq, ne, gt, ge, lt or le.
func ParseOp(s string) (Op, bool) {
	for op, name := range opNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// Check is a built-in predicate.
type Check uint8

const (
	IsTrue Check = iota + 1
	IsFalse
	IsNull
	IsNotNull
	IsZero
	IsNotZero
	IsNegative
	IsPositive
	IsNotEmpty
	IsNotBlank
	HasAny
)

var checkNames = map[Check]string{
	IsTrue:     "true",
	IsFalse:    "false",
	IsNull:     "null",
	IsNotNull:  "notnull",
	IsZero:     "zero",
	IsNotZero:  "notzero",
	IsNegative: "negative",
	IsPositive: "positive",
	IsNotEmpty: "notempty",
	IsNotBlank: "notblank",
	HasAny:     "any",
}

func (c Check) String() string {
	if s, ok := checkNames[c]; ok {
		return s
	}
	return fmt.Sprintf("check(%d)", uint8(c))
}

// ParseCheck parses a predicate name such as "positive" or "notblank".
func ParseCheck(s string) (Check, bool) {
	for c, name := range checkNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

// Numeric reports whether the predicate only applies to numbers.
func (c Check) Numeric() bool {
	switch c {
	case IsZero, IsNotZero, IsNegative, IsPositive:
		return true
	}
	return false
}

// Condition is a declarative visibility condition.
type Condition struct {
	Kind    ConditionKind
	Member  string
	Op      Op
	Literal any
	Check   Check
	Expr    string
}

func (c Condition) String() string {
	switch c.Kind {
	case ByMember:
		return "if " + c.Member
	case Comparison:
		return fmt.Sprintf("%s %v", c.Op, c.Literal)
	case Predicate:
		return "is " + c.Check.String()
	case EventDriven:
		return "when " + c.Member
	case Expression:
		return "expr " + c.Expr
	}
	return "none"
}

// If shows the member while the named bool member is true.
func If(member string) Option {
	return func(m *Member) { m.Condition = &Condition{Kind: ByMember, Member: member} }
}

// Compare shows the member while `value op literal` holds.
func Compare(op Op, literal any) Option {
	return func(m *Member) { m.Condition = &Condition{Kind: Comparison, Op: op, Literal: literal} }
}

// When shows the member while the value satisfies check.
func When(check Check) Option {
	return func(m *Member) { m.Condition = &Condition{Kind: Predicate, Check: check} }
}

// IfEvent toggles visibility from the named event.Event[bool] member.
func IfEvent(event string) Option {
	return func(m *Member) { m.Condition = &Condition{Kind: EventDriven, Member: event} }
}

// Expr shows the member while the boolean expression holds. The expression
// sees `value` and `target`.
func Expr(src string) Option {
	return func(m *Member) { m.Condition = &Condition{Kind: Expression, Expr: src} }
}
