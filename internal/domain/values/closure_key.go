package values

import (
	"strings"

	"github.com/reglet-dev/glimpse/aot"
)

// ClosureKey is a template family plus its rendered type arguments, taken
// after substitution. Two keys are equal when their String forms are.
type ClosureKey struct {
	Family aot.Family
	Args   []string
}

// NewClosureKey builds a key.
func NewClosureKey(family aot.Family, args ...string) ClosureKey {
	return ClosureKey{Family: family, Args: args}
}

// String renders the key as Go source, for example Dictionary[string, int].
func (k ClosureKey) String() string {
	return string(k.Family) + "[" + strings.Join(k.Args, ", ") + "]"
}
