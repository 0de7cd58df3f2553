package typeinfo

import (
	"fmt"
	"reflect"
	"strings"
)

// genericBase strips the type argument list from a type name.
func genericBase(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// IsGeneric reports whether t is an instantiated generic type.
func IsGeneric(t reflect.Type) bool {
	return t != nil && t.Name() != "" && strings.IndexByte(t.Name(), '[') >= 0
}

// Origin returns the qualified name of t without type arguments, such as
// "github.com/x/y.Box" for y.Box[int].
func Origin(t reflect.Type) string {
	if t.PkgPath() == "" {
		return genericBase(t.Name())
	}
	return t.PkgPath() + "." + genericBase(t.Name())
}

// TypeArgs returns the type arguments of a generic instantiation as they
// appear in the runtime type name, for example
// ["int", "github.com/x/y.Item"] for Box[int,github.com/x/y.Item].
func TypeArgs(t reflect.Type) ([]string, error) {
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return nil, nil
	}
	if !strings.HasSuffix(name, "]") {
		return nil, fmt.Errorf("unparseable generic type name %q", name)
	}
	return splitArgs(name[open+1 : len(name)-1])
}

// splitArgs splits a comma separated list at bracket depth zero.
func splitArgs(s string) ([]string, error) {
	var (
		args  []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced type argument list %q", s)
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced type argument list %q", s)
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		args = append(args, last)
	}
	return args, nil
}

// typeStringAccessible applies the accessibility rules to a type as written
// in a runtime type name. Literal struct, interface and func types are
// treated as inaccessible.
func typeStringAccessible(s, from string) bool {
	for {
		switch {
		case strings.HasPrefix(s, "*"):
			s = s[1:]
		case strings.HasPrefix(s, "[]"):
			s = s[2:]
		case strings.HasPrefix(s, "chan "):
			s = s[len("chan "):]
		case strings.HasPrefix(s, "map["):
			key, rest, ok := splitMapKey(s)
			if !ok || !typeStringAccessible(key, from) {
				return false
			}
			s = rest
		case strings.HasPrefix(s, "["):
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return false
			}
			s = s[end+1:]
		case strings.HasPrefix(s, "func("), strings.HasPrefix(s, "struct"), strings.HasPrefix(s, "interface"):
			return s == "interface {}" || s == "struct {}"
		default:
			return namedStringAccessible(s, from)
		}
	}
}

func namedStringAccessible(s, from string) bool {
	base, args := s, ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return false
		}
		base, args = s[:i], s[i+1:len(s)-1]
	}

	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		// Predeclared identifier.
		return base != ""
	}
	if !nameAccessible(base[:dot], base[dot+1:], from) {
		return false
	}
	if args == "" {
		return true
	}
	parts, err := splitArgs(args)
	if err != nil {
		return false
	}
	for _, p := range parts {
		if !typeStringAccessible(p, from) {
			return false
		}
	}
	return true
}

func splitMapKey(s string) (key, rest string, ok bool) {
	depth := 0
	for i := len("map"); i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[len("map["):i], s[i+1:], true
			}
		}
	}
	return "", "", false
}
