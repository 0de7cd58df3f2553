package closuregen

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/reglet-dev/glimpse/aot"
	"github.com/reglet-dev/glimpse/internal/domain/typeinfo"
)

// ErrUnrepresentable is wrapped by every type that cannot be written as Go
// source in the generated file.
var ErrUnrepresentable = errors.New("type cannot be named in generated code")

// Qualified names are rendered as \x00path\x00.Name until every package is
// known and aliases can be assigned.
const mark = "\x00"

var aotPath = reflect.TypeFor[aot.Void]().PkgPath()

// typeWriter renders reflect types relative to the output package.
type typeWriter struct {
	pkgPath string
	paths   map[string]bool
}

func newTypeWriter(pkgPath string) *typeWriter {
	return &typeWriter{pkgPath: pkgPath, paths: make(map[string]bool)}
}

func (w *typeWriter) qualify(path string) string {
	if path == w.pkgPath {
		return ""
	}
	if path != aotPath {
		w.paths[path] = true
	}
	return mark + path + mark + "."
}

// write renders t, which must already be substituted.
func (w *typeWriter) write(t reflect.Type) (string, error) {
	if t == typeinfo.Any() {
		return "any", nil
	}
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name(), nil
		}
		if !typeinfo.IsGeneric(t) {
			return w.qualify(t.PkgPath()) + t.Name(), nil
		}
		args, err := typeinfo.TypeArgs(t)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnrepresentable, err)
		}
		rendered := make([]string, len(args))
		for i, a := range args {
			if rendered[i], err = w.writeString(a); err != nil {
				return "", err
			}
		}
		base := t.Name()[:strings.IndexByte(t.Name(), '[')]
		return w.qualify(t.PkgPath()) + base + "[" + strings.Join(rendered, ", ") + "]", nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem, err := w.write(t.Elem())
		return "*" + elem, err
	case reflect.Slice:
		elem, err := w.write(t.Elem())
		return "[]" + elem, err
	case reflect.Array:
		elem, err := w.write(t.Elem())
		return "[" + strconv.Itoa(t.Len()) + "]" + elem, err
	case reflect.Map:
		key, err := w.write(t.Key())
		if err != nil {
			return "", err
		}
		elem, err := w.write(t.Elem())
		return "map[" + key + "]" + elem, err
	case reflect.Chan:
		elem, err := w.write(t.Elem())
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + elem, err
		case reflect.SendDir:
			return "chan<- " + elem, err
		}
		return "chan " + elem, err
	case reflect.Func:
		return w.writeFunc(t)
	case reflect.Struct:
		return w.writeStruct(t)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any", nil
		}
		return "", fmt.Errorf("%w: anonymous interface %s", ErrUnrepresentable, t)
	}
	return "", fmt.Errorf("%w: %s", ErrUnrepresentable, t)
}

func (w *typeWriter) writeFunc(t reflect.Type) (string, error) {
	in := make([]string, t.NumIn())
	for i := range in {
		s, err := w.write(t.In(i))
		if err != nil {
			return "", err
		}
		if t.IsVariadic() && i == len(in)-1 {
			s = "..." + strings.TrimPrefix(s, "[]")
		}
		in[i] = s
	}
	out := make([]string, t.NumOut())
	for i := range out {
		s, err := w.write(t.Out(i))
		if err != nil {
			return "", err
		}
		out[i] = s
	}

	sig := "func(" + strings.Join(in, ", ") + ")"
	switch len(out) {
	case 0:
	case 1:
		sig += " " + out[0]
	default:
		sig += " (" + strings.Join(out, ", ") + ")"
	}
	return sig, nil
}

func (w *typeWriter) writeStruct(t reflect.Type) (string, error) {
	if t.NumField() == 0 {
		return "struct{}", nil
	}
	fields := make([]string, t.NumField())
	for i := range fields {
		f := t.Field(i)
		ft, err := w.write(f.Type)
		if err != nil {
			return "", err
		}
		s := f.Name + " " + ft
		if f.Anonymous {
			s = ft
		}
		if f.Tag != "" {
			s += " " + strconv.Quote(string(f.Tag))
		}
		fields[i] = s
	}
	return "struct{ " + strings.Join(fields, "; ") + " }", nil
}

// writeString renders a type argument as it appears in a runtime type name.
func (w *typeWriter) writeString(s string) (string, error) {
	switch {
	case s == "interface {}":
		return "any", nil
	case s == "struct {}":
		return "struct{}", nil
	case strings.HasPrefix(s, "*"):
		elem, err := w.writeString(s[1:])
		return "*" + elem, err
	case strings.HasPrefix(s, "[]"):
		elem, err := w.writeString(s[2:])
		return "[]" + elem, err
	case strings.HasPrefix(s, "map["):
		depth := 0
		for i := len("map"); i < len(s); i++ {
			switch s[i] {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					key, err := w.writeString(s[len("map["):i])
					if err != nil {
						return "", err
					}
					elem, err := w.writeString(s[i+1:])
					return "map[" + key + "]" + elem, err
				}
			}
		}
		return "", fmt.Errorf("%w: unbalanced %q", ErrUnrepresentable, s)
	case strings.HasPrefix(s, "["):
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", fmt.Errorf("%w: unbalanced %q", ErrUnrepresentable, s)
		}
		elem, err := w.writeString(s[end+1:])
		return s[:end+1] + elem, err
	case strings.HasPrefix(s, "chan "):
		elem, err := w.writeString(s[len("chan "):])
		return "chan " + elem, err
	case strings.HasPrefix(s, "func("), strings.HasPrefix(s, "struct"), strings.HasPrefix(s, "interface"):
		return "", fmt.Errorf("%w: literal type argument %q", ErrUnrepresentable, s)
	}

	base, args := s, ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return "", fmt.Errorf("%w: unparseable generic name %q", ErrUnrepresentable, s)
		}
		base, args = s[:i], s[i+1:len(s)-1]
	}

	out := base
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		out = w.qualify(base[:dot]) + base[dot+1:]
	}
	if args == "" {
		return out, nil
	}
	parts, err := splitTypeArgs(args)
	if err != nil {
		return "", err
	}
	for i, p := range parts {
		if parts[i], err = w.writeString(p); err != nil {
			return "", err
		}
	}
	return out + "[" + strings.Join(parts, ", ") + "]", nil
}

func splitTypeArgs(s string) ([]string, error) {
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
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
		if depth < 0 {
			break
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced type arguments %q", ErrUnrepresentable, s)
	}
	return append(args, strings.TrimSpace(s[start:])), nil
}

// importSpec is one aliased import of the generated file.
type importSpec struct {
	Alias string
	Path  string
}

var versionElem = regexp.MustCompile(`^v[0-9]+$`)

// aliases assigns import names in path order. The last path element is
// used, skipping major version suffixes; clashes get a numeric suffix.
func (w *typeWriter) aliases() []importSpec {
	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	taken := map[string]bool{"aot": true}
	specs := make([]importSpec, 0, len(paths))
	for _, p := range paths {
		name := aliasBase(p)
		alias := name
		for n := 2; taken[alias]; n++ {
			alias = name + strconv.Itoa(n)
		}
		taken[alias] = true
		specs = append(specs, importSpec{Alias: alias, Path: p})
	}
	return specs
}

func aliasBase(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if versionElem.MatchString(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, name)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "pkg" + name
	}
	return name
}

// resolve replaces the path markers of s with the assigned aliases.
func resolve(s string, specs []importSpec) string {
	if !strings.Contains(s, mark) {
		return s
	}
	pairs := make([]string, 0, 2*len(specs)+2)
	pairs = append(pairs, mark+aotPath+mark, "aot")
	for _, spec := range specs {
		pairs = append(pairs, mark+spec.Path+mark, spec.Alias)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
