package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reglet-dev/glimpse/marker"
)

//go:embed schema/overlay.schema.json
var overlaySchema []byte

// Overlay declares extra members for types that cannot carry tags, such as
// third-party types or generic origins.
type Overlay struct {
	Types []OverlayType `yaml:"types"`
}

// OverlayType is the set of declarations for one qualified type name.
type OverlayType struct {
	Type    string          `yaml:"type"`
	Members []OverlayMember `yaml:"members"`
}

// OverlayMember is one declaration. Tag uses the struct tag syntax.
type OverlayMember struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind,omitempty"`
	Tag  string `yaml:"tag,omitempty"`
}

// Annotator receives overlay declarations; *profile.TypeSet implements it.
type Annotator interface {
	Annotate(origin string, members ...marker.Member)
}

// OverlayLoader reads and validates overlay files.
type OverlayLoader struct {
	schema *jsonschema.Schema
}

// NewOverlayLoader compiles the embedded overlay schema.
func NewOverlayLoader() (*OverlayLoader, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("overlay.schema.json", bytes.NewReader(overlaySchema)); err != nil {
		return nil, fmt.Errorf("failed to add overlay schema: %w", err)
	}
	schema, err := compiler.Compile("overlay.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile overlay schema: %w", err)
	}
	return &OverlayLoader{schema: schema}, nil
}

// LoadFile loads an overlay from path, confined to its directory.
func (l *OverlayLoader) LoadFile(path string) (*Overlay, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open overlay directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open overlay: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	ov, err := l.Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ov, nil
}

// Load reads an overlay from r, validating it against the schema before
// decoding.
func (l *OverlayLoader) Load(r io.Reader) (*Overlay, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay: %w", err)
	}

	asJSON, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse overlay YAML: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse overlay YAML: %w", err)
	}
	if err := l.schema.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return nil, formatSchemaValidationError(verr)
		}
		return nil, fmt.Errorf("overlay validation failed: %w", err)
	}

	var ov Overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("failed to decode overlay: %w", err)
	}
	return &ov, nil
}

// Decls converts the declarations of one type. A "-" tag drops the member.
func (t OverlayType) Decls() ([]marker.Member, error) {
	out := make([]marker.Member, 0, len(t.Members))
	for _, om := range t.Members {
		m, keep, err := marker.ParseTag(om.Name, om.Tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Type, om.Name, err)
		}
		if !keep {
			continue
		}
		m.Kind = kindOf(om.Kind)
		out = append(out, m)
	}
	return out, nil
}

func kindOf(s string) marker.Kind {
	switch s {
	case "property":
		return marker.KindProperty
	case "method":
		return marker.KindMethod
	case "event":
		return marker.KindEvent
	}
	return marker.KindField
}

// Apply annotates a with every declaration and returns the member count.
func (o *Overlay) Apply(a Annotator) (int, error) {
	n := 0
	for _, t := range o.Types {
		members, err := t.Decls()
		if err != nil {
			return n, err
		}
		a.Annotate(t.Type, members...)
		n += len(members)
	}
	return n, nil
}

// ApplyFiles loads every file and applies it to a.
func (l *OverlayLoader) ApplyFiles(a Annotator, paths ...string) (int, error) {
	total := 0
	for _, p := range paths {
		ov, err := l.LoadFile(p)
		if err != nil {
			return total, err
		}
		n, err := ov.Apply(a)
		total += n
		if err != nil {
			return total, fmt.Errorf("%s: %w", p, err)
		}
	}
	return total, nil
}

// formatSchemaValidationError flattens a validation error tree into one
// message per failing location.
func formatSchemaValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if e.Message != "" && len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	if len(messages) == 0 {
		return fmt.Errorf("overlay validation failed: %s", err.Error())
	}
	return fmt.Errorf("overlay validation failed:\n  %s", strings.Join(messages, "\n  "))
}
