package schema

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sample.yaml
var sampleSchema []byte

// Document is the YAML form of a schema description
type Document struct {
	Enums    map[string][]string      `yaml:"enums"`
	Mixins   map[string][]PropertyDoc `yaml:"mixins"`
	Entities []EntityDoc              `yaml:"entities"`
}

// EntityDoc declares one entity. Properties from the listed mixins are added
// first, in the order the mixins are named.
type EntityDoc struct {
	Name       string        `yaml:"name"`
	Label      string        `yaml:"label"`
	Include    []string      `yaml:"include"`
	Properties []PropertyDoc `yaml:"properties"`
}

// PropertyDoc declares one property. Ref names the enum or target entity;
// Elem names the element entity (or scalar type) of a collection.
type PropertyDoc struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Ref       string `yaml:"ref"`
	Elem      string `yaml:"elem"`
	Label     string `yaml:"label"`
	Tooltips  string `yaml:"tooltips"`
	Required  bool   `yaml:"required"`
	Unique    bool   `yaml:"unique"`
	ReadOnly  bool   `yaml:"readonly"`
	Lob       bool   `yaml:"lob"`
	MaxLength int    `yaml:"max_length"`
	MinLength int    `yaml:"min_length"`
	Pattern   string `yaml:"pattern"`
}

// Load parses a YAML schema description and builds a validated registry
func Load(r io.Reader) (*Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return doc.Build()
}

// LoadFile reads a schema description from disk
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// LoadSample returns the schema compiled into the binary
func LoadSample() (*Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(sampleSchema, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode embedded schema: %w", err)
	}
	return doc.Build()
}

// Build converts the document into a registry
func (d *Document) Build() (*Registry, error) {
	reg := NewRegistry()

	for name, values := range d.Enums {
		if len(values) == 0 {
			return nil, fmt.Errorf("enum %s has no constants", name)
		}
		reg.AddEnum(NewEnum(name, values...))
	}

	for _, ed := range d.Entities {
		if ed.Name == "" {
			return nil, fmt.Errorf("entity without a name")
		}
		if _, err := reg.Entity(ed.Name); err == nil {
			return nil, fmt.Errorf("entity %s declared twice", ed.Name)
		}

		entity := NewEntity(ed.Name)
		entity.Label = ed.Label

		var props []PropertyDoc
		for _, mixin := range ed.Include {
			mp, ok := d.Mixins[mixin]
			if !ok {
				return nil, fmt.Errorf("entity %s includes unknown mixin %q", ed.Name, mixin)
			}
			props = append(props, mp...)
		}
		props = append(props, ed.Properties...)

		for _, pd := range props {
			prop, err := pd.build()
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", ed.Name, err)
			}
			entity.Add(prop)
		}
		reg.AddEntity(entity)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (pd PropertyDoc) build() (Property, error) {
	if pd.Name == "" {
		return Property{}, fmt.Errorf("property without a name")
	}

	kind, err := ParseKind(pd.Type)
	if err != nil {
		return Property{}, fmt.Errorf("property %s: %w", pd.Name, err)
	}

	prop := Property{
		Name:      pd.Name,
		Type:      Type{Kind: kind},
		Label:     pd.Label,
		Tooltips:  pd.Tooltips,
		Required:  pd.Required,
		Unique:    pd.Unique,
		ReadOnly:  pd.ReadOnly,
		Lob:       pd.Lob,
		MaxLength: pd.MaxLength,
		MinLength: pd.MinLength,
		Pattern:   pd.Pattern,
	}

	switch kind {
	case KindEnum, KindEntity:
		if pd.Ref == "" {
			return Property{}, fmt.Errorf("property %s: %s type requires ref", pd.Name, kind)
		}
		prop.Type.Ref = pd.Ref
	case KindCollection:
		// an empty elem is allowed and reported when the path is resolved
		if pd.Elem != "" {
			elem := elemType(pd.Elem)
			prop.Elem = &elem
		}
	}

	return prop, nil
}

func elemType(name string) Type {
	if kind, err := ParseKind(name); err == nil && kind != KindEntity && kind != KindCollection && kind != KindEnum {
		return Type{Kind: kind}
	}
	return EntityOf(name)
}
