// Package schema provides the static entity description that filter property
// paths are resolved against. A Registry is built once at startup (from YAML,
// from the embedded sample, or from a Postgres inspection) and is read
// concurrently afterwards without locking.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a property type
type Kind string

const (
	KindString     Kind = "string"
	KindInteger    Kind = "integer"
	KindLong       Kind = "long"
	KindFloat      Kind = "float"
	KindDecimal    Kind = "decimal"
	KindBoolean    Kind = "boolean"
	KindDate       Kind = "date"
	KindDateTime   Kind = "datetime"
	KindEnum       Kind = "enum"
	KindUUID       Kind = "uuid"
	KindEntity     Kind = "entity"     // single-valued relation
	KindCollection Kind = "collection" // one-to-many relation
)

var kinds = map[string]Kind{
	"string":     KindString,
	"text":       KindString,
	"integer":    KindInteger,
	"int":        KindInteger,
	"long":       KindLong,
	"float":      KindFloat,
	"double":     KindFloat,
	"decimal":    KindDecimal,
	"boolean":    KindBoolean,
	"bool":       KindBoolean,
	"date":       KindDate,
	"datetime":   KindDateTime,
	"timestamp":  KindDateTime,
	"enum":       KindEnum,
	"uuid":       KindUUID,
	"entity":     KindEntity,
	"collection": KindCollection,
}

// ParseKind maps a declared type name to a Kind
func ParseKind(s string) (Kind, error) {
	if k, ok := kinds[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown property type %q", s)
}

// Type is a property's declared type. Ref names the enum for KindEnum and the
// target entity for KindEntity.
type Type struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Ref  string `json:"ref,omitempty" yaml:"ref,omitempty"`
}

var (
	String   = Type{Kind: KindString}
	Integer  = Type{Kind: KindInteger}
	Long     = Type{Kind: KindLong}
	Float    = Type{Kind: KindFloat}
	Decimal  = Type{Kind: KindDecimal}
	Boolean  = Type{Kind: KindBoolean}
	Date     = Type{Kind: KindDate}
	DateTime = Type{Kind: KindDateTime}
	UUID     = Type{Kind: KindUUID}
)

// EnumOf returns the type of a property holding constants of the named enum
func EnumOf(name string) Type {
	return Type{Kind: KindEnum, Ref: name}
}

// EntityOf returns the type of a single-valued relation to the named entity
func EntityOf(name string) Type {
	return Type{Kind: KindEntity, Ref: name}
}

// IsTemporal reports whether values of this type are dates or timestamps
func (t Type) IsTemporal() bool {
	return t.Kind == KindDate || t.Kind == KindDateTime
}

func (t Type) String() string {
	if t.Ref != "" {
		return fmt.Sprintf("%s<%s>", t.Kind, t.Ref)
	}
	return string(t.Kind)
}

// Property describes one accessor of an entity.
type Property struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
	// Elem is the declared element type of a collection. A collection
	// without one cannot be traversed.
	Elem *Type `json:"elem,omitempty" yaml:"elem,omitempty"`

	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Tooltips  string `json:"tooltips,omitempty" yaml:"tooltips,omitempty"`
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Unique    bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
	ReadOnly  bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Lob       bool   `json:"lob,omitempty" yaml:"lob,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	MinLength int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// IsCollection reports whether the property is a one-to-many relation
func (p *Property) IsCollection() bool {
	return p.Type.Kind == KindCollection
}

// Entity is a named set of properties
type Entity struct {
	Name       string
	Label      string
	properties map[string]*Property
	order      []string
}

// NewEntity creates an empty entity description
func NewEntity(name string) *Entity {
	return &Entity{
		Name:       name,
		properties: make(map[string]*Property),
	}
}

// Add registers a property, replacing any earlier one with the same name
func (e *Entity) Add(p Property) *Entity {
	if _, exists := e.properties[p.Name]; !exists {
		e.order = append(e.order, p.Name)
	}
	prop := p
	e.properties[p.Name] = &prop
	return e
}

// Property returns the named property
func (e *Entity) Property(name string) (*Property, bool) {
	p, ok := e.properties[name]
	return p, ok
}

// Properties returns all properties in declaration order
func (e *Entity) Properties() []*Property {
	props := make([]*Property, 0, len(e.order))
	for _, name := range e.order {
		props = append(props, e.properties[name])
	}
	return props
}

// Enum is a closed set of named constants. Lookup is exact and case-sensitive.
type Enum struct {
	Name   string
	values []string
	index  map[string]struct{}
}

// NewEnum creates an enum with the given constants
func NewEnum(name string, values ...string) *Enum {
	e := &Enum{
		Name:   name,
		values: append([]string(nil), values...),
		index:  make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		e.index[v] = struct{}{}
	}
	return e
}

// Lookup returns the constant matching s exactly
func (e *Enum) Lookup(s string) (string, bool) {
	if _, ok := e.index[s]; ok {
		return s, true
	}
	return "", false
}

// Values returns the declared constants in order
func (e *Enum) Values() []string {
	return append([]string(nil), e.values...)
}

// Provider is the schema collaborator consumed by the resolver and coercer
type Provider interface {
	Entity(name string) (*Entity, error)
	Enum(name string) (*Enum, bool)
}

// Registry is the default Provider. It must be fully populated before it is
// shared; afterwards it is read-only.
type Registry struct {
	entities map[string]*Entity
	enums    map[string]*Enum
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		enums:    make(map[string]*Enum),
	}
}

// AddEntity registers an entity
func (r *Registry) AddEntity(e *Entity) {
	r.entities[e.Name] = e
}

// AddEnum registers an enum
func (r *Registry) AddEnum(e *Enum) {
	r.enums[e.Name] = e
}

// Entity returns the named entity or ErrUnknownEntity
func (r *Registry) Entity(name string) (*Entity, error) {
	if e, ok := r.entities[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
}

// Enum returns the named enum
func (r *Registry) Enum(name string) (*Enum, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// EntityNames returns all entity names sorted
func (r *Registry) EntityNames() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every entity and enum reference points at a
// registered declaration.
func (r *Registry) Validate() error {
	for _, name := range r.EntityNames() {
		for _, p := range r.entities[name].Properties() {
			if err := r.checkRef(p.Type); err != nil {
				return fmt.Errorf("%s.%s: %w", name, p.Name, err)
			}
			if p.Elem != nil {
				if err := r.checkRef(*p.Elem); err != nil {
					return fmt.Errorf("%s.%s: %w", name, p.Name, err)
				}
			}
		}
	}
	return nil
}

func (r *Registry) checkRef(t Type) error {
	switch t.Kind {
	case KindEnum:
		if _, ok := r.enums[t.Ref]; !ok {
			return fmt.Errorf("unknown enum %q", t.Ref)
		}
	case KindEntity:
		if _, ok := r.entities[t.Ref]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEntity, t.Ref)
		}
	}
	return nil
}
