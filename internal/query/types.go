// Package query turns request parameters into typed filter predicates and
// pagination/sort descriptors. It performs no I/O: the output is handed to
// whatever layer builds the concrete datastore query.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// Operator is the comparison kind encoded as the prefix of a filter key
type Operator string

const (
	OpBlank              Operator = "BK" // IS NULL OR = ''
	OpNotBlank           Operator = "NB" // IS NOT NULL AND != ''
	OpNull               Operator = "NU" // IS NULL
	OpNotNull            Operator = "NN" // IS NOT NULL
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NI"
	OpNotEqual           Operator = "NE"
	OpEqual              Operator = "EQ"
	OpContains           Operator = "CN" // LIKE %abc%
	OpNotContains        Operator = "NC"
	OpBeginsWith         Operator = "BW" // LIKE abc%
	OpNotBeginsWith      Operator = "BN"
	OpEndsWith           Operator = "EW" // LIKE %abc
	OpNotEndsWith        Operator = "EN"
	OpBetween            Operator = "BT"
	OpLessThan           Operator = "LT"
	OpGreaterThan        Operator = "GT"
	OpLessOrEqual        Operator = "LE"
	OpGreaterOrEqual     Operator = "GE"
	OpFetch              Operator = "FETCH"      // fetch join, no predicate
	OpPropertyLessEqual  Operator = "PLE"        // compares two properties
	OpPropertyLessThan   Operator = "PLT"        // compares two properties
	OpACLPrefix          Operator = "ACLPREFIXS" // matches any of a set of code prefixes
)

var operators = map[Operator]string{
	OpBlank:             "is blank",
	OpNotBlank:          "is not blank",
	OpNull:              "is null",
	OpNotNull:           "is not null",
	OpIn:                "in",
	OpNotIn:             "not in",
	OpNotEqual:          "not equal",
	OpEqual:             "equal",
	OpContains:          "contains",
	OpNotContains:       "does not contain",
	OpBeginsWith:        "begins with",
	OpNotBeginsWith:     "does not begin with",
	OpEndsWith:          "ends with",
	OpNotEndsWith:       "does not end with",
	OpBetween:           "between",
	OpLessThan:          "less",
	OpGreaterThan:       "greater",
	OpLessOrEqual:       "less or equal",
	OpGreaterOrEqual:    "greater or equal",
	OpFetch:             "fetch join",
	OpPropertyLessEqual: "property less or equal",
	OpPropertyLessThan:  "property less than",
	OpACLPrefix:         "acl prefix match",
}

// LookupOperator returns the operator with exactly this code
func LookupOperator(code string) (Operator, bool) {
	op := Operator(code)
	_, ok := operators[op]
	return op, ok
}

// Operators returns every operator code, sorted
func Operators() []Operator {
	ops := make([]Operator, 0, len(operators))
	for op := range operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Description returns a short human-readable name
func (o Operator) Description() string {
	return operators[o]
}

// IsListOperator reports whether the raw value is a comma-separated list
func (o Operator) IsListOperator() bool {
	return o == OpIn || o == OpNotIn
}

// OrSeparator joins the property names of an OR-group
const OrSeparator = "_OR_"

// Filter is one typed predicate.
//
// When PropertyNames holds more than one entry the operator is tested against
// any of them. Only the first name is resolved against the schema; the others
// are assumed to have the same type and are not checked.
type Filter struct {
	Operator      Operator     `json:"operator"`
	PropertyNames []string     `json:"properties"`
	Value         any          `json:"value"`
	Type          schema.Type  `json:"type"`
	Subquery      *schema.Type `json:"subquery,omitempty"`
}

// NewFilter builds a filter in code. The property name may be an OR-group
// such as "code_OR_name". Type information is left empty.
func NewFilter(op Operator, propertyName string, value any) *Filter {
	return &Filter{
		Operator:      op,
		PropertyNames: splitOrGroup(propertyName),
		Value:         value,
	}
}

// PropertyName returns the only property name of a non-grouped filter
func (f *Filter) PropertyName() (string, error) {
	if len(f.PropertyNames) != 1 {
		return "", fmt.Errorf("filter on %s has %d properties", strings.Join(f.PropertyNames, OrSeparator), len(f.PropertyNames))
	}
	return f.PropertyNames[0], nil
}

// HasMultiProperties reports whether the filter is an OR-group
func (f *Filter) HasMultiProperties() bool {
	return len(f.PropertyNames) > 1
}

// Values returns the match value as a slice, one entry per bound
func (f *Filter) Values() []any {
	if vs, ok := f.Value.([]any); ok {
		return vs
	}
	return []any{f.Value}
}

// FilterSet is the ordered list of filters built from one request
type FilterSet []*Filter

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Order is one sort key
type Order struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

// Sort is an ordered list of sort keys, primary key first
type Sort []Order

func (s Sort) String() string {
	parts := make([]string, 0, len(s))
	for _, o := range s {
		parts = append(parts, o.Property+" "+string(o.Direction))
	}
	return strings.Join(parts, ",")
}

// PageRequest describes one page. A nil *PageRequest means the caller asked
// for the whole unpaged result.
type PageRequest struct {
	// Page is zero-based
	Page int
	Size int
	// ExplicitOffset, when set, overrides Page*Size
	ExplicitOffset *int
	Sort           Sort
}

// Offset returns the first record position
func (p *PageRequest) Offset() int {
	if p.ExplicitOffset != nil {
		return *p.ExplicitOffset
	}
	return p.Page * p.Size
}

// Limit returns the page size
func (p *PageRequest) Limit() int {
	return p.Size
}

// Page is one page of an in-memory result
type Page[T any] struct {
	Content []T `json:"content"`
	Total   int `json:"total"`
	Offset  int `json:"offset"`
	Size    int `json:"size"`
}

// Paginate cuts one page out of items. A nil request returns everything.
func Paginate[T any](items []T, req *PageRequest) Page[T] {
	if req == nil {
		return Page[T]{Content: items, Total: len(items), Size: len(items)}
	}

	start := req.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + req.Limit()
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{
		Content: items[start:end],
		Total:   len(items),
		Offset:  req.Offset(),
		Size:    req.Limit(),
	}
}
