// Package validation derives client-side validation rules from entity
// descriptions and caches them behind opaque, stable ids.
package validation

import (
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// Rule names understood by the form validation scripts
const (
	RuleRequired  = "required"
	RuleUnique    = "unique"
	RuleReadOnly  = "readonly"
	RuleMaxLength = "maxlength"
	RuleMinLength = "minlength"
	RuleRegex     = "regex"
	RuleTooltips  = "tooltips"
	RuleDate      = "date"
	RuleTimestamp = "timestamp"
	RuleNumber    = "number"
	RuleDigits    = "digits"
)

// FieldRules maps a rule name to its argument
type FieldRules map[string]any

// Rules maps a property name to its rules
type Rules map[string]FieldRules

// skipped properties never get rules
var skipped = map[string]bool{
	"id":      true,
	"version": true,
}

// BuildRules computes the rule map of an entity. Collections, id and version
// are skipped, as are properties without any rule.
func BuildRules(e *schema.Entity) Rules {
	rules := make(Rules)

	for _, p := range e.Properties() {
		if skipped[p.Name] || p.IsCollection() {
			continue
		}

		fr := make(FieldRules)

		if p.Tooltips != "" {
			fr[RuleTooltips] = p.Tooltips
		}
		if p.Required && p.Type.Kind != schema.KindBoolean {
			fr[RuleRequired] = true
		}
		if p.Unique {
			fr[RuleUnique] = true
		}
		if p.ReadOnly {
			fr[RuleReadOnly] = true
		}
		if p.MaxLength > 0 && p.Type.Kind == schema.KindString && !p.Lob {
			fr[RuleMaxLength] = p.MaxLength
		}

		switch p.Type.Kind {
		case schema.KindDate:
			fr[RuleDate] = true
		case schema.KindDateTime:
			fr[RuleTimestamp] = true
		case schema.KindDecimal, schema.KindFloat:
			fr[RuleNumber] = true
		case schema.KindInteger, schema.KindLong:
			fr[RuleDigits] = true
		}

		if p.MinLength > 0 {
			fr[RuleMinLength] = p.MinLength
		}
		if p.Pattern != "" {
			fr[RuleRegex] = p.Pattern
		}

		if len(fr) > 0 {
			rules[p.Name] = fr
		}
	}

	return rules
}
