package query

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// Default request parameter decoration around a filter key
const (
	DefaultFilterPrefix = "search['"
	DefaultFilterSuffix = "']"
)

// Builder assembles filters from request parameters for one schema
type Builder struct {
	schema  schema.Provider
	coercer *Coercer
	prefix  string
	suffix  string
}

// NewBuilder creates a filter builder. A nil coercer gets one backed by p.
func NewBuilder(p schema.Provider, coercer *Coercer) *Builder {
	if coercer == nil {
		coercer = NewCoercer(p)
	}
	return &Builder{
		schema:  p,
		coercer: coercer,
		prefix:  DefaultFilterPrefix,
		suffix:  DefaultFilterSuffix,
	}
}

// WithDecoration changes the prefix and suffix that mark filter parameters
func (b *Builder) WithDecoration(prefix, suffix string) *Builder {
	b.prefix = prefix
	b.suffix = suffix
	return b
}

// BuildFilter builds one filter from an undecorated key such as "EQ_id"
func (b *Builder) BuildFilter(entity, key string, values ...string) (*Filter, error) {
	op, names, err := ParseFilterName(key)
	if err != nil {
		return nil, err
	}

	res, err := schema.Resolve(b.schema, entity, typedName(names))
	if err != nil {
		return nil, err
	}

	value, err := b.coercer.Coerce(res.Type, op, values...)
	if err != nil {
		return nil, err
	}

	b.coercer.recorder().FilterBuilt(op)
	log.Debug().
		Str("key", key).
		Str("operator", string(op)).
		Strs("properties", names).
		Str("type", res.Type.String()).
		Msg("Built filter")

	return &Filter{
		Operator:      op,
		PropertyNames: names,
		Value:         value,
		Type:          res.Type,
		Subquery:      res.Subquery,
	}, nil
}

// Build extracts every decorated filter parameter and builds the filters in
// key order. A single blank value skips the parameter. Repeated values are
// de-duplicated and blank ones dropped.
func (b *Builder) Build(entity string, params url.Values) (FilterSet, error) {
	extracted := ExtractParams(params, b.prefix, b.suffix)

	keys := make([]string, 0, len(extracted))
	for key := range extracted {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	filters := make(FilterSet, 0, len(keys))
	for _, key := range keys {
		values := cleanValues(extracted[key])
		if len(values) == 0 {
			continue
		}

		f, err := b.BuildFilter(entity, key, values...)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return filters, nil
}

// ExtractParams returns the parameters whose names carry prefix and suffix,
// keyed by the undecorated name. An empty prefix or suffix matches anything.
func ExtractParams(params url.Values, prefix, suffix string) map[string][]string {
	out := make(map[string][]string)
	for name, values := range params {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if len(name) < len(prefix)+len(suffix) {
			continue
		}
		key := name[len(prefix) : len(name)-len(suffix)]
		if len(values) > 0 {
			out[key] = values
		}
	}
	return out
}

func cleanValues(values []string) []string {
	if len(values) == 1 {
		if strings.TrimSpace(values[0]) == "" {
			return nil
		}
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// typedName picks the property that determines the value type of an
// OR-group: an aggregate anywhere in the group wins, otherwise the first name.
func typedName(names []string) string {
	for _, name := range names {
		if strings.Contains(name, "count(") {
			return name
		}
	}
	for _, name := range names {
		if strings.Contains(name, "(") {
			return name
		}
	}
	return names[0]
}
