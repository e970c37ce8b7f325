package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// NullValue is passed through uncoerced and asks for a null test
const NullValue = "NULL"

// Recorder receives coercion and build events. The observability package
// provides a prometheus backed implementation.
type Recorder interface {
	FilterBuilt(op Operator)
	CoercionFailed(kind schema.Kind)
	DateDegraded()
}

type nopRecorder struct{}

func (nopRecorder) FilterBuilt(Operator)       {}
func (nopRecorder) CoercionFailed(schema.Kind) {}
func (nopRecorder) DateDegraded()              {}

// Coercer converts raw request strings into typed match values
type Coercer struct {
	// Enums resolves enum constants; required when enum properties are filtered
	Enums schema.Provider
	// Location is used for dates without a zone. Defaults to time.Local.
	Location *time.Location
	// FirstValueOnly coerces every slot of a multi-value result from the
	// first raw value. Older clients relied on this.
	FirstValueOnly bool
	Recorder       Recorder
}

// NewCoercer creates a Coercer that resolves enums through p
func NewCoercer(p schema.Provider) *Coercer {
	return &Coercer{Enums: p, Location: time.Local}
}

func (c *Coercer) recorder() Recorder {
	if c.Recorder == nil {
		return nopRecorder{}
	}
	return c.Recorder
}

// Coerce converts raw values for a property of type t compared with op.
// One remaining raw value yields a scalar, more yield a []any.
//
// Enum lookup failures are returned as *schema.EnumLookupError without
// wrapping. Unparseable dates yield a nil value and no error.
func (c *Coercer) Coerce(t schema.Type, op Operator, raw ...string) (any, error) {
	values, err := c.normalize(t, op, raw)
	if err != nil {
		return nil, err
	}

	if len(values) == 1 {
		return c.coerceOne(t, op, values[0])
	}

	result := make([]any, len(values))
	for i, v := range values {
		if c.FirstValueOnly {
			v = values[0]
		}
		coerced, err := c.coerceOne(t, op, v)
		if err != nil {
			return nil, err
		}
		result[i] = coerced
	}

	if c.FirstValueOnly && !allEqual(values) {
		log.Warn().
			Str("operator", string(op)).
			Strs("values", values).
			Msg("Multi-value filter coerced from its first value only")
	}

	return result, nil
}

// normalize applies list splitting and date range handling to a single raw value
func (c *Coercer) normalize(t schema.Type, op Operator, raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, &CoercionError{Type: t, Err: fmt.Errorf("no value")}
	}
	if len(raw) != 1 {
		return raw, nil
	}

	value := raw[0]
	if strings.EqualFold(value, NullValue) {
		return raw, nil
	}

	if op.IsListOperator() {
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		// trailing empty items are dropped, "1,2," lists two values
		for len(items) > 1 && items[len(items)-1] == "" {
			items = items[:len(items)-1]
		}
		return items, nil
	}

	if t.IsTemporal() {
		trimmed := normalizeRange(strings.TrimSpace(value))
		if isDateRange(trimmed) {
			bounds := splitRange(trimmed)
			if op == OpBetween {
				if len(bounds) != 2 {
					return nil, &CoercionError{Value: value, Type: t, Err: fmt.Errorf("between needs two bounds, got %d", len(bounds))}
				}
				return bounds, nil
			}
			if len(bounds) == 0 {
				return nil, &CoercionError{Value: value, Type: t, Err: fmt.Errorf("empty date range")}
			}
			return bounds[:1], nil
		}
	}

	return raw, nil
}

func (c *Coercer) coerceOne(t schema.Type, op Operator, value string) (any, error) {
	if strings.EqualFold(value, NullValue) {
		return value, nil
	}

	switch {
	case t.Kind == schema.KindEnum:
		return c.lookupEnum(t, value)
	case t.Kind == schema.KindBoolean || op == OpNotNull || op == OpNull:
		return ParseBool(value), nil
	case t.IsTemporal():
		parsed, ok := ParseMultiFormat(strings.TrimSpace(value), c.Location)
		if !ok {
			c.recorder().DateDegraded()
			log.Warn().
				Str("value", value).
				Strs("formats", MultiFormat).
				Msg("Unparseable date in filter value, matching against null")
			return nil, nil
		}
		return parsed, nil
	}

	v, err := convert(t, value)
	if err != nil {
		c.recorder().CoercionFailed(t.Kind)
		return nil, &CoercionError{Value: value, Type: t, Err: err}
	}
	return v, nil
}

func (c *Coercer) lookupEnum(t schema.Type, value string) (any, error) {
	if c.Enums != nil {
		if enum, ok := c.Enums.Enum(t.Ref); ok {
			if constant, ok := enum.Lookup(value); ok {
				return constant, nil
			}
		}
	}
	c.recorder().CoercionFailed(t.Kind)
	return nil, &schema.EnumLookupError{Enum: t.Ref, Value: value}
}

// convert parses value using the textual form of the target type
func convert(t schema.Type, value string) (any, error) {
	switch t.Kind {
	case schema.KindString:
		return value, nil
	case schema.KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case schema.KindLong:
		return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	case schema.KindFloat:
		return strconv.ParseFloat(strings.TrimSpace(value), 64)
	case schema.KindDecimal:
		var n pgtype.Numeric
		if err := n.Scan(strings.TrimSpace(value)); err != nil {
			return nil, err
		}
		return n, nil
	case schema.KindUUID:
		return uuid.Parse(strings.TrimSpace(value))
	default:
		return nil, fmt.Errorf("%s values have no textual form", t.Kind)
	}
}

// ParseBool accepts true, on, yes, y, t and 1 in any case. Everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "y", "t", "1":
		return true
	default:
		return false
	}
}

func allEqual(values []string) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
