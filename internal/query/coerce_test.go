package query

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

func newTestCoercer() *Coercer {
	return &Coercer{Enums: testRegistry(), Location: time.UTC}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type countingRecorder struct {
	built    map[Operator]int
	failures map[schema.Kind]int
	degraded int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{built: map[Operator]int{}, failures: map[schema.Kind]int{}}
}

func (r *countingRecorder) FilterBuilt(op Operator)         { r.built[op]++ }
func (r *countingRecorder) CoercionFailed(kind schema.Kind) { r.failures[kind]++ }
func (r *countingRecorder) DateDegraded()                   { r.degraded++ }

func TestCoerce_Scalars(t *testing.T) {
	c := newTestCoercer()
	ref := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name     string
		typ      schema.Type
		op       Operator
		raw      string
		expected any
	}{
		{name: "string", typ: schema.String, op: OpContains, raw: "abc", expected: "abc"},
		{name: "string keeps whitespace", typ: schema.String, op: OpEqual, raw: " a b ", expected: " a b "},
		{name: "integer", typ: schema.Integer, op: OpEqual, raw: "42", expected: int32(42)},
		{name: "long", typ: schema.Long, op: OpGreaterThan, raw: "9000000000", expected: int64(9000000000)},
		{name: "float", typ: schema.Float, op: OpLessThan, raw: "1.5", expected: 1.5},
		{name: "uuid", typ: schema.UUID, op: OpEqual, raw: ref.String(), expected: ref},
		{name: "enum", typ: schema.EnumOf("OrderState"), op: OpEqual, raw: "PAID", expected: "PAID"},
		{name: "boolean true", typ: schema.Boolean, op: OpEqual, raw: "true", expected: true},
		{name: "boolean yes", typ: schema.Boolean, op: OpEqual, raw: "YES", expected: true},
		{name: "boolean on", typ: schema.Boolean, op: OpEqual, raw: "on", expected: true},
		{name: "boolean unrecognised is false", typ: schema.Boolean, op: OpEqual, raw: "maybe", expected: false},
		{name: "not-null operator forces boolean", typ: schema.String, op: OpNotNull, raw: "true", expected: true},
		{name: "null operator forces boolean", typ: schema.Long, op: OpNull, raw: "x", expected: false},
		{name: "date", typ: schema.Date, op: OpEqual, raw: "2020-01-15", expected: day(2020, 1, 15)},
		{name: "date with seconds", typ: schema.DateTime, op: OpEqual, raw: "2020-01-15 10:20:30", expected: time.Date(2020, 1, 15, 10, 20, 30, 0, time.UTC)},
		{name: "date with minutes", typ: schema.DateTime, op: OpEqual, raw: "2020-01-15 10:20", expected: time.Date(2020, 1, 15, 10, 20, 0, 0, time.UTC)},
		{name: "month", typ: schema.Date, op: OpGreaterOrEqual, raw: "2020-03", expected: day(2020, 3, 1)},
		{name: "null sentinel", typ: schema.Long, op: OpEqual, raw: "NULL", expected: "NULL"},
		{name: "null sentinel any case", typ: schema.EnumOf("OrderState"), op: OpEqual, raw: "null", expected: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Coerce(tt.typ, tt.op, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCoerce_Decimal(t *testing.T) {
	c := newTestCoercer()

	got, err := c.Coerce(schema.Decimal, OpGreaterThan, "12.50")
	require.NoError(t, err)

	n, ok := got.(pgtype.Numeric)
	require.True(t, ok)
	assert.True(t, n.Valid)

	f, err := n.Float64Value()
	require.NoError(t, err)
	assert.InDelta(t, 12.5, f.Float64, 1e-9)
}

func TestCoerce_InList(t *testing.T) {
	c := newTestCoercer()

	t.Run("splits on comma", func(t *testing.T) {
		got, err := c.Coerce(schema.Integer, OpIn, "1,2,3")
		require.NoError(t, err)
		assert.Equal(t, []any{int32(1), int32(2), int32(3)}, got)
	})

	t.Run("not in trims items", func(t *testing.T) {
		got, err := c.Coerce(schema.String, OpNotIn, "a, b ,c")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, got)
	})

	t.Run("single item stays scalar", func(t *testing.T) {
		got, err := c.Coerce(schema.Integer, OpIn, "7")
		require.NoError(t, err)
		assert.Equal(t, int32(7), got)
	})

	t.Run("trailing empty items are dropped", func(t *testing.T) {
		got, err := c.Coerce(schema.Integer, OpIn, "1,2,")
		require.NoError(t, err)
		assert.Equal(t, []any{int32(1), int32(2)}, got)

		got, err = c.Coerce(schema.String, OpNotIn, "a,b, ,")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, got)
	})

	t.Run("inner empty items are kept", func(t *testing.T) {
		got, err := c.Coerce(schema.String, OpIn, "a,,b")
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "", "b"}, got)
	})

	t.Run("other operators do not split", func(t *testing.T) {
		got, err := c.Coerce(schema.String, OpEqual, "1,2,3")
		require.NoError(t, err)
		assert.Equal(t, "1,2,3", got)
	})

	t.Run("null sentinel is not split", func(t *testing.T) {
		got, err := c.Coerce(schema.Integer, OpIn, "NULL")
		require.NoError(t, err)
		assert.Equal(t, "NULL", got)
	})

	t.Run("enum list", func(t *testing.T) {
		got, err := c.Coerce(schema.EnumOf("OrderState"), OpIn, "OPEN,PAID")
		require.NoError(t, err)
		assert.Equal(t, []any{"OPEN", "PAID"}, got)
	})

	t.Run("repeated raw values are not split again", func(t *testing.T) {
		got, err := c.Coerce(schema.Integer, OpIn, "1", "2")
		require.NoError(t, err)
		assert.Equal(t, []any{int32(1), int32(2)}, got)
	})
}

func TestCoerce_DateRange(t *testing.T) {
	c := newTestCoercer()

	t.Run("between yields both bounds", func(t *testing.T) {
		got, err := c.Coerce(schema.Date, OpBetween, "2020-01-01 ~ 2020-01-31")
		require.NoError(t, err)
		assert.Equal(t, []any{day(2020, 1, 1), day(2020, 1, 31)}, got)
	})

	t.Run("full width marker", func(t *testing.T) {
		got, err := c.Coerce(schema.Date, OpBetween, "2020-01-01 ～ 2020-01-31")
		require.NoError(t, err)
		assert.Equal(t, []any{day(2020, 1, 1), day(2020, 1, 31)}, got)
	})

	t.Run("datetime bounds", func(t *testing.T) {
		got, err := c.Coerce(schema.DateTime, OpBetween, "2020-01-01 08:00 ~ 2020-01-01 18:00")
		require.NoError(t, err)
		assert.Equal(t, []any{
			time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 1, 18, 0, 0, 0, time.UTC),
		}, got)
	})

	for _, op := range []Operator{OpEqual, OpGreaterOrEqual, OpLessThan, OpNotEqual} {
		t.Run("range collapses to first bound for "+string(op), func(t *testing.T) {
			got, err := c.Coerce(schema.Date, op, "2020-01-01 ~ 2020-01-31")
			require.NoError(t, err)
			assert.Equal(t, day(2020, 1, 1), got)
		})
	}

	t.Run("range on non-temporal type is untouched", func(t *testing.T) {
		got, err := c.Coerce(schema.String, OpBetween, "a ~ b")
		require.NoError(t, err)
		assert.Equal(t, "a ~ b", got)
	})

	t.Run("between with one bound", func(t *testing.T) {
		_, err := c.Coerce(schema.Date, OpBetween, "2020-01-01 ~ ")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValueCoercion)
	})

	t.Run("marker without whitespace is a single value", func(t *testing.T) {
		got, err := c.Coerce(schema.Date, OpBetween, "2020-01-01~2020-01-31")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCoerce_DateParseFailureDegradesToNil(t *testing.T) {
	rec := newCountingRecorder()
	c := newTestCoercer()
	c.Recorder = rec

	got, err := c.Coerce(schema.Date, OpEqual, "15/01/2020")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, rec.degraded)
}

func TestCoerce_Errors(t *testing.T) {
	rec := newCountingRecorder()
	c := newTestCoercer()
	c.Recorder = rec

	tests := []struct {
		name string
		typ  schema.Type
		op   Operator
		raw  []string
	}{
		{name: "integer", typ: schema.Integer, op: OpEqual, raw: []string{"abc"}},
		{name: "integer overflow", typ: schema.Integer, op: OpEqual, raw: []string{"3000000000"}},
		{name: "long", typ: schema.Long, op: OpEqual, raw: []string{"1.5"}},
		{name: "float", typ: schema.Float, op: OpEqual, raw: []string{"x"}},
		{name: "decimal", typ: schema.Decimal, op: OpEqual, raw: []string{"twelve"}},
		{name: "uuid", typ: schema.UUID, op: OpEqual, raw: []string{"not-a-uuid"}},
		{name: "entity", typ: schema.EntityOf("Customer"), op: OpEqual, raw: []string{"1"}},
		{name: "list item", typ: schema.Long, op: OpIn, raw: []string{"1,x,3"}},
		{name: "no values", typ: schema.String, op: OpEqual, raw: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Coerce(tt.typ, tt.op, tt.raw...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValueCoercion)

			var coercionErr *CoercionError
			assert.True(t, errors.As(err, &coercionErr))
		})
	}

	assert.NotZero(t, rec.failures[schema.KindInteger])
}

func TestCoerce_EnumLookupIsNotWrapped(t *testing.T) {
	c := newTestCoercer()

	_, err := c.Coerce(schema.EnumOf("OrderState"), OpEqual, "paid")
	require.Error(t, err)

	lookupErr, ok := err.(*schema.EnumLookupError)
	require.True(t, ok, "expected a bare *schema.EnumLookupError, got %T", err)
	assert.Equal(t, "OrderState", lookupErr.Enum)
	assert.Equal(t, "paid", lookupErr.Value)
	assert.False(t, errors.Is(err, ErrValueCoercion))
}

func TestCoerce_UnknownEnum(t *testing.T) {
	c := newTestCoercer()

	_, err := c.Coerce(schema.EnumOf("Missing"), OpEqual, "A")
	var lookupErr *schema.EnumLookupError
	require.True(t, errors.As(err, &lookupErr))
}

func TestCoerce_MultipleValues(t *testing.T) {
	t.Run("each value is coerced on its own", func(t *testing.T) {
		c := newTestCoercer()
		got, err := c.Coerce(schema.Long, OpBetween, "10", "20")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(10), int64(20)}, got)
	})

	t.Run("first value mode repeats the first value", func(t *testing.T) {
		c := newTestCoercer()
		c.FirstValueOnly = true

		got, err := c.Coerce(schema.Long, OpBetween, "10", "20")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(10), int64(10)}, got)
	})

	t.Run("first value mode with a list", func(t *testing.T) {
		c := newTestCoercer()
		c.FirstValueOnly = true

		got, err := c.Coerce(schema.Integer, OpIn, "1,2,3")
		require.NoError(t, err)
		assert.Equal(t, []any{int32(1), int32(1), int32(1)}, got)
	})

	t.Run("null sentinel inside a list", func(t *testing.T) {
		c := newTestCoercer()
		got, err := c.Coerce(schema.Long, OpIn, "1,NULL")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), "NULL"}, got)
	})
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "on", "yes", "y", "t", "1", " True "} {
		assert.True(t, ParseBool(s), s)
	}
	for _, s := range []string{"false", "off", "no", "0", "", "enabled"} {
		assert.False(t, ParseBool(s), s)
	}
}
