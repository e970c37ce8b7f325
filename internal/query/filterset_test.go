package query

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

func newTestBuilder() (*Builder, *countingRecorder) {
	reg := testRegistry()
	rec := newCountingRecorder()
	return NewBuilder(reg, &Coercer{Enums: reg, Location: time.UTC, Recorder: rec}), rec
}

func TestBuilder_BuildFilter(t *testing.T) {
	b, rec := newTestBuilder()
	line := schema.EntityOf("Line")

	tests := []struct {
		name       string
		key        string
		values     []string
		operator   Operator
		properties []string
		value      any
		typ        schema.Type
		subquery   *schema.Type
	}{
		{
			name:       "simple equal",
			key:        "EQ_code",
			values:     []string{"A-1"},
			operator:   OpEqual,
			properties: []string{"code"},
			value:      "A-1",
			typ:        schema.String,
		},
		{
			name:       "in list",
			key:        "IN_status",
			values:     []string{"1,2,3"},
			operator:   OpIn,
			properties: []string{"status"},
			value:      []any{int32(1), int32(2), int32(3)},
			typ:        schema.Integer,
		},
		{
			name:       "or group resolves first property",
			key:        "CN_code_OR_name",
			values:     []string{"abc"},
			operator:   OpContains,
			properties: []string{"code", "name"},
			value:      "abc",
			typ:        schema.String,
		},
		{
			name:       "nested relation",
			key:        "BT_customer.signupDate",
			values:     []string{"2020-01-01 ~ 2020-01-31"},
			operator:   OpBetween,
			properties: []string{"customer.signupDate"},
			value:      []any{day(2020, 1, 1), day(2020, 1, 31)},
			typ:        schema.Date,
		},
		{
			name:       "collection hop sets subquery type",
			key:        "EQ_lines.sku",
			values:     []string{"SKU-9"},
			operator:   OpEqual,
			properties: []string{"lines.sku"},
			value:      "SKU-9",
			typ:        schema.String,
			subquery:   &line,
		},
		{
			name:       "count aggregate is integer",
			key:        "GT_count(lines)",
			values:     []string{"3"},
			operator:   OpGreaterThan,
			properties: []string{"count(lines)"},
			value:      int32(3),
			typ:        schema.Integer,
		},
		{
			name:       "aggregate later in or group decides the type",
			key:        "GT_code_OR_count(lines)",
			values:     []string{"3"},
			operator:   OpGreaterThan,
			properties: []string{"code", "count(lines)"},
			value:      int32(3),
			typ:        schema.Integer,
		},
		{
			name:       "not null on string",
			key:        "NN_name",
			values:     []string{"true"},
			operator:   OpNotNull,
			properties: []string{"name"},
			value:      true,
			typ:        schema.String,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := b.BuildFilter("Order", tt.key, tt.values...)
			require.NoError(t, err)
			assert.Equal(t, tt.operator, f.Operator)
			assert.Equal(t, tt.properties, f.PropertyNames)
			assert.Equal(t, tt.value, f.Value)
			assert.Equal(t, tt.typ, f.Type)
			assert.Equal(t, tt.subquery, f.Subquery)
		})
	}

	assert.Equal(t, 1, rec.built[OpIn])
}

func TestBuilder_BuildFilter_Errors(t *testing.T) {
	b, _ := newTestBuilder()

	t.Run("invalid name", func(t *testing.T) {
		_, err := b.BuildFilter("Order", "ZZ_code", "x")
		assert.ErrorIs(t, err, ErrInvalidFilterName)
	})

	t.Run("unknown property", func(t *testing.T) {
		_, err := b.BuildFilter("Order", "EQ_missing", "x")
		assert.ErrorIs(t, err, schema.ErrPropertyResolution)
		assert.Contains(t, err.Error(), "Order")
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("second collection hop", func(t *testing.T) {
		_, err := b.BuildFilter("Order", "EQ_lines.order.lines.sku", "x")
		assert.ErrorIs(t, err, schema.ErrUnsupportedPath)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := b.BuildFilter("Order", "EQ_status", "many")
		assert.ErrorIs(t, err, ErrValueCoercion)
	})

	t.Run("enum lookup", func(t *testing.T) {
		_, err := b.BuildFilter("Order", "EQ_state", "LOST")
		var lookupErr *schema.EnumLookupError
		assert.True(t, errors.As(err, &lookupErr))
	})
}

func TestBuilder_Build(t *testing.T) {
	b, _ := newTestBuilder()

	params := url.Values{}
	params.Set("search['EQ_code']", "A-1")
	params.Set("search['IN_status']", "1,2")
	params.Set("search['CN_name']", "   ")
	params["search['NI_code']"] = []string{"x", "y", "x", ""}
	params.Set("rows", "10")
	params.Set("other", "ignored")

	filters, err := b.Build("Order", params)
	require.NoError(t, err)
	require.Len(t, filters, 3, "blank single value is skipped")

	// built in key order
	assert.Equal(t, OpEqual, filters[0].Operator)
	assert.Equal(t, OpIn, filters[1].Operator)
	assert.Equal(t, OpNotIn, filters[2].Operator)

	assert.Equal(t, []any{int32(1), int32(2)}, filters[1].Value)
	assert.Equal(t, []any{"x", "y"}, filters[2].Value, "repeated values are de-duplicated and blanks dropped")
}

func TestBuilder_Build_ErrorIsNotWrapped(t *testing.T) {
	b, _ := newTestBuilder()

	params := url.Values{}
	params.Set("search['EQ_state']", "LOST")

	_, err := b.Build("Order", params)
	_, ok := err.(*schema.EnumLookupError)
	assert.True(t, ok)
}

func TestBuilder_WithDecoration(t *testing.T) {
	b, _ := newTestBuilder()
	b.WithDecoration("f.", "")

	params := url.Values{}
	params.Set("f.EQ_code", "A-1")
	params.Set("search['EQ_code']", "B-2")

	filters, err := b.Build("Order", params)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "A-1", filters[0].Value)
}

func TestExtractParams(t *testing.T) {
	params := url.Values{
		"search['EQ_id']": {"1"},
		"search['":        {"too short"},
		"search[EQ_id]":   {"wrong"},
		"rows":            {"10"},
	}

	got := ExtractParams(params, "search['", "']")
	assert.Equal(t, map[string][]string{"EQ_id": {"1"}}, got)

	all := ExtractParams(url.Values{"a": {"1"}}, "", "")
	assert.Equal(t, map[string][]string{"a": {"1"}}, all)
}

func TestCleanValues(t *testing.T) {
	assert.Nil(t, cleanValues([]string{""}))
	assert.Nil(t, cleanValues([]string{"  "}))
	assert.Equal(t, []string{"a"}, cleanValues([]string{"a"}))
	assert.Equal(t, []string{"b", "a"}, cleanValues([]string{"b", "", "a", "b"}))
	assert.Empty(t, cleanValues([]string{"", " "}))
}
