package output

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func newBufferedFormatter(format Format) (*Formatter, *bytes.Buffer) {
	var buf bytes.Buffer
	f := NewFormatter(format, false, false)
	f.Writer = &buf
	return f, &buf
}

func TestPrintTable(t *testing.T) {
	data := TableData{
		Headers: []string{"OPERATOR", "PROPERTY"},
		Rows: [][]string{
			{"EQ", "code"},
			{"IN", "authType"},
		},
	}

	t.Run("table", func(t *testing.T) {
		f, buf := newBufferedFormatter(FormatTable)
		require.NoError(t, f.PrintTable(data))

		out := buf.String()
		assert.Contains(t, out, "OPERATOR")
		assert.Contains(t, out, "authType")
	})

	t.Run("no headers", func(t *testing.T) {
		f, buf := newBufferedFormatter(FormatTable)
		f.NoHeaders = true
		require.NoError(t, f.PrintTable(data))
		assert.NotContains(t, buf.String(), "OPERATOR")
	})

	t.Run("json", func(t *testing.T) {
		f, buf := newBufferedFormatter(FormatJSON)
		require.NoError(t, f.PrintTable(data))

		out := buf.String()
		assert.Contains(t, out, `"operator": "EQ"`)
		assert.Contains(t, out, `"property": "authType"`)
	})

	t.Run("yaml", func(t *testing.T) {
		f, buf := newBufferedFormatter(FormatYAML)
		require.NoError(t, f.PrintTable(data))
		assert.Contains(t, buf.String(), "operator: EQ")
	})

	t.Run("quiet", func(t *testing.T) {
		f, buf := newBufferedFormatter(FormatTable)
		f.Quiet = true
		require.NoError(t, f.PrintTable(data))
		assert.Empty(t, buf.String())
	})
}

func TestPrint_YAMLUsesJSONTags(t *testing.T) {
	type entry struct {
		PropertyNames []string `json:"properties"`
	}

	f, buf := newBufferedFormatter(FormatYAML)
	require.NoError(t, f.Print(entry{PropertyNames: []string{"code", "name"}}))

	assert.Equal(t, "properties:\n  - code\n  - name\n", buf.String())
}

func TestPrintList(t *testing.T) {
	f, buf := newBufferedFormatter(FormatTable)
	require.NoError(t, f.PrintList([]string{"Role", "User"}))
	assert.Equal(t, "Role\nUser\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	id := uuid.MustParse("2b1e9c9e-7f43-4e1b-9a44-0d8e0f6a1c11")

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "<nil>"},
		{"string", "ROLE_ADMIN", "ROLE_ADMIN"},
		{"integer", int32(42), "42"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"timestamp", time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC), "2024-03-01 12:30:05"},
		{"uuid", id, "2b1e9c9e-7f43-4e1b-9a44-0d8e0f6a1c11"},
		{"decimal", pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, "123.45"},
		{"list", []any{"a", int64(2), nil}, "a, 2, <nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.value))
		})
	}
}
