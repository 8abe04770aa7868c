package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable_Basic(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"name", "age"}, [][]string{
		{"Alice", "30"},
		{"Bob", "25"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 3, "expected header + 2 data rows")
	assert.Equal(t, "NAME   AGE", lines[0])
	assert.Equal(t, "Alice  30", lines[1])
	assert.Equal(t, "Bob    25", lines[2])
}

func TestPrintTable_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{}, [][]string{{"a"}})
	assert.Empty(t, buf.String(), "empty columns should produce no output")
}

func TestPrintTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"id", "value"}, nil)
	assert.Equal(t, "ID  VALUE\n", buf.String())
}

func TestPrintTable_ShortRow(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"a", "b"}, [][]string{{"1"}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[1])
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]string{"sql": "a < b"}))

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "a < b", parsed["sql"])
	assert.Contains(t, buf.String(), "a < b", "HTML characters are not escaped")
	assert.Contains(t, buf.String(), "\n  ")

	buf.Reset()
	require.NoError(t, PrintJSON(&buf, nil))
	assert.Equal(t, "null\n", buf.String())
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "open", "open"},
		{"bytes", []byte("raw"), "raw"},
		{"float", 15.0, "15"},
		{"fraction", 7.5, "7.5"},
		{"int", int64(3), "3"},
		{"bool", true, "true"},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.in))
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, validateOutputFormat(""))
	assert.NoError(t, validateOutputFormat("table"))
	assert.NoError(t, validateOutputFormat("json"))
	assert.Error(t, validateOutputFormat("yaml"))
}
