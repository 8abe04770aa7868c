package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/service/semantic"
)

func TestDecodeRequest_YAMLMatchesJSON(t *testing.T) {
	yamlDoc := `
filters:
  - or:
      - member: orders.amount
        operator: gt
        values: [10]
      - member: orders.created_at
        operator: inDateRange
        values: [2024-01-01, 2024-02-01]
baseSql: SELECT * FROM orders
`
	jsonDoc := `{"filters": [{"or": [
		{"member": "orders.amount", "operator": "gt", "values": [10]},
		{"member": "orders.created_at", "operator": "inDateRange", "values": ["2024-01-01", "2024-02-01"]}
	]}], "baseSql": "SELECT * FROM orders"}`

	var fromYAML, fromJSON semantic.DedupeRequest
	require.NoError(t, decodeRequest([]byte(yamlDoc), &fromYAML))
	require.NoError(t, decodeRequest([]byte(jsonDoc), &fromJSON))
	assert.Equal(t, fromJSON, fromYAML)

	or, ok := fromYAML.Filters[0].(*domain.OrFilter)
	require.True(t, ok)
	assert.Equal(t, []string{"10"}, or.Or[0].(*domain.LeafFilter).Values)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01"}, or.Or[1].(*domain.LeafFilter).Values)
}

func TestDecodeRequest_Errors(t *testing.T) {
	var req semantic.CompileRequest

	err := decodeRequest([]byte(""), &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	err = decodeRequest([]byte("query: [unterminated"), &req)
	assert.Error(t, err)

	err = decodeRequest([]byte(`{"query": {}, "extra": 1}`), &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra")
}

func TestReadInput_Stdin(t *testing.T) {
	data, err := readInput("-", strings.NewReader("baseSql: SELECT 1"))
	require.NoError(t, err)
	assert.Equal(t, "baseSql: SELECT 1", string(data))
}

func TestToJSONCompatible(t *testing.T) {
	in := map[interface{}]interface{}{1: []interface{}{map[interface{}]interface{}{true: "x"}}}
	out := toJSONCompatible(in)
	assert.Equal(t, map[string]interface{}{"1": []interface{}{map[string]interface{}{"true": "x"}}}, out)
}
