package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrev/meerkat-sub004/internal/domain"
)

const ordersYAML = `
query:
  measures: [orders.total]
  dimensions: [orders.status]
  filters:
    - member: orders.status
      operator: equals
      values: [open]
  order:
    - member: orders.status
tableSchemas:
  - name: orders
    sql: >-
      SELECT * FROM (VALUES (1, 'open', 10.0::DOUBLE, 'c1'), (2, 'open', 5.0::DOUBLE, 'c2'), (3, 'closed', 7.5::DOUBLE, 'c1')) AS t(id, status, amount, customer_id)
    measures:
      - name: total
        sql: sum(orders.amount)
        type: number
    dimensions:
      - name: status
        sql: orders.status
        type: string
      - name: customer_id
        sql: orders.customer_id
        type: string
`

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MEERKAT_DUCKDB_PATH", "")
	t.Setenv("MEERKAT_REGISTRY_PATH", "")
	t.Setenv("MEERKAT_OUTPUT", "")

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	restore := captureStdout(t)
	err := rootCmd.Execute()
	return restore(), err
}

func TestCompile_JSON(t *testing.T) {
	path := writeInput(t, "query.yaml", ordersYAML)

	out, err := runCLI(t, "--output", "json", "compile", path)
	require.NoError(t, err)

	var res struct {
		SQL     string `json:"sql"`
		Columns []struct {
			Member  string `json:"member"`
			Alias   string `json:"alias"`
			Measure bool   `json:"measure"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.SQL, "sum(orders.amount)")
	assert.Contains(t, res.SQL, "GROUP BY")
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "orders__status", res.Columns[0].Alias)
	assert.True(t, res.Columns[1].Measure)
}

func TestCompile_Table(t *testing.T) {
	path := writeInput(t, "query.yaml", ordersYAML)

	out, err := runCLI(t, "--output", "table", "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "MEMBER")
	assert.Contains(t, out, "orders__total")
	assert.Contains(t, out, "measure")
}

func TestCompile_JSONInput(t *testing.T) {
	body := `{"query": {"measures": [], "dimensions": ["orders.status"]},
		"tableSchemas": [{"name": "orders", "sql": "SELECT 'open' AS status", "measures": [],
		"dimensions": [{"name": "status", "sql": "orders.status", "type": "string"}]}]}`
	path := writeInput(t, "query.json", body)

	out, err := runCLI(t, "-o", "json", "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "orders__status")
}

func TestRun_Table(t *testing.T) {
	path := writeInput(t, "query.yaml", ordersYAML)

	out, err := runCLI(t, "-o", "table", "run", "--show-sql", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, out, "SELECT")
	assert.Contains(t, lines[len(lines)-2], "ORDERS__STATUS")
	assert.Contains(t, lines[len(lines)-1], "open")
	assert.Contains(t, lines[len(lines)-1], "15")
}

func TestRun_JSON(t *testing.T) {
	path := writeInput(t, "query.yaml", ordersYAML)

	out, err := runCLI(t, "-o", "json", "run", path)
	require.NoError(t, err)

	var res struct {
		Result domain.QueryResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"orders__status", "orders__total"}, res.Result.Columns)
	require.Len(t, res.Result.Rows, 1)
	assert.Equal(t, "open", res.Result.Rows[0][0])
	assert.InDelta(t, 15.0, res.Result.Rows[0][1], 0.0001)
}

func TestResolve_JSON(t *testing.T) {
	doc := `
query:
  measures: [orders.total]
  dimensions: [orders.customer_id]
tableSchemas:
  - name: orders
    sql: SELECT * FROM (VALUES ('c1', 10.0::DOUBLE), ('c2', 5.0::DOUBLE)) AS t(customer_id, amount)
    measures:
      - {name: total, sql: sum(orders.amount), type: number}
    dimensions:
      - {name: customer_id, sql: orders.customer_id, type: string}
resolutionConfig:
  columnConfigs:
    - name: orders.customer_id
      type: string
      source: customers
      joinColumn: id
      resolutionColumns: [name]
  tableSchemas:
    - name: customers
      sql: SELECT * FROM (VALUES ('c1', 'Ada'), ('c2', 'Bob')) AS t(id, name)
      measures: []
      dimensions:
        - {name: id, sql: customers.id, type: string}
        - {name: name, sql: customers.name, type: string}
`
	path := writeInput(t, "resolve.yaml", doc)

	out, err := runCLI(t, "-o", "json", "resolve", path)
	require.NoError(t, err)

	var res struct {
		SQL    string             `json:"sql"`
		Schema domain.TableSchema `json:"schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.SQL)
	names := make([]string, 0, len(res.Schema.Dimensions))
	for _, d := range res.Schema.Dimensions {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "orders__customer_id__name")
}

func TestDedupe(t *testing.T) {
	doc := `
baseSql: SELECT * FROM orders WHERE status IN ('open', 'closed')
filters:
  - member: orders.status
    operator: in
    values: [open, closed]
  - member: orders.region
    operator: equals
    values: [eu]
`
	path := writeInput(t, "dedupe.yaml", doc)

	out, err := runCLI(t, "-o", "json", "dedupe", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "orders.status")
	assert.Contains(t, out, "orders.region")

	out, err = runCLI(t, "-o", "table", "dedupe", path)
	require.NoError(t, err)
	assert.Contains(t, out, "orders.region equals [eu]")
}

func TestAST(t *testing.T) {
	out, err := runCLI(t, "-o", "json", "ast", "SELECT 1 AS x")
	require.NoError(t, err)

	var ast map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &ast))
	assert.Equal(t, false, ast["error"])
	assert.Contains(t, ast, "statements")
}

func TestAST_Errors(t *testing.T) {
	_, err := runCLI(t, "ast")
	require.Error(t, err)

	_, err = runCLI(t, "ast", "SELEC 1")
	var cerr *domain.CompilationError
	assert.ErrorAs(t, err, &cerr)

	path := writeInput(t, "q.sql", "SELECT 1")
	_, err = runCLI(t, "ast", "-f", path, "SELECT 2")
	assert.Error(t, err)
}

func TestRegistryWithoutSchemas(t *testing.T) {
	path := writeInput(t, "query.json", `{"query": {"measures": [], "dimensions": ["orders.status"]}}`)
	registry := filepath.Join(t.TempDir(), "registry.sqlite")

	_, err := runCLI(t, "--registry", registry, "compile", path)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "not_found", errorCode(err))
}

func TestInputErrors(t *testing.T) {
	_, err := runCLI(t, "compile", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeInput(t, "bad.yaml", "query:\n  measures: []\n  dimension: [x]\n")
	_, err = runCLI(t, "compile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode input")
}

func TestUnsupportedOutput(t *testing.T) {
	_, err := runCLI(t, "--output", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestUnsupportedOutputFromEnv(t *testing.T) {
	t.Setenv("MEERKAT_OUTPUT", "xml")

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"version"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestVersion_JSON(t *testing.T) {
	out, err := runCLI(t, "-o", "json", "version")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, version, v["version"])
}

func TestOutputFromEnv(t *testing.T) {
	t.Setenv("MEERKAT_OUTPUT", "json")

	rootCmd := newRootCmd()
	rootCmd.SetArgs([]string{"version"})
	restore := captureStdout(t)
	err := rootCmd.Execute()
	out := restore()
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", domain.ErrNotFound("x"), "not_found"},
		{"validation", domain.ErrValidation("x"), "validation"},
		{"conflict", domain.ErrConflict("x"), "conflict"},
		{"compilation", &domain.CompilationError{Message: "x"}, "compilation"},
		{"resolution", &domain.ResolutionConfigError{Column: "c", Message: "x"}, "resolution_config"},
		{"other", os.ErrClosed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}
