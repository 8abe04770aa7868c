package compiler_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrev/meerkat-sub004/internal/compiler"
	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/engine"
)

var ctx = context.Background()

func setupEngine(t *testing.T) *engine.DuckDB {
	t.Helper()
	db, err := engine.Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return engine.New(db, nil)
}

func shopSchemas() []domain.TableSchema {
	return []domain.TableSchema{
		{
			Name: "orders",
			SQL: `SELECT * FROM (VALUES
				(1, '2024-01-01', 10.0::DOUBLE, 1, 'open'),
				(2, '2024-01-01', 5.0::DOUBLE, 1, 'closed'),
				(3, '2024-01-02', 7.0::DOUBLE, 2, 'open')
			) AS t(id, order_date, amount, customer_id, status)`,
			Measures: []domain.MemberDef{
				{Name: "amount_sum", SQL: "sum(orders.amount)", Type: domain.TypeNumber},
			},
			Dimensions: []domain.MemberDef{
				{Name: "date", SQL: "orders.order_date", Type: domain.TypeString},
				{Name: "status", SQL: "orders.status", Type: domain.TypeString},
			},
		},
		{
			Name: "customers",
			SQL:  `SELECT * FROM (VALUES (1, 'Ada'), (2, 'Bob')) AS t(customer_id, name)`,
			Dimensions: []domain.MemberDef{
				{Name: "name", SQL: "customers.name", Type: domain.TypeString},
			},
		},
	}
}

func ordersByCustomer() domain.Query {
	return domain.Query{
		Measures:   []string{"orders.amount_sum"},
		Dimensions: []string{"orders.date", "customers.name"},
		JoinPaths:  []domain.JoinPath{{{Left: "orders", Right: "customers", On: "customer_id"}}},
		Order:      []domain.OrderBy{{Member: "orders.date", Direction: domain.OrderAsc}},
	}
}

func TestCompile_OrdersCustomersEndToEnd(t *testing.T) {
	eng := setupEngine(t)
	c := compiler.New(eng, nil)

	sql, err := c.Compile(ctx, ordersByCustomer(), shopSchemas())
	require.NoError(t, err)

	upper := strings.ToUpper(sql)
	assert.Contains(t, upper, "SELECT")
	assert.Contains(t, upper, "FROM")
	assert.Contains(t, upper, "JOIN")
	assert.Contains(t, sql, "customer_id")
	assert.Contains(t, upper, "GROUP BY")
	assert.NotContains(t, sql, "__table_")
	assert.NotContains(t, sql, "__member_")

	res, err := eng.Execute(ctx, sql)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders__date", "customers__name", "orders__amount_sum"}, res.Columns)
	require.Equal(t, 2, res.RowCount)
	assert.Equal(t, []interface{}{"2024-01-01", "Ada", 15.0}, res.Rows[0])
	assert.Equal(t, []interface{}{"2024-01-02", "Bob", 7.0}, res.Rows[1])
}

func TestCompile_IsIdempotent(t *testing.T) {
	c := compiler.New(setupEngine(t), nil)

	first, err := c.Compile(ctx, ordersByCustomer(), shopSchemas())
	require.NoError(t, err)
	second, err := c.Compile(ctx, ordersByCustomer(), shopSchemas())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompile_FiltersAndLimit(t *testing.T) {
	eng := setupEngine(t)
	c := compiler.New(eng, nil)

	limit := int64(1)
	q := domain.Query{
		Measures:   []string{"orders.amount_sum"},
		Dimensions: []string{"customers.name"},
		JoinPaths:  []domain.JoinPath{{{Left: "orders", Right: "customers", On: "customer_id"}}},
		Filters: domain.Filters{
			&domain.LeafFilter{Member: "orders.status", Operator: domain.OpEquals, Values: []string{"open"}},
			&domain.LeafFilter{Member: "orders.amount_sum", Operator: domain.OpGte, Values: []string{"7"}},
		},
		Order: []domain.OrderBy{{Member: "orders.amount_sum", Direction: domain.OrderDesc}},
		Limit: &limit,
	}
	sql, err := c.Compile(ctx, q, shopSchemas())
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(sql), "HAVING")
	assert.Contains(t, sql, "'open'")

	res, err := eng.Execute(ctx, sql)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, []interface{}{"Ada", 10.0}, res.Rows[0])
}

func TestCompile_QuotesStringValues(t *testing.T) {
	eng := setupEngine(t)
	c := compiler.New(eng, nil)

	q := domain.Query{
		Dimensions: []string{"customers.name"},
		Filters: domain.Filters{
			&domain.LeafFilter{Member: "customers.name", Operator: domain.OpIn, Values: []string{"O'Brien", "Bob"}},
		},
	}
	sql, err := c.Compile(ctx, q, shopSchemas())
	require.NoError(t, err)

	res, err := eng.Execute(ctx, sql)
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, "Bob", res.Rows[0][0])
}

func TestCompile_UnknownMember(t *testing.T) {
	c := compiler.New(setupEngine(t), nil)

	_, err := c.Compile(ctx, domain.Query{Measures: []string{"orders.revenue"}}, shopSchemas())
	var unknown *domain.UnknownMemberError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "orders.revenue", unknown.Member)
}
