package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/devrev/meerkat-sub004/internal/db"
	"github.com/devrev/meerkat-sub004/internal/db/repository"
	"github.com/devrev/meerkat-sub004/internal/domain"
	"github.com/devrev/meerkat-sub004/internal/engine"
)

func setupSemanticService(t *testing.T) *Service {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)

	duck, err := engine.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })
	eng := engine.New(duck, nil)

	svc := NewService(repository.NewTableSchemaRepo(writeDB, readDB), eng, nil)
	svc.SetQueryExecutor(eng)
	return svc
}

func ordersSchema() domain.TableSchema {
	return domain.TableSchema{
		Name: "orders",
		SQL: `SELECT * FROM (VALUES
			(1, 'open', 10.0::DOUBLE, 'c1'),
			(2, 'open', 5.0::DOUBLE, 'c2'),
			(3, 'closed', 7.5::DOUBLE, 'c1')
		) AS t(id, status, amount, customer_id)`,
		Measures: []domain.MemberDef{
			{Name: "total", SQL: "sum(orders.amount)", Type: domain.TypeNumber},
		},
		Dimensions: []domain.MemberDef{
			{Name: "status", SQL: "orders.status", Type: domain.TypeString},
			{Name: "customer_id", SQL: "orders.customer_id", Type: domain.TypeString},
		},
	}
}

func TestService_CompileInline(t *testing.T) {
	svc := setupSemanticService(t)

	res, err := svc.Compile(context.Background(), CompileRequest{
		Query:        domain.Query{Measures: []string{"orders.total"}, Dimensions: []string{"orders.status"}},
		TableSchemas: []domain.TableSchema{ordersSchema()},
	})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "sum(orders.amount)")
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "orders__status", res.Columns[0].Alias)
	assert.Equal(t, "orders__total", res.Columns[1].Alias)
}

func TestService_EmptyQueryShortCircuits(t *testing.T) {
	svc := NewService(nil, nil, nil)
	ctx := context.Background()

	res, err := svc.Compile(ctx, CompileRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.SQL)
	assert.Empty(t, res.Columns)

	resolved, err := svc.CompileWithResolution(ctx, ResolveRequest{})
	require.NoError(t, err)
	assert.Empty(t, resolved.SQL)
}

func TestService_RegisterAndRunFromRegistry(t *testing.T) {
	svc := setupSemanticService(t)
	ctx := context.Background()

	stored, err := svc.RegisterSchema(ctx, ordersSchema(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	out, err := svc.Run(ctx, CompileRequest{Query: domain.Query{
		Measures:   []string{"orders.total"},
		Dimensions: []string{"orders.status"},
		Filters:    domain.Filters{&domain.LeafFilter{Member: "orders.status", Operator: domain.OpEquals, Values: []string{"open"}}},
	}})
	require.NoError(t, err)
	assert.NotEmpty(t, out.SQL)
	assert.Equal(t, []string{"orders__status", "orders__total"}, out.Result.Columns)
	require.Len(t, out.Result.Rows, 1)
	assert.Equal(t, "open", out.Result.Rows[0][0])
	assert.InDelta(t, 15.0, out.Result.Rows[0][1], 0.0001)

	list, err := svc.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteSchema(ctx, "orders"))
	_, err = svc.GetSchema(ctx, "orders")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestService_RegisterSchemaValidation(t *testing.T) {
	svc := setupSemanticService(t)
	ctx := context.Background()

	bad := ordersSchema()
	bad.SQL = "SELEC * FROM"
	_, err := svc.RegisterSchema(ctx, bad, false)
	var cerr *domain.CompilationError
	require.ErrorAs(t, err, &cerr)
	assert.NotEmpty(t, cerr.Message)

	invalid := ordersSchema()
	invalid.Name = ""
	_, err = svc.RegisterSchema(ctx, invalid, false)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.RegisterSchema(ctx, ordersSchema(), false)
	require.NoError(t, err)
	_, err = svc.RegisterSchema(ctx, ordersSchema(), false)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)

	_, err = svc.RegisterSchema(ctx, ordersSchema(), true)
	assert.NoError(t, err)
}

func TestService_UnregisteredTable(t *testing.T) {
	svc := setupSemanticService(t)

	_, err := svc.Compile(context.Background(), CompileRequest{Query: domain.Query{Dimensions: []string{"ghosts.name"}}})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestService_CompileWithoutRegistry(t *testing.T) {
	svc := NewService(nil, nil, nil)

	_, err := svc.Compile(context.Background(), CompileRequest{Query: domain.Query{Dimensions: []string{"orders.status"}}})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_CompileWithResolution(t *testing.T) {
	svc := setupSemanticService(t)
	ctx := context.Background()

	customers := domain.TableSchema{
		Name: "customers",
		SQL:  `SELECT * FROM (VALUES ('c1', 'Ada'), ('c2', 'Bob')) AS t(id, name)`,
		Dimensions: []domain.MemberDef{
			{Name: "id", SQL: "customers.id", Type: domain.TypeString},
			{Name: "name", SQL: "customers.name", Type: domain.TypeString},
		},
	}
	res, err := svc.CompileWithResolution(ctx, ResolveRequest{
		CompileRequest: CompileRequest{
			Query: domain.Query{
				Measures:   []string{"orders.total"},
				Dimensions: []string{"orders.customer_id"},
				Order:      []domain.OrderBy{{Member: "orders.customer_id"}},
			},
			TableSchemas: []domain.TableSchema{ordersSchema()},
		},
		ResolutionConfig: domain.ResolutionConfig{
			ColumnConfigs: []domain.ColumnResolutionConfig{{
				Name: "orders.customer_id", Source: "customers", JoinColumn: "id", ResolutionColumns: []string{"name"},
			}},
			TableSchemas: []domain.TableSchema{customers},
		},
	})
	require.NoError(t, err)

	out, err := svc.queryExec.Execute(ctx, res.SQL)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders__customer_id__name", "orders__total"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "Ada", out.Rows[0][0])
	assert.InDelta(t, 17.5, out.Rows[0][1], 0.0001)
}

func TestService_DedupeFilters(t *testing.T) {
	svc := NewService(nil, nil, nil)

	out := svc.DedupeFilters(context.Background(), DedupeRequest{
		Filters: domain.Filters{
			&domain.LeafFilter{Member: "orders.status", Operator: domain.OpIn, Values: []string{"open", "closed"}},
			&domain.LeafFilter{Member: "orders.region", Operator: domain.OpEquals, Values: []string{"eu"}},
		},
		BaseSQL: "SELECT * FROM orders WHERE status IN ('open', 'closed')",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "orders.region", out[0].(*domain.LeafFilter).Member)
}

func TestService_RunWithoutExecutor(t *testing.T) {
	svc := NewService(nil, nil, nil)
	_, err := svc.Run(context.Background(), CompileRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor")
}

func TestService_CanceledContext(t *testing.T) {
	svc := setupSemanticService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Compile(ctx, CompileRequest{
		Query:        domain.Query{Dimensions: []string{"orders.status"}},
		TableSchemas: []domain.TableSchema{ordersSchema()},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
