package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/datatable"
	"salespulse/internal/store"
)

// fakeReader serves canned tables and records every Select call.
type fakeReader struct {
	tables  map[string]*datatable.Table
	selects int
	err     error
}

func (f *fakeReader) Select(_ context.Context, table string, filters []store.Filter, _ string, _ bool) (*datatable.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.selects++
	t, ok := f.tables[table]
	if !ok {
		return datatable.New(), nil
	}
	out := datatable.New(t.Columns()...)
	for _, row := range t.Rows() {
		if matches(row, filters) {
			out.AppendRow(row.Clone())
		}
	}
	return out, nil
}

func (f *fakeReader) Distinct(_ context.Context, table, column string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tables[table]
	if !ok {
		return nil, nil
	}
	seen := map[string]bool{}
	var out []string
	for _, row := range t.Rows() {
		v := row[column].Text()
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func matches(row datatable.Row, filters []store.Filter) bool {
	for _, f := range filters {
		got := row[f.Column].Text()
		want := datatable.FromNative(f.Value).Text()
		switch f.Op {
		case "=":
			if got != want {
				return false
			}
		case ">=":
			if got < want {
				return false
			}
		case "<=":
			if got > want {
				return false
			}
		}
	}
	return true
}

func fixtureReader() *fakeReader {
	sales := datatable.New("semana_domingo", "unidade", "squad", "ano", "produtos_vendidos")
	sales.AppendRow(datatable.Row{
		"semana_domingo":    datatable.String("2024-03-03"),
		"unidade":           datatable.String("Centro"),
		"squad":             datatable.String("Alpha"),
		"ano":               datatable.Int(2024),
		"produtos_vendidos": datatable.Float(1000),
	})
	sales.AppendRow(datatable.Row{
		"semana_domingo":    datatable.String("2024-03-10"),
		"unidade":           datatable.String("Norte"),
		"squad":             datatable.String("Beta"),
		"ano":               datatable.Int(2024),
		"produtos_vendidos": datatable.Float(500),
	})

	refunds := datatable.New("data", "tipo", "categoria", "unidade", "ano", "valor")
	refunds.AppendRow(datatable.Row{
		"data":      datatable.String("2024-03-04"),
		"tipo":      datatable.String(RefundKindCancelled),
		"categoria": datatable.String("Assinatura"),
		"unidade":   datatable.String("Centro"),
		"ano":       datatable.Int(2024),
		"valor":     datatable.Float(150),
	})
	refunds.AppendRow(datatable.Row{
		"data":      datatable.String("2024-03-05"),
		"tipo":      datatable.String(RefundKindRefunded),
		"categoria": datatable.String("Avulso"),
		"unidade":   datatable.String("Norte"),
		"ano":       datatable.Int(2023),
		"valor":     datatable.Float(75),
	})

	return &fakeReader{tables: map[string]*datatable.Table{
		SalesTable:   sales,
		RefundsTable: refunds,
	}}
}

func TestTotalSold(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)

	total, err := ds.TotalSold(context.Background(), SalesFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 1500, total, 1e-9)
}

func TestTotalSoldFiltered(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)

	total, err := ds.TotalSold(context.Background(), SalesFilter{Unit: "Centro"})
	require.NoError(t, err)
	assert.InDelta(t, 1000, total, 1e-9)
}

func TestTotalCancellationsAndRefunds(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)
	ctx := context.Background()

	cancelled, err := ds.TotalCancellations(ctx, RefundFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 150, cancelled, 1e-9)

	refunded, err := ds.TotalRefunds(ctx, RefundFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 75, refunded, 1e-9)
}

func TestCancellationIndex(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)

	idx, err := ds.CancellationIndex(context.Background(), RefundFilter{})
	require.NoError(t, err)
	// 150 / 1500 = 10%
	assert.InDelta(t, 10.0, idx, 1e-9)
}

func TestIndexZeroRevenue(t *testing.T) {
	ds := NewDataService(&fakeReader{tables: map[string]*datatable.Table{}}, nil)

	idx, err := ds.CancellationIndex(context.Background(), RefundFilter{})
	require.NoError(t, err)
	assert.Zero(t, idx)
}

func TestDashboardSummary(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)

	summary, err := ds.DashboardSummary(context.Background(), RefundFilter{})
	require.NoError(t, err)

	assert.InDelta(t, 1500.0, summary["produtos_vendidos"].(float64), 1e-9)
	assert.InDelta(t, 150.0, summary["cancelamentos"].(float64), 1e-9)
	assert.InDelta(t, 75.0, summary["estornos"].(float64), 1e-9)
	assert.InDelta(t, 225.0, summary["estornos_cancelamentos"].(float64), 1e-9)
	assert.InDelta(t, 10.0, summary["indice_cancelamento"].(float64), 1e-9)
	assert.InDelta(t, 5.0, summary["indice_estorno"].(float64), 1e-9)
}

func TestAvailableFilters(t *testing.T) {
	ds := NewDataService(fixtureReader(), nil)
	ctx := context.Background()

	units, err := ds.AvailableUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Centro", "Norte"}, units)

	squads, err := ds.AvailableSquads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, squads)

	categories, err := ds.AvailableCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Assinatura", "Avulso"}, categories)

	years, err := ds.AvailableYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, years)
}

func TestSalesUsesCache(t *testing.T) {
	reader := fixtureReader()
	ds := NewDataService(reader, nil)
	ctx := context.Background()

	_, err := ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	_, err = ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, reader.selects)

	// A different filter is a different cache entry.
	_, err = ds.Sales(ctx, SalesFilter{Unit: "Centro"})
	require.NoError(t, err)
	assert.Equal(t, 2, reader.selects)
}

func TestCacheExpires(t *testing.T) {
	reader := fixtureReader()
	ds := NewDataService(reader, nil)

	current := time.Now()
	ds.cache.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)

	current = current.Add(cacheTTL + time.Second)
	_, err = ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, reader.selects)
}

func TestClearCache(t *testing.T) {
	reader := fixtureReader()
	ds := NewDataService(reader, nil)
	ctx := context.Background()

	_, err := ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	ds.ClearCache()
	_, err = ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, reader.selects)
}

func TestCachedTableIsIsolated(t *testing.T) {
	reader := fixtureReader()
	ds := NewDataService(reader, nil)
	ctx := context.Background()

	first, err := ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	first.DropColumn("produtos_vendidos")

	second, err := ds.Sales(ctx, SalesFilter{})
	require.NoError(t, err)
	assert.True(t, second.HasColumn("produtos_vendidos"))
}

func TestReaderErrorPropagates(t *testing.T) {
	ds := NewDataService(&fakeReader{err: errors.New("connection refused")}, nil)

	_, err := ds.Sales(context.Background(), SalesFilter{})
	assert.ErrorContains(t, err, "connection refused")
}
