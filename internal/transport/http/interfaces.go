package http

import (
	"context"

	"salespulse/internal/datatable"
	"salespulse/internal/services"
	"salespulse/internal/store"
)

// DataServiceInterface is the slice of the data service the dashboard
// handlers need. Kept as an interface so tests can substitute fakes.
type DataServiceInterface interface {
	Sales(ctx context.Context, f services.SalesFilter) (*datatable.Table, error)
	Refunds(ctx context.Context, f services.RefundFilter) (*datatable.Table, error)
	DashboardSummary(ctx context.Context, f services.RefundFilter) (map[string]any, error)
	AvailableUnits(ctx context.Context) ([]string, error)
	AvailableSquads(ctx context.Context) ([]string, error)
	AvailableCategories(ctx context.Context) ([]string, error)
	AvailableYears(ctx context.Context) ([]int, error)
	ClearCache()
}

// RecordWriter persists imported rows. Satisfied by store.SQLStore.
type RecordWriter interface {
	Insert(ctx context.Context, table string, records []map[string]any) (int, error)
	Upsert(ctx context.Context, table string, records []map[string]any, conflictKeys []string) (int, error)
}

// TableReader reads stored tables for export. Satisfied by store.SQLStore.
type TableReader interface {
	Select(ctx context.Context, table string, filters []store.Filter, orderBy string, desc bool) (*datatable.Table, error)
}
