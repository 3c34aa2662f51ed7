package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"salespulse/internal/convert"
	"salespulse/internal/datatable"
	"salespulse/internal/store"
)

// Storage table names served by the data service.
const (
	SalesTable   = "produtos_vendidos"
	RefundsTable = "estornos_cancelamentos"
)

// Refund record kinds stored in the "tipo" column.
const (
	RefundKindCancelled = "Cancelado"
	RefundKindRefunded  = "Estornado"
)

// TableReader is the read side of the record store the service aggregates
// over.
type TableReader interface {
	Select(ctx context.Context, table string, filters []store.Filter, orderBy string, desc bool) (*datatable.Table, error)
	Distinct(ctx context.Context, table, column string) ([]string, error)
}

// SalesFilter narrows sales queries. Zero values mean "no filter".
type SalesFilter struct {
	StartDate time.Time // inclusive, on the week-start column
	EndDate   time.Time // inclusive
	Unit      string
	Squad     string
	Year      int
	Month     int
}

// RefundFilter narrows refund/cancellation queries.
type RefundFilter struct {
	SalesFilter
	Kind     string // RefundKindCancelled or RefundKindRefunded; empty means both
	Category string
}

// DataService aggregates sales and refund records into dashboard figures.
// Read results are cached per query for a short freshness window.
type DataService struct {
	reader    TableReader
	converter *convert.Converter
	logger    *slog.Logger
	cache     *queryCache
}

// NewDataService creates a data service reading through reader. A nil logger
// falls back to slog.Default.
func NewDataService(reader TableReader, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		reader:    reader,
		converter: convert.New(),
		logger:    logger,
		cache:     newQueryCache(cacheTTL),
	}
}

// Sales returns the sales records matching the filter, newest first.
func (ds *DataService) Sales(ctx context.Context, f SalesFilter) (*datatable.Table, error) {
	key := fmt.Sprintf("%s|%v", SalesTable, f)
	if t, ok := ds.cache.get(key); ok {
		ds.logger.Debug("sales served from cache")
		return t, nil
	}

	filters := salesFilters(f, "semana_domingo")
	t, err := ds.reader.Select(ctx, SalesTable, filters, "semana_domingo", true)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	ds.cache.put(key, t)
	return t, nil
}

// Refunds returns the refund/cancellation records matching the filter,
// newest first.
func (ds *DataService) Refunds(ctx context.Context, f RefundFilter) (*datatable.Table, error) {
	key := fmt.Sprintf("%s|%v", RefundsTable, f)
	if t, ok := ds.cache.get(key); ok {
		ds.logger.Debug("refunds served from cache")
		return t, nil
	}

	filters := salesFilters(f.SalesFilter, "data")
	if f.Kind != "" {
		filters = append(filters, store.Filter{Column: "tipo", Op: "=", Value: f.Kind})
	}
	if f.Category != "" {
		filters = append(filters, store.Filter{Column: "categoria", Op: "=", Value: f.Category})
	}
	t, err := ds.reader.Select(ctx, RefundsTable, filters, "data", true)
	if err != nil {
		return nil, fmt.Errorf("failed to load refunds: %w", err)
	}
	ds.cache.put(key, t)
	return t, nil
}

// TotalSold returns the summed sold-products figure over the filtered sales.
func (ds *DataService) TotalSold(ctx context.Context, f SalesFilter) (float64, error) {
	t, err := ds.Sales(ctx, f)
	if err != nil {
		return 0, err
	}
	return ds.sumColumn(t, "produtos_vendidos"), nil
}

// TotalCancellations returns the summed value of cancelled records.
func (ds *DataService) TotalCancellations(ctx context.Context, f RefundFilter) (float64, error) {
	f.Kind = RefundKindCancelled
	t, err := ds.Refunds(ctx, f)
	if err != nil {
		return 0, err
	}
	return ds.sumColumn(t, "valor"), nil
}

// TotalRefunds returns the summed value of refunded records.
func (ds *DataService) TotalRefunds(ctx context.Context, f RefundFilter) (float64, error) {
	f.Kind = RefundKindRefunded
	t, err := ds.Refunds(ctx, f)
	if err != nil {
		return 0, err
	}
	return ds.sumColumn(t, "valor"), nil
}

// CancellationIndex is the cancelled value as a percentage of revenue,
// rounded to two decimals. Zero revenue yields zero.
func (ds *DataService) CancellationIndex(ctx context.Context, f RefundFilter) (float64, error) {
	return ds.index(ctx, f, ds.TotalCancellations)
}

// RefundIndex is the refunded value as a percentage of revenue, rounded to
// two decimals. Zero revenue yields zero.
func (ds *DataService) RefundIndex(ctx context.Context, f RefundFilter) (float64, error) {
	return ds.index(ctx, f, ds.TotalRefunds)
}

func (ds *DataService) index(ctx context.Context, f RefundFilter, total func(context.Context, RefundFilter) (float64, error)) (float64, error) {
	revenue, err := ds.TotalSold(ctx, f.SalesFilter)
	if err != nil {
		return 0, err
	}
	if revenue == 0 {
		return 0, nil
	}
	amount, err := total(ctx, f)
	if err != nil {
		return 0, err
	}
	return math.Round(amount/revenue*100*100) / 100, nil
}

// DashboardSummary returns the headline dashboard figures for the filter.
func (ds *DataService) DashboardSummary(ctx context.Context, f RefundFilter) (map[string]any, error) {
	sold, err := ds.TotalSold(ctx, f.SalesFilter)
	if err != nil {
		return nil, err
	}
	cancelled, err := ds.TotalCancellations(ctx, f)
	if err != nil {
		return nil, err
	}
	refunded, err := ds.TotalRefunds(ctx, f)
	if err != nil {
		return nil, err
	}
	cancelIdx, err := ds.CancellationIndex(ctx, f)
	if err != nil {
		return nil, err
	}
	refundIdx, err := ds.RefundIndex(ctx, f)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"produtos_vendidos":      sold,
		"cancelamentos":          cancelled,
		"estornos":               refunded,
		"estornos_cancelamentos": cancelled + refunded,
		"indice_cancelamento":    cancelIdx,
		"indice_estorno":         refundIdx,
	}, nil
}

// AvailableUnits returns the sorted distinct units across both tables.
func (ds *DataService) AvailableUnits(ctx context.Context) ([]string, error) {
	return ds.distinctUnion(ctx, "unidade", SalesTable, RefundsTable)
}

// AvailableSquads returns the sorted distinct squads across both tables.
func (ds *DataService) AvailableSquads(ctx context.Context) ([]string, error) {
	return ds.distinctUnion(ctx, "squad", SalesTable, RefundsTable)
}

// AvailableCategories returns the sorted distinct refund categories.
func (ds *DataService) AvailableCategories(ctx context.Context) ([]string, error) {
	return ds.distinctUnion(ctx, "categoria", RefundsTable)
}

// AvailableYears returns the distinct years across both tables, newest first.
func (ds *DataService) AvailableYears(ctx context.Context) ([]int, error) {
	raw, err := ds.distinctUnion(ctx, "ano", SalesTable, RefundsTable)
	if err != nil {
		return nil, err
	}
	years := make([]int, 0, len(raw))
	for _, s := range raw {
		if y, err := strconv.Atoi(s); err == nil {
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// ClearCache drops every cached query result.
func (ds *DataService) ClearCache() {
	ds.cache.clear()
	ds.logger.Info("data service cache cleared")
}

func (ds *DataService) distinctUnion(ctx context.Context, column string, tables ...string) ([]string, error) {
	seen := map[string]bool{}
	for _, table := range tables {
		values, err := ds.reader.Distinct(ctx, table, column)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s.%s: %w", table, column, err)
		}
		for _, v := range values {
			if v != "" {
				seen[v] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// sumColumn totals a column, coercing stored values to floats; unparseable
// cells count as zero.
func (ds *DataService) sumColumn(t *datatable.Table, column string) float64 {
	var sum float64
	for _, row := range t.Rows() {
		v := ds.converter.ToFloat(row[column])
		if v.Kind() == datatable.KindFloat {
			sum += v.FloatValue()
		}
	}
	return sum
}

func salesFilters(f SalesFilter, dateColumn string) []store.Filter {
	var filters []store.Filter
	if !f.StartDate.IsZero() {
		filters = append(filters, store.Filter{Column: dateColumn, Op: ">=", Value: f.StartDate.Format("2006-01-02")})
	}
	if !f.EndDate.IsZero() {
		filters = append(filters, store.Filter{Column: dateColumn, Op: "<=", Value: f.EndDate.Format("2006-01-02")})
	}
	if f.Unit != "" {
		filters = append(filters, store.Filter{Column: "unidade", Op: "=", Value: f.Unit})
	}
	if f.Squad != "" {
		filters = append(filters, store.Filter{Column: "squad", Op: "=", Value: f.Squad})
	}
	if f.Year != 0 {
		filters = append(filters, store.Filter{Column: "ano", Op: "=", Value: f.Year})
	}
	if f.Month != 0 {
		filters = append(filters, store.Filter{Column: "mes", Op: "=", Value: f.Month})
	}
	return filters
}
