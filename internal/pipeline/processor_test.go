package pipeline

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/datatable"
)

func sampleTable(rows int) *datatable.Table {
	t := datatable.New("name", "amount")
	for i := 0; i < rows; i++ {
		t.AppendRow(datatable.Row{
			"name":   datatable.String("item"),
			"amount": datatable.Int(int64(i)),
		})
	}
	return t
}

func TestProcessEmptyTable(t *testing.T) {
	p := New(nil)
	p.AddStep("noop", func(in *datatable.Table) (*datatable.Table, error) {
		return in, nil
	})

	result := p.Process(datatable.New())

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 0, result.TotalRows)
	assert.Equal(t, 0, result.ProcessedRows)
	assert.Empty(t, result.Errors)
}

func TestProcessRunsStepsInOrder(t *testing.T) {
	var order []string
	p := New(nil)
	p.AddStep("first", func(in *datatable.Table) (*datatable.Table, error) {
		order = append(order, "first")
		return in, nil
	})
	p.AddStep("second", func(in *datatable.Table) (*datatable.Table, error) {
		order = append(order, "second")
		return in, nil
	})

	result := p.Process(sampleTable(3))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, result.ProcessedRows)
	assert.Equal(t, 0, result.FailedRows)
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	input := sampleTable(2)
	p := New(nil)
	p.AddStep("drop", func(in *datatable.Table) (*datatable.Table, error) {
		in.DropColumn("amount")
		return in, nil
	})

	result := p.Process(input)

	require.Equal(t, StatusCompleted, result.Status)
	assert.True(t, input.HasColumn("amount"))
	assert.False(t, result.Output.HasColumn("amount"))
}

func TestProcessStepFailureRecordsSingleError(t *testing.T) {
	p := New(nil)
	p.AddStep("boom", func(in *datatable.Table) (*datatable.Table, error) {
		return nil, errors.New("bad input")
	})

	result := p.Process(sampleTable(3))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeStep, result.Errors[0].ErrorType)
	assert.Contains(t, result.Errors[0].Message, "boom")
	assert.Contains(t, result.Errors[0].Message, "bad input")
	assert.Equal(t, StatusFailed, result.Status)
	assert.Nil(t, result.Errors[0].RowIndex)
}

func TestProcessPartialWhenLaterStepSucceeds(t *testing.T) {
	p := New(nil)
	p.AddStep("boom", func(in *datatable.Table) (*datatable.Table, error) {
		return nil, errors.New("bad input")
	})
	p.AddStep("keep", func(in *datatable.Table) (*datatable.Table, error) {
		return in, nil
	})

	result := p.Process(sampleTable(3))

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, 3, result.ProcessedRows)
	assert.Len(t, result.Errors, 1)
}

func TestProcessPanicDowngradesToStepError(t *testing.T) {
	p := New(nil)
	p.AddStep("panicky", func(in *datatable.Table) (*datatable.Table, error) {
		panic("unexpected nil")
	})

	result := p.Process(sampleTable(2))

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "panic")
	assert.Equal(t, StatusFailed, result.Status)
}

func TestProcessMaxErrorsStopsRun(t *testing.T) {
	ran := false
	p := New(nil)
	p.MaxErrors = 1
	p.AddStep("boom", func(in *datatable.Table) (*datatable.Table, error) {
		return nil, errors.New("bad input")
	})
	p.AddStep("after", func(in *datatable.Table) (*datatable.Table, error) {
		ran = true
		return in, nil
	})

	result := p.Process(sampleTable(2))

	assert.False(t, ran)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Metadata, "critical_error")
}

func TestProcessMetadataTimestamps(t *testing.T) {
	p := New(nil)
	result := p.Process(sampleTable(1))

	assert.Contains(t, result.Metadata, "start_time")
	assert.Contains(t, result.Metadata, "end_time")
}

func TestProcessRow(t *testing.T) {
	p := New(nil)
	p.AddStep("upper", func(in *datatable.Table) (*datatable.Table, error) {
		for i, row := range in.Rows() {
			_ = in.SetCell(i, "name", datatable.String(strings.ToUpper(row["name"].StringValue())))
		}
		return in, nil
	})

	row, ok := p.ProcessRow(datatable.Row{"name": datatable.String("ana")}, 7)

	require.True(t, ok)
	assert.Equal(t, "ANA", row["name"].StringValue())
}

func TestProcessRowStepErrorKeepsPartialRow(t *testing.T) {
	p := New(nil)
	p.AddStep("upper", func(in *datatable.Table) (*datatable.Table, error) {
		for i, row := range in.Rows() {
			_ = in.SetCell(i, "name", datatable.String(strings.ToUpper(row["name"].StringValue())))
		}
		return in, nil
	})
	p.AddStep("reject", func(in *datatable.Table) (*datatable.Table, error) {
		return nil, errors.New("no good")
	})

	row, ok := p.ProcessRow(datatable.Row{"name": datatable.String("ana")}, 7)

	// Unbounded tolerance: the error is recorded but the record, transformed
	// by the steps that did succeed, survives.
	require.True(t, ok)
	require.NotNil(t, row)
	assert.Equal(t, "ANA", row["name"].StringValue())
	require.Len(t, p.Errors(), 1)
	assert.Equal(t, ErrorTypeRow, p.Errors()[0].ErrorType)
	require.NotNil(t, p.Errors()[0].RowIndex)
	assert.Equal(t, 7, *p.Errors()[0].RowIndex)
}

func TestProcessRowDroppedWhenErrorBudgetExhausted(t *testing.T) {
	p := New(nil)
	p.MaxErrors = 1
	p.AddStep("reject", func(in *datatable.Table) (*datatable.Table, error) {
		return nil, errors.New("no good")
	})
	p.AddStep("after", func(in *datatable.Table) (*datatable.Table, error) {
		t.Fatal("step after the budget was exhausted should not run")
		return in, nil
	})

	row, ok := p.ProcessRow(datatable.Row{"name": datatable.String("ana")}, 3)

	assert.False(t, ok)
	assert.Nil(t, row)
	require.Len(t, p.Errors(), 1)
	require.NotNil(t, p.Errors()[0].RowIndex)
	assert.Equal(t, 3, *p.Errors()[0].RowIndex)
}

func TestValidateSchema(t *testing.T) {
	tbl := datatable.New()
	tbl.AppendRow(datatable.Row{
		"name":   datatable.String("ana"),
		"amount": datatable.String("10,50"),
	})

	tests := []struct {
		name     string
		expected map[string]datatable.DataType
		ok       bool
		errs     int
		warns    int
	}{
		{
			name:     "all columns present",
			expected: map[string]datatable.DataType{"name": datatable.TypeText},
			ok:       true,
		},
		{
			name:     "missing column is an error",
			expected: map[string]datatable.DataType{"id": datatable.TypeInteger},
			ok:       false,
			errs:     1,
		},
		{
			name:     "type mismatch is only a warning",
			expected: map[string]datatable.DataType{"amount": datatable.TypeInteger},
			ok:       true,
			warns:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(nil)
			ok := p.ValidateSchema(tbl, tt.expected)
			assert.Equal(t, tt.ok, ok)
			assert.Len(t, p.Errors(), tt.errs)
			assert.Len(t, p.Warnings(), tt.warns)
		})
	}
}

func TestSummary(t *testing.T) {
	p := New(nil)
	for i := 0; i < 7; i++ {
		p.RecordRowError(i, "amount", ErrorTypeConversion, "not a number", datatable.String("abc"))
	}
	p.RecordRowError(0, "email", ErrorTypeValidation, "invalid email", datatable.String("x"))
	p.AddWarning("column extra not mapped")

	summary := p.Summary()

	assert.Equal(t, 8, summary["total_errors"])
	assert.Equal(t, 1, summary["total_warnings"])
	assert.Equal(t, map[string]int{
		ErrorTypeConversion: 7,
		ErrorTypeValidation: 1,
	}, summary["error_types"])
	assert.Equal(t, map[string]int{"amount": 7, "email": 1}, summary["errors_by_column"])
	assert.Len(t, summary["sample_errors"], 5)
}

func TestExportErrors(t *testing.T) {
	p := New(nil)
	p.RecordRowError(2, "amount", ErrorTypeConversion, "not a number", datatable.String("abc"))

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "errors.csv")
		require.NoError(t, p.ExportErrors(path, "csv"))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		lines, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, []string{"row_index", "column", "error_type", "error_message", "raw_value", "timestamp"}, lines[0])
		assert.Equal(t, "2", lines[1][0])
		assert.Equal(t, "amount", lines[1][1])
		assert.Equal(t, "abc", lines[1][4])
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "errors.json")
		require.NoError(t, p.ExportErrors(path, "json"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"row_index": 2`)
		assert.Contains(t, string(data), `"error_type": "ConversionError"`)
	})

	t.Run("unsupported", func(t *testing.T) {
		err := p.ExportErrors(filepath.Join(t.TempDir(), "errors.xml"), "xml")
		assert.Error(t, err)
	})
}
