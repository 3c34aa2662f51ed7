package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/datatable"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nome Completo", "nome_completo"},
		{"  Valor (R$)  ", "valor_r"},
		{"data-da-venda", "data_da_venda"},
		{"Observação", "observao"},
		{"Multi   Space", "multi_space"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanName(tt.in), tt.in)
	}
}

func TestTransformApply(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
		in   datatable.Value
		want string
	}{
		{"uppercase", Transform{Kind: TransformUppercase}, datatable.String("abc"), "ABC"},
		{"lowercase", Transform{Kind: TransformLowercase}, datatable.String("ABC"), "abc"},
		{"trim", Transform{Kind: TransformTrim}, datatable.String(" x "), "x"},
		{"replace", Transform{Kind: TransformReplace, Pattern: "-", Replacement: "_"}, datatable.String("a-b"), "a_b"},
		{"regex", Transform{Kind: TransformRegex, Pattern: `\d+`, Replacement: "#"}, datatable.String("a1b22"), "a#b#"},
		{"bad regex is a no-op", Transform{Kind: TransformRegex, Pattern: "("}, datatable.String("keep"), "keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Apply(tt.in).StringValue())
		})
	}

	custom := Transform{Kind: TransformCustom, Func: func(v datatable.Value) datatable.Value {
		return datatable.String(v.Text() + "!")
	}}
	assert.Equal(t, "oi!", custom.Apply(datatable.String("oi")).StringValue())

	empty := Transform{Kind: TransformUppercase}.Apply(datatable.String("  "))
	assert.Equal(t, "  ", empty.StringValue())
}

func refundSchema() *TableSchema {
	return NewTableSchema("estornos").
		AddColumn(ColumnDefinition{Name: "tipo", Type: datatable.TypeText, Nullable: false}).
		AddColumn(ColumnDefinition{Name: "valor", Type: datatable.TypeFloat, Nullable: true}).
		AddColumn(ColumnDefinition{Name: "obs", Type: datatable.TypeText, Nullable: true}).
		AddMapping(ColumnMapping{Source: "Tipo", Target: "tipo", Type: datatable.TypeText,
			Transforms: []Transform{{Kind: TransformTrim}}}).
		AddMapping(ColumnMapping{Source: "Valor", Target: "valor", Type: datatable.TypeFloat}).
		AddMapping(ColumnMapping{Source: "Observação", Target: "obs", Type: datatable.TypeText,
			SkipIfEmpty: true})
}

func TestMapRow(t *testing.T) {
	m := NewMapper().RegisterSchema(refundSchema())

	row, err := m.MapRow("estornos", datatable.Row{
		"Tipo":       datatable.String(" Cancelado "),
		"Valor":      datatable.String("10,50"),
		"Observação": datatable.String("  "),
		"Extra":      datatable.String("dropped"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Cancelado", row["tipo"].StringValue())
	assert.Equal(t, "10,50", row["valor"].StringValue())
	_, hasObs := row["obs"]
	assert.False(t, hasObs, "skip_if_empty mapping must drop blank values")
	_, hasExtra := row["Extra"]
	assert.False(t, hasExtra, "unmapped source columns are dropped")
}

func TestMapRowIdempotentOnCleanedKeys(t *testing.T) {
	// After the import clean step, source keys equal the clean target names,
	// so re-mapping a mapped row must leave its key set unchanged.
	schema := NewTableSchema("vendas").
		AddMapping(ColumnMapping{Source: "nome", Target: "nome", Type: datatable.TypeText}).
		AddMapping(ColumnMapping{Source: "valor", Target: "valor", Type: datatable.TypeFloat})
	m := NewMapper().RegisterSchema(schema)

	once, err := m.MapRow("vendas", datatable.Row{
		"nome":  datatable.String("Ana"),
		"valor": datatable.String("10,50"),
	})
	require.NoError(t, err)

	twice, err := m.MapRow("vendas", once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMapRowUnknownTable(t *testing.T) {
	_, err := NewMapper().MapRow("ghost", datatable.Row{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNotRegistered)
}

func TestMapRowAppliesDefaultAndGlobalTransforms(t *testing.T) {
	schema := NewTableSchema("t").
		AddMapping(ColumnMapping{Source: "a", Target: "a", Type: datatable.TypeText,
			Default: datatable.String("n/a")})
	m := NewMapper().RegisterSchema(schema)
	m.AddGlobalTransform(Transform{Kind: TransformUppercase})

	row, err := m.MapRow("t", datatable.Row{"a": datatable.String("")})
	require.NoError(t, err)
	assert.Equal(t, "N/A", row["a"].StringValue())
}

func TestValidateMapping(t *testing.T) {
	m := NewMapper().RegisterSchema(refundSchema())

	report, err := m.ValidateMapping("estornos", []string{"Tipo", "Valor", "Desconhecida"})
	require.NoError(t, err)

	assert.True(t, report.Valid)
	assert.Equal(t, []string{"Desconhecida"}, report.UnmappedSources)
	assert.Empty(t, report.MissingRequired)
	assert.Equal(t, 3, report.MappedCount)
	assert.Equal(t, 3, report.TotalSourceColumns)
}

func TestValidateMappingMissingRequired(t *testing.T) {
	schema := NewTableSchema("t").
		AddColumn(ColumnDefinition{Name: "obrigatoria", Type: datatable.TypeText, Nullable: false})
	m := NewMapper().RegisterSchema(schema)

	report, err := m.ValidateMapping("t", nil)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"obrigatoria"}, report.MissingRequired)
}

func TestCreateTableSQL(t *testing.T) {
	schema := NewTableSchema("vendas").WithNamespace("").
		AddColumn(ColumnDefinition{Name: "id", Type: datatable.TypeInteger, PrimaryKey: true}).
		AddColumn(ColumnDefinition{Name: "nome", Type: datatable.TypeText, Nullable: true}).
		AddColumn(ColumnDefinition{Name: "valor", Type: datatable.TypeFloat, Nullable: true, Unique: true})

	sql := schema.CreateTableSQL()
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS vendas (")
	assert.Contains(t, sql, "id INTEGER PRIMARY KEY NOT NULL")
	assert.Contains(t, sql, "valor REAL UNIQUE")
	assert.NotContains(t, sql, "nome TEXT NOT NULL")
}

func TestPrimaryKeysDeclarationOrder(t *testing.T) {
	schema := NewTableSchema("t").
		AddColumn(ColumnDefinition{Name: "b", Type: datatable.TypeText, PrimaryKey: true}).
		AddColumn(ColumnDefinition{Name: "a", Type: datatable.TypeText, PrimaryKey: true}).
		AddColumn(ColumnDefinition{Name: "c", Type: datatable.TypeText, Nullable: true})

	assert.Equal(t, []string{"b", "a"}, schema.PrimaryKeys())
}

func TestLoadSchemaFile(t *testing.T) {
	content := `
tables:
  - name: vendas
    namespace: ""
    columns:
      - name: nome
        type: text
        primary_key: true
      - name: valor
        type: float
        nullable: true
    mappings:
      - source: Nome
        target: nome
        type: text
        transforms:
          - kind: trim
      - source: Valor
        target: valor
        type: float
    indexes:
      - columns: [nome]
        unique: true
`
	path := filepath.Join(t.TempDir(), "vendas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := NewMapper()
	require.NoError(t, m.LoadSchemaFile(path))

	schema, ok := m.Schema("vendas")
	require.True(t, ok)
	assert.Equal(t, []string{"nome"}, schema.PrimaryKeys())

	mp, ok := schema.Mapping("Nome")
	require.True(t, ok)
	assert.Len(t, mp.Transforms, 1)
	assert.Len(t, schema.Indexes(), 1)
}

func TestLoadSchemaDir(t *testing.T) {
	dir := t.TempDir()
	one := "tables:\n  - name: a\n    columns:\n      - name: x\n        type: text\n        nullable: true\n"
	two := "tables:\n  - name: b\n    columns:\n      - name: y\n        type: integer\n        nullable: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(one), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(two), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	m := NewMapper()
	require.NoError(t, m.LoadSchemaDir(dir))
	assert.True(t, m.HasSchema("a"))
	assert.True(t, m.HasSchema("b"))
	assert.Len(t, m.Schemas(), 2)
}

func TestLoadSchemaDirMissingIsTolerated(t *testing.T) {
	m := NewMapper()
	assert.NoError(t, m.LoadSchemaDir(filepath.Join(t.TempDir(), "absent")))
}
