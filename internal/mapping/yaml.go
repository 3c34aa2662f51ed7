package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"salespulse/internal/datatable"
)

// schemaFile mirrors the YAML layout of a declarative schema file.
type schemaFile struct {
	Tables []tableSpec `yaml:"tables"`
}

type tableSpec struct {
	Name      string        `yaml:"name"`
	Namespace string        `yaml:"namespace"`
	Columns   []columnSpec  `yaml:"columns"`
	Mappings  []mappingSpec `yaml:"mappings"`
	Indexes   []indexSpec   `yaml:"indexes"`
}

type columnSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Nullable   *bool  `yaml:"nullable"`
	PrimaryKey bool   `yaml:"primary_key"`
	Unique     bool   `yaml:"unique"`
	Default    string `yaml:"default"`
}

type mappingSpec struct {
	Source      string          `yaml:"source"`
	Target      string          `yaml:"target"`
	Type        string          `yaml:"type"`
	SkipIfEmpty bool            `yaml:"skip_if_empty"`
	Default     string          `yaml:"default"`
	Rules       []string        `yaml:"rules"`
	Transforms  []transformSpec `yaml:"transforms"`
}

type transformSpec struct {
	Kind        string `yaml:"kind"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

type indexSpec struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// LoadSchemaFile reads table schemas from a YAML file and registers them into
// the mapper. Custom transforms cannot be expressed in YAML; only the
// declarative transform kinds are accepted.
func (m *Mapper) LoadSchemaFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse schema file: %w", err)
	}

	for _, spec := range file.Tables {
		schema, err := buildSchema(spec)
		if err != nil {
			return fmt.Errorf("table %s: %w", spec.Name, err)
		}
		m.RegisterSchema(schema)
	}
	return nil
}

// LoadSchemaDir registers every .yaml/.yml schema file found directly in dir.
// A missing directory is not an error; a server can start without schemas.
func (m *Mapper) LoadSchemaDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read schema directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := m.LoadSchemaFile(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("schema file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func buildSchema(spec tableSpec) (*TableSchema, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("table name is required")
	}
	schema := NewTableSchema(spec.Name)
	if spec.Namespace != "" {
		schema.WithNamespace(spec.Namespace)
	}

	for _, col := range spec.Columns {
		dt, ok := datatable.ParseDataType(col.Type)
		if !ok {
			return nil, fmt.Errorf("column %s: unknown type %q", col.Name, col.Type)
		}
		nullable := true
		if col.Nullable != nil {
			nullable = *col.Nullable
		}
		def := ColumnDefinition{
			Name:       col.Name,
			Type:       dt,
			Nullable:   nullable,
			PrimaryKey: col.PrimaryKey,
			Unique:     col.Unique,
		}
		if col.Default != "" {
			def.Default = datatable.String(col.Default)
		}
		schema.AddColumn(def)
	}

	for _, mp := range spec.Mappings {
		dt, ok := datatable.ParseDataType(mp.Type)
		if !ok {
			return nil, fmt.Errorf("mapping %s: unknown type %q", mp.Source, mp.Type)
		}
		cm := ColumnMapping{
			Source:      mp.Source,
			Target:      mp.Target,
			Type:        dt,
			SkipIfEmpty: mp.SkipIfEmpty,
			Rules:       mp.Rules,
		}
		if mp.Default != "" {
			cm.Default = datatable.String(mp.Default)
		}
		for _, ts := range mp.Transforms {
			kind, err := parseTransformKind(ts.Kind)
			if err != nil {
				return nil, fmt.Errorf("mapping %s: %w", mp.Source, err)
			}
			cm.Transforms = append(cm.Transforms, Transform{
				Kind:        kind,
				Pattern:     ts.Pattern,
				Replacement: ts.Replacement,
			})
		}
		schema.AddMapping(cm)
	}

	for _, idx := range spec.Indexes {
		schema.AddIndex(idx.Columns, idx.Unique, idx.Name)
	}
	return schema, nil
}

func parseTransformKind(s string) (TransformKind, error) {
	switch TransformKind(s) {
	case TransformUppercase, TransformLowercase, TransformTrim,
		TransformReplace, TransformRegex:
		return TransformKind(s), nil
	case TransformCustom:
		return "", fmt.Errorf("custom transforms cannot be declared in YAML")
	default:
		return "", fmt.Errorf("unknown transform kind %q", s)
	}
}
