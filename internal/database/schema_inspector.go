package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
	"github.com/rs/zerolog/log"
)

// SchemaInspector discovers entity descriptions from the PostgreSQL catalog
type SchemaInspector struct {
	conn *Connection
}

// TableInfo represents metadata about a database table
type TableInfo struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Comment     string       `json:"comment,omitempty"`
	Columns     []ColumnInfo `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// ColumnInfo represents metadata about a table column
type ColumnInfo struct {
	Name         string  `json:"name"`
	DataType     string  `json:"data_type"`
	UDTSchema    string  `json:"udt_schema"`
	UDTName      string  `json:"udt_name"`
	IsNullable   bool    `json:"is_nullable"`
	IsIdentity   bool    `json:"is_identity"`
	DefaultValue *string `json:"default_value"`
	IsUnique     bool    `json:"is_unique"`
	MaxLength    *int    `json:"max_length"`
	Position     int     `json:"position"`
	Comment      *string `json:"comment"`
}

// ForeignKey represents a single-column foreign key relationship
type ForeignKey struct {
	Name             string `json:"name"`
	ColumnName       string `json:"column_name"`
	ReferencedSchema string `json:"referenced_schema"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// EnumInfo represents a PostgreSQL enum type
type EnumInfo struct {
	Schema string   `json:"schema"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// NewSchemaInspector creates a new schema inspector
func NewSchemaInspector(conn *Connection) *SchemaInspector {
	return &SchemaInspector{conn: conn}
}

// LoadRegistry inspects the given schemas and builds an entity registry from
// their tables, enum types and foreign keys.
func (si *SchemaInspector) LoadRegistry(ctx context.Context, schemas ...string) (*schema.Registry, error) {
	tables, err := si.GetAllTables(ctx, schemas...)
	if err != nil {
		return nil, err
	}

	enums, err := si.GetEnums(ctx, schemas...)
	if err != nil {
		return nil, err
	}

	reg, err := BuildRegistry(tables, enums)
	if err != nil {
		return nil, err
	}

	log.Info().
		Strs("schemas", schemas).
		Int("tables", len(tables)).
		Int("enums", len(enums)).
		Msg("Loaded entity schema from database")

	return reg, nil
}

// GetAllTables retrieves information about all base tables in the specified
// schemas. Columns, keys and constraints are fetched in batches.
func (si *SchemaInspector) GetAllTables(ctx context.Context, schemas ...string) ([]TableInfo, error) {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}

	query := `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM information_schema.tables t
		JOIN pg_catalog.pg_namespace n ON n.nspname = t.table_schema
		JOIN pg_catalog.pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
		WHERE t.table_type = 'BASE TABLE'
			AND t.table_schema = ANY($1)
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	var tables []TableInfo
	index := make(map[string]int)
	for rows.Next() {
		var table TableInfo
		if err := rows.Scan(&table.Schema, &table.Name, &table.Comment); err != nil {
			rows.Close()
			return nil, err
		}
		index[tableKey(table.Schema, table.Name)] = len(tables)
		tables = append(tables, table)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columns, err := si.batchGetColumns(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	primaryKeys, err := si.batchGetPrimaryKeys(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary keys: %w", err)
	}
	uniques, err := si.batchGetUniqueColumns(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique constraints: %w", err)
	}
	foreignKeys, err := si.batchGetForeignKeys(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}

	for key, i := range index {
		cols := columns[key]
		for j := range cols {
			cols[j].IsUnique = uniques[key][cols[j].Name]
		}
		tables[i].Columns = cols
		tables[i].PrimaryKey = primaryKeys[key]
		tables[i].ForeignKeys = foreignKeys[key]
	}

	return tables, nil
}

// batchGetColumns retrieves columns for all tables in the specified schemas
func (si *SchemaInspector) batchGetColumns(ctx context.Context, schemas []string) (map[string][]ColumnInfo, error) {
	result := make(map[string][]ColumnInfo)

	query := `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			c.udt_schema,
			c.udt_name,
			c.is_nullable = 'YES',
			c.is_identity = 'YES',
			c.column_default,
			c.character_maximum_length,
			c.ordinal_position,
			col_description((quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass, c.ordinal_position)
		FROM information_schema.columns c
		WHERE c.table_schema = ANY($1)
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, table string
		var col ColumnInfo
		if err := rows.Scan(
			&schemaName,
			&table,
			&col.Name,
			&col.DataType,
			&col.UDTSchema,
			&col.UDTName,
			&col.IsNullable,
			&col.IsIdentity,
			&col.DefaultValue,
			&col.MaxLength,
			&col.Position,
			&col.Comment,
		); err != nil {
			return nil, err
		}

		key := tableKey(schemaName, table)
		result[key] = append(result[key], col)
	}

	return result, rows.Err()
}

// batchGetPrimaryKeys retrieves primary key columns for all tables in the specified schemas
func (si *SchemaInspector) batchGetPrimaryKeys(ctx context.Context, schemas []string) (map[string][]string, error) {
	result := make(map[string][]string)

	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = ANY($1)
		ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, table, column string
		if err := rows.Scan(&schemaName, &table, &column); err != nil {
			return nil, err
		}
		key := tableKey(schemaName, table)
		result[key] = append(result[key], column)
	}

	return result, rows.Err()
}

// batchGetUniqueColumns returns the columns covered by a single-column unique constraint
func (si *SchemaInspector) batchGetUniqueColumns(ctx context.Context, schemas []string) (map[string]map[string]bool, error) {
	result := make(map[string]map[string]bool)

	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			MIN(kcu.column_name)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
			AND tc.table_schema = ANY($1)
		GROUP BY tc.table_schema, tc.table_name, tc.constraint_name
		HAVING COUNT(*) = 1
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, table, column string
		if err := rows.Scan(&schemaName, &table, &column); err != nil {
			return nil, err
		}
		key := tableKey(schemaName, table)
		if result[key] == nil {
			result[key] = make(map[string]bool)
		}
		result[key][column] = true
	}

	return result, rows.Err()
}

// batchGetForeignKeys retrieves single-column foreign keys for all tables in the specified schemas
func (si *SchemaInspector) batchGetForeignKeys(ctx context.Context, schemas []string) (map[string][]ForeignKey, error) {
	result := make(map[string][]ForeignKey)

	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			MIN(kcu.column_name),
			MIN(ccu.table_schema),
			MIN(ccu.table_name),
			MIN(ccu.column_name)
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = ANY($1)
		GROUP BY tc.table_schema, tc.table_name, tc.constraint_name
		HAVING COUNT(DISTINCT kcu.column_name) = 1
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, table string
		var fk ForeignKey
		if err := rows.Scan(
			&schemaName,
			&table,
			&fk.Name,
			&fk.ColumnName,
			&fk.ReferencedSchema,
			&fk.ReferencedTable,
			&fk.ReferencedColumn,
		); err != nil {
			return nil, err
		}

		key := tableKey(schemaName, table)
		result[key] = append(result[key], fk)
	}

	return result, rows.Err()
}

// GetEnums retrieves the enum types declared in the specified schemas
func (si *SchemaInspector) GetEnums(ctx context.Context, schemas ...string) ([]EnumInfo, error) {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}

	query := `
		SELECT
			n.nspname,
			t.typname,
			e.enumlabel
		FROM pg_catalog.pg_enum e
		JOIN pg_catalog.pg_type t ON t.oid = e.enumtypid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = ANY($1)
		ORDER BY n.nspname, t.typname, e.enumsortorder
	`

	rows, err := si.conn.Query(ctx, query, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to list enum types: %w", err)
	}
	defer rows.Close()

	var enums []EnumInfo
	for rows.Next() {
		var schemaName, name, label string
		if err := rows.Scan(&schemaName, &name, &label); err != nil {
			return nil, err
		}
		n := len(enums)
		if n == 0 || enums[n-1].Schema != schemaName || enums[n-1].Name != name {
			enums = append(enums, EnumInfo{Schema: schemaName, Name: name})
			n++
		}
		enums[n-1].Values = append(enums[n-1].Values, label)
	}

	return enums, rows.Err()
}

func tableKey(schemaName, table string) string {
	return schemaName + "." + table
}

// BuildRegistry turns catalog metadata into an entity registry.
//
// Tables become entities named in UpperCamelCase, columns become lowerCamelCase
// properties. A single-column foreign key to an inspected table becomes a
// relation property named after the column without its "_id" suffix, and the
// referenced entity gets a collection named after the referencing table.
// Columns of unsupported types are skipped.
func BuildRegistry(tables []TableInfo, enums []EnumInfo) (*schema.Registry, error) {
	reg := schema.NewRegistry()

	sorted := append([]TableInfo(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Schema != sorted[j].Schema {
			return sorted[i].Schema < sorted[j].Schema
		}
		return sorted[i].Name < sorted[j].Name
	})

	enumNames := qualifiedNames(len(enums), func(i int) (string, string) {
		return enums[i].Schema, enums[i].Name
	})
	for _, e := range enums {
		reg.AddEnum(schema.NewEnum(enumNames[tableKey(e.Schema, e.Name)], e.Values...))
	}

	entityNames := qualifiedNames(len(sorted), func(i int) (string, string) {
		return sorted[i].Schema, sorted[i].Name
	})

	entities := make([]*schema.Entity, len(sorted))
	for i, table := range sorted {
		entity := schema.NewEntity(entityNames[tableKey(table.Schema, table.Name)])
		entity.Label = table.Comment

		fks := make(map[string]ForeignKey, len(table.ForeignKeys))
		for _, fk := range table.ForeignKeys {
			fks[fk.ColumnName] = fk
		}

		cols := append([]ColumnInfo(nil), table.Columns...)
		sort.SliceStable(cols, func(a, b int) bool { return cols[a].Position < cols[b].Position })

		for _, col := range cols {
			prop := schema.Property{
				Name:     lowerCamel(col.Name),
				Required: !col.IsNullable && col.DefaultValue == nil && !col.IsIdentity,
				Unique:   col.IsUnique,
				ReadOnly: col.IsIdentity,
			}
			if col.Comment != nil {
				prop.Tooltips = *col.Comment
			}

			if fk, ok := fks[col.Name]; ok {
				if target, known := entityNames[tableKey(fk.ReferencedSchema, fk.ReferencedTable)]; known {
					prop.Type = schema.EntityOf(target)
					if name := relationName(col.Name); !hasProperty(entity, name) {
						prop.Name = name
					}
					entity.Add(prop)
					continue
				}
			}

			t, ok := columnType(col, enumNames)
			if !ok {
				log.Debug().
					Str("table", tableKey(table.Schema, table.Name)).
					Str("column", col.Name).
					Str("data_type", col.DataType).
					Msg("Skipping column of unsupported type")
				continue
			}
			prop.Type = t
			if col.MaxLength != nil {
				prop.MaxLength = *col.MaxLength
			}
			prop.Lob = col.DataType == "text"

			entity.Add(prop)
		}

		entities[i] = entity
		reg.AddEntity(entity)
	}

	// Reverse side of every relation
	for i, table := range sorted {
		source := entities[i]
		for _, fk := range table.ForeignKeys {
			targetName, known := entityNames[tableKey(fk.ReferencedSchema, fk.ReferencedTable)]
			if !known {
				continue
			}
			target, err := reg.Entity(targetName)
			if err != nil {
				return nil, err
			}

			name := lowerCamel(table.Name)
			if hasProperty(target, name) {
				name += upperCamel("by_" + relationName(fk.ColumnName))
			}
			if hasProperty(target, name) {
				continue
			}

			elem := schema.EntityOf(source.Name)
			target.Add(schema.Property{
				Name:     name,
				Type:     schema.Type{Kind: schema.KindCollection},
				Elem:     &elem,
				ReadOnly: true,
			})
		}
	}

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent catalog: %w", err)
	}
	return reg, nil
}

// qualifiedNames maps "schema.name" keys to UpperCamelCase names. Names that
// occur in more than one schema are prefixed with their schema.
func qualifiedNames(n int, at func(int) (string, string)) map[string]string {
	counts := make(map[string]int, n)
	for i := 0; i < n; i++ {
		_, name := at(i)
		counts[upperCamel(name)]++
	}

	names := make(map[string]string, n)
	for i := 0; i < n; i++ {
		schemaName, name := at(i)
		camel := upperCamel(name)
		if counts[camel] > 1 {
			camel = upperCamel(schemaName) + camel
		}
		names[tableKey(schemaName, name)] = camel
	}
	return names
}

func hasProperty(e *schema.Entity, name string) bool {
	_, ok := e.Property(name)
	return ok
}

func columnType(col ColumnInfo, enumNames map[string]string) (schema.Type, bool) {
	if col.DataType == "USER-DEFINED" {
		if name, ok := enumNames[tableKey(col.UDTSchema, col.UDTName)]; ok {
			return schema.EnumOf(name), true
		}
	}

	kind, ok := kindForPGType(col.DataType, col.UDTName)
	if !ok {
		return schema.Type{}, false
	}
	return schema.Type{Kind: kind}, true
}

// kindForPGType maps an information_schema data type to a property kind
func kindForPGType(dataType, udtName string) (schema.Kind, bool) {
	switch dataType {
	case "smallint", "integer":
		return schema.KindInteger, true
	case "bigint":
		return schema.KindLong, true
	case "real", "double precision":
		return schema.KindFloat, true
	case "numeric":
		return schema.KindDecimal, true
	case "boolean":
		return schema.KindBoolean, true
	case "date":
		return schema.KindDate, true
	case "timestamp without time zone", "timestamp with time zone":
		return schema.KindDateTime, true
	case "uuid":
		return schema.KindUUID, true
	case "text", "character varying", "character", "name":
		return schema.KindString, true
	case "USER-DEFINED":
		if udtName == "citext" {
			return schema.KindString, true
		}
	}
	return "", false
}

// relationName strips a trailing "_id" or "Id" from a foreign key column
func relationName(column string) string {
	name := column
	switch {
	case len(name) > 3 && strings.HasSuffix(strings.ToLower(name), "_id"):
		name = name[:len(name)-3]
	case len(name) > 2 && strings.HasSuffix(name, "Id"):
		name = name[:len(name)-2]
	}
	return lowerCamel(name)
}

func upperCamel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})

	var b strings.Builder
	for _, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

func lowerCamel(s string) string {
	camel := upperCamel(s)
	if camel == "" {
		return s
	}
	runes := []rune(camel)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
