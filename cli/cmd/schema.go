package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/fluxfilter/cli/output"
	"github.com/fluxbase-eu/fluxfilter/internal/api"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect the entity schema",
	Long:  `List and describe the entities filters are resolved against.`,
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	Long: `List the entities of the configured schema source.

Examples:
  fluxfilter schema list
  FLUXFILTER_SCHEMA_SOURCE=postgres fluxfilter schema list -o json`,
	Args: cobra.NoArgs,
	RunE: runSchemaList,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <entity>",
	Short: "Describe an entity",
	Long: `Show the properties of an entity.

Examples:
  fluxfilter schema show User`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaShow,
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a schema description file",
	Long: `Load a YAML schema description and report unresolved references.

Examples:
  fluxfilter schema check ./schema.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaCheck,
}

func init() {
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
}

func withCatalog(cmd *cobra.Command, fn func(api.Catalog) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, db, err := openCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	return fn(catalog)
}

func runSchemaList(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(catalog api.Catalog) error {
		return GetFormatter().PrintList(catalog.EntityNames())
	})
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(catalog api.Catalog) error {
		entity, err := catalog.Entity(args[0])
		if err != nil {
			return err
		}

		formatter := GetFormatter()
		if formatter.Format != output.FormatTable {
			return formatter.Print(api.EntityResponse{
				Name:       entity.Name,
				Label:      entity.Label,
				Properties: entity.Properties(),
			})
		}

		data := output.TableData{
			Headers: []string{"PROPERTY", "TYPE", "REQUIRED", "UNIQUE", "MAX LENGTH", "LABEL"},
		}
		for _, p := range entity.Properties() {
			typ := p.Type.String()
			if p.Elem != nil {
				typ = fmt.Sprintf("%s<%s>", p.Type.Kind, p.Elem)
			}
			maxLength := ""
			if p.MaxLength > 0 {
				maxLength = strconv.Itoa(p.MaxLength)
			}
			data.Rows = append(data.Rows, []string{
				p.Name,
				typ,
				strconv.FormatBool(p.Required),
				strconv.FormatBool(p.Unique),
				maxLength,
				p.Label,
			})
		}
		return formatter.PrintTable(data)
	})
}

func runSchemaCheck(cmd *cobra.Command, args []string) error {
	registry, err := schema.LoadFile(args[0])
	if err != nil {
		return err
	}

	GetFormatter().PrintInfo(fmt.Sprintf("%s: %d entities, all references resolved", args[0], len(registry.EntityNames())))
	return nil
}
