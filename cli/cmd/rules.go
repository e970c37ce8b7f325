package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/fluxfilter/cli/output"
	"github.com/fluxbase-eu/fluxfilter/internal/api"
	"github.com/fluxbase-eu/fluxfilter/internal/validation"
)

var rulesCmd = &cobra.Command{
	Use:   "rules <entity>",
	Short: "Show the validation rules of an entity",
	Long: `Print the validation id of an entity and the rules derived from its
properties.

Examples:
  fluxfilter rules Role
  fluxfilter rules User -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(catalog api.Catalog) error {
		cache := validation.NewCache(catalog, false)

		id, err := cache.ID(args[0])
		if err != nil {
			return err
		}
		rules, err := cache.Rules(id)
		if err != nil {
			return err
		}

		formatter := GetFormatter()
		if formatter.Format != output.FormatTable {
			return formatter.Print(map[string]any{
				"entity": args[0],
				"id":     id,
				"rules":  rules,
			})
		}

		formatter.PrintInfo("ID: " + id)
		formatter.PrintInfo("")

		fields := make([]string, 0, len(rules))
		for field := range rules {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		data := output.TableData{Headers: []string{"FIELD", "RULE", "VALUE"}}
		for _, field := range fields {
			names := make([]string, 0, len(rules[field]))
			for name := range rules[field] {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				data.Rows = append(data.Rows, []string{field, name, fmt.Sprint(rules[field][name])})
			}
		}
		return formatter.PrintTable(data)
	})
}
