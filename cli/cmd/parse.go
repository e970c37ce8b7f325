package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/fluxfilter/cli/output"
	"github.com/fluxbase-eu/fluxfilter/internal/api"
	"github.com/fluxbase-eu/fluxfilter/internal/query"
)

var parseCmd = &cobra.Command{
	Use:   "parse <entity> [query-string...]",
	Short: "Parse filter, paging and sort parameters",
	Long: `Parse a query string against an entity and print the resulting filters,
page request and sort order. Several query strings are merged.

Examples:
  fluxfilter parse Role "search['EQ_code']=ROLE_ADMIN"
  fluxfilter parse User "search['BT_signupTime']=2024-01-01 ~ 2024-01-31" "rows=10&page=2"
  fluxfilter parse User "search['IN_userR2Roles.role.code']=ROLE_ADMIN,ROLE_OPS" -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	entity := args[0]

	values := url.Values{}
	for _, raw := range args[1:] {
		parsed, err := url.ParseQuery(raw)
		if err != nil {
			return fmt.Errorf("invalid query string %q: %w", raw, err)
		}
		for key, vs := range parsed {
			values[key] = append(values[key], vs...)
		}
	}

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

	parser, err := query.NewParser(&cfg.Query, catalog, nil)
	if err != nil {
		return err
	}

	params, err := parser.Parse(entity, values)
	if err != nil {
		return err
	}

	formatter := GetFormatter()
	resp := api.NewQueryResponse(entity, params)
	if formatter.Format != output.FormatTable {
		return formatter.Print(resp)
	}

	if len(resp.Filters) == 0 {
		formatter.PrintInfo("No filters.")
	} else {
		data := output.TableData{
			Headers: []string{"OPERATOR", "PROPERTIES", "TYPE", "VALUE", "SUBQUERY"},
			Rows:    make([][]string, len(resp.Filters)),
		}
		for i, f := range resp.Filters {
			subquery := ""
			if f.Subquery != nil {
				subquery = f.Subquery.String()
			}
			data.Rows[i] = []string{
				string(f.Operator),
				strings.Join(f.PropertyNames, query.OrSeparator),
				f.Type.String(),
				output.FormatValue(f.Value),
				subquery,
			}
		}
		if err := formatter.PrintTable(data); err != nil {
			return err
		}
	}

	formatter.PrintInfo("")
	if resp.Page == nil {
		formatter.PrintInfo("Page:  unpaged")
	} else {
		formatter.PrintInfo(fmt.Sprintf("Page:  index=%d size=%d offset=%d", resp.Page.Index, resp.Page.Size, resp.Page.Offset))
	}
	formatter.PrintInfo("Sort:  " + resp.Sort.String())
	return nil
}
