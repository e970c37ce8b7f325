package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/fluxfilter/cli/output"
	"github.com/fluxbase-eu/fluxfilter/internal/query"
)

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List filter operators",
	Long: `List the operator codes accepted as the prefix of a filter key,
e.g. EQ in search['EQ_code'].`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data := output.TableData{Headers: []string{"CODE", "DESCRIPTION", "LIST"}}
		for _, op := range query.Operators() {
			list := ""
			if op.IsListOperator() {
				list = "comma separated"
			}
			data.Rows = append(data.Rows, []string{string(op), op.Description(), list})
		}
		return GetFormatter().PrintTable(data)
	},
}

func init() {
	rootCmd.AddCommand(operatorsCmd)
}
