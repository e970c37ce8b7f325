package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for fluxfilter.

Bash:
  $ source <(fluxfilter completion bash)

Zsh:
  $ fluxfilter completion zsh > "${fpath[1]}/_fluxfilter"

Fish:
  $ fluxfilter completion fish | source

PowerShell:
  PS> fluxfilter completion powershell | Out-String | Invoke-Expression

Entity names are completed for parse, rules and schema show using the
configured schema source.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		default:
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	parseCmd.ValidArgsFunction = completeEntity
	rulesCmd.ValidArgsFunction = completeEntity
	schemaShowCmd.ValidArgsFunction = completeEntity
}

// completeEntity completes the first positional argument with entity names
func completeEntity(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, db, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	if db != nil {
		defer db.Close()
	}

	var names []string
	for _, name := range catalog.EntityNames() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
