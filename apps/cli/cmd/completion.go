package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for partest.

To load completions:

Bash:
  $ source <(partest completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ partest completion bash > /etc/bash_completion.d/partest
  # macOS:
  $ partest completion bash > $(brew --prefix)/etc/bash_completion.d/partest

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ partest completion zsh > "${fpath[1]}/_partest"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ partest completion fish | source

  # To load completions for each session, execute once:
  $ partest completion fish > ~/.config/fish/completions/partest.fish

PowerShell:
  PS> partest completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> partest completion powershell > partest.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// usageArgs reports argument validation failures with the usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitUsageError, Err: err}
		}
		return nil
	}
}
