package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/config"
)

// NewRootCommand builds the dq command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "dq",
		Short: "Workspace client for the dataset quality service",
		Long: `dq uploads CSV datasets to the dataset quality service, profiles them,
asks for AI analysis, manages validation rules and compares dataset versions.

Configuration is read from dq.yaml (or --config) with DQ_* environment
variables taking precedence; flags override both.`,
		Version:       app.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "Config file (default "+config.DefaultPath+", env DQ_CONFIG)")
	flags.StringVar(&app.flags.apiURL, "api-url", "", "Base URL of the dataset quality service")
	flags.StringVarP(&app.flags.output, "output", "o", "", "Output format (text, json, yaml)")
	flags.StringVar(&app.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&app.flags.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newDatasetsCmd(app),
		newUploadCmd(app),
		newNewVersionCmd(app),
		newCheckCmd(app),
		newHealthCmd(app),
		newProfileCmd(app),
		newIssuesCmd(app),
		newAICmd(app),
		newSuggestRulesCmd(app),
		newRulesCmd(app),
		newValidateCmd(app),
		newVersionsCmd(app),
		newCompareCmd(app),
		newShellCmd(app),
		newWatchCmd(app),
		newMCPCmd(app),
	)
	return root
}

// Run executes the dq command line and returns the process exit code.
func Run(ctx context.Context, version string, args []string, in io.Reader, out, errOut io.Writer) int {
	app := NewApp(version, in, out, errOut)
	return app.execute(ctx, args)
}

func (a *App) execute(ctx context.Context, args []string) int {
	root := NewRootCommand(a)
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		if a.logger != nil {
			a.logger.Debug("Command failed", zap.Error(err))
		}
		a.reportError(err)
		return 1
	}
	return 0
}
