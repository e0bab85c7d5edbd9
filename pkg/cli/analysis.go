package cli

import (
	"github.com/spf13/cobra"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
)

// selectArg parses a dataset id argument and makes it the workspace selection.
func (a *App) selectArg(cmd *cobra.Command, arg string) (*models.Dataset, error) {
	id, err := parseID("dataset", arg)
	if err != nil {
		return nil, err
	}
	return a.workspace.Select(cmd.Context(), id)
}

func newProfileCmd(app *App) *cobra.Command {
	var latest bool

	cmd := &cobra.Command{
		Use:   "profile ID",
		Short: "Profile a dataset",
		Long: `Run a fresh profile of a dataset: per-column statistics, detected issues,
anomalies and a quality score. With --latest the stored profile is shown
instead of running a new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}

			panel := app.workspace.Profile
			run := panel.Run
			if latest {
				run = panel.LoadLatest
			}
			report, err := run(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(report, func(r *render.Renderer) error {
				return r.Profile(report)
			})
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "Show the latest stored profile instead of running one")
	return cmd
}

func newIssuesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "issues ID",
		Short: "List the quality issues of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			list, err := app.workspace.Profile.LoadIssues(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(list, func(r *render.Renderer) error {
				return r.Issues(list)
			})
		},
	}
}

func newAICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ai ID",
		Short: "Ask the service for an AI analysis of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			analysis, err := app.workspace.AI.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(analysis, func(r *render.Renderer) error {
				return r.Analysis(analysis)
			})
		},
	}
}

func newSuggestRulesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest-rules ID COLUMN",
		Short: "Ask the service to propose validation rules for a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			suggestions, err := app.workspace.AI.SuggestRules(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return app.emit(suggestions, func(r *render.Renderer) error {
				return r.Suggestions(suggestions)
			})
		},
	}
}
