package cli

import (
	"github.com/spf13/cobra"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
)

func newVersionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions ID",
		Short: "List every version in a dataset's lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			list, err := app.workspace.Versions.Load(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(list, func(r *render.Renderer) error {
				return r.Versions(list, app.workspace.Versions.Selection())
			})
		},
	}
}

func newCompareCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "compare A B",
		Short: "Compare two versions of a dataset",
		Long: `Compare two versions from the same lineage. The older version is always
the baseline, whatever the argument order.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			b, err := parseID("dataset", args[1])
			if err != nil {
				return err
			}
			if a == b {
				return api.NewLocalError("pick two different versions to compare", nil)
			}

			ctx := cmd.Context()
			if _, err := app.workspace.Select(ctx, a); err != nil {
				return err
			}
			panel := app.workspace.Versions
			if _, err := panel.Load(ctx); err != nil {
				return err
			}
			for _, id := range []int64{a, b} {
				if err := panel.Toggle(id); err != nil {
					return err
				}
			}

			comparison, err := panel.Compare(ctx)
			if err != nil {
				return err
			}
			return app.emit(comparison, func(r *render.Renderer) error {
				return r.Comparison(comparison)
			})
		},
	}
}
