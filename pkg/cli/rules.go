package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
)

func newRulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the validation rules of a dataset",
	}

	var params string
	add := &cobra.Command{
		Use:   "add ID COLUMN TYPE",
		Short: "Add a validation rule",
		Long: `Add a validation rule to a dataset. TYPE is one of not_null, unique,
range, regex. Parameters are a JSON object:

  dq rules add 3 age range --params '{"min": 0, "max": 120}'
  dq rules add 3 email regex --params '{"pattern": "^[^@]+@[^@]+$"}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			rule, err := app.workspace.Rules.AddRule(cmd.Context(), args[1], args[2], params)
			if err != nil {
				return err
			}
			return app.emit(rule, func(r *render.Renderer) error {
				return r.Rules([]models.Rule{*rule})
			})
		},
	}
	add.Flags().StringVar(&params, "params", "", "Rule parameters as a JSON object")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list ID",
			Short: "List validation rules",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := app.selectArg(cmd, args[0]); err != nil {
					return err
				}
				rules, err := app.workspace.Rules.Load(cmd.Context())
				if err != nil {
					return err
				}
				return app.emit(rules, func(r *render.Renderer) error {
					return r.Rules(rules)
				})
			},
		},
		add,
		&cobra.Command{
			Use:   "delete ID RULE_ID",
			Short: "Delete a validation rule",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := app.selectArg(cmd, args[0]); err != nil {
					return err
				}
				ruleID, err := parseID("rule", args[1])
				if err != nil {
					return err
				}
				if err := app.workspace.Rules.DeleteRule(cmd.Context(), ruleID); err != nil {
					return err
				}
				return app.message("Deleted rule %d", ruleID)
			},
		},
	)
	return cmd
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate ID",
		Short: "Run every validation rule of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.selectArg(cmd, args[0]); err != nil {
				return err
			}
			result, err := app.workspace.Rules.RunValidation(cmd.Context())
			if errors.Is(err, apperrors.ErrNoRules) {
				return app.message("No validation rules defined. Add rules with \"dq rules add\" first.")
			}
			if err != nil {
				return err
			}
			return app.emit(result, func(r *render.Renderer) error {
				return r.Validation(result)
			})
		},
	}
}
