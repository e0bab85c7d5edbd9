package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

const shellPrompt = "dq> "

const shellHelp = `Commands:
  ls                          list datasets
  use ID                      select a dataset
  profile [latest]            profile the selected dataset
  issues                      list its quality issues
  ai                          AI analysis
  suggest COLUMN              AI rule suggestions for a column
  rules                       list validation rules
  add-rule COLUMN TYPE [JSON] add a rule (not_null, unique, range, regex)
  del-rule RULE_ID            delete a rule
  validate                    run every rule
  versions                    list versions
  pick ID                     pick or release a version for comparison
  compare                     compare the two picked versions
  upload FILE                 upload a new dataset and select it
  new-version FILE            upload a new version of the selected dataset
  delete ID                   delete a dataset
  refresh                     reload rules and versions
  help                        show this help
  quit                        leave the shell`

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive workspace",
		Long: `Start an interactive session over one workspace. The selected dataset,
loaded panels and picked versions persist between commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runShell(cmd.Context())
		},
	}
}

type shellFunc func(ctx context.Context, args []string) error

type shellCommand struct {
	minArgs int
	usage   string
	run     shellFunc
}

// runShell reads commands until quit or end of input. Command errors are
// printed and the session continues.
func (a *App) runShell(ctx context.Context) error {
	commands := a.shellCommands()
	scanner := bufio.NewScanner(a.in)

	fmt.Fprintf(a.out, "dq %s connected to %s. Type \"help\" for commands.\n", a.version, a.cfg.API.BaseURL)
	for {
		fmt.Fprint(a.out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name, args := strings.ToLower(fields[0]), fields[1:]

		switch name {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Fprintln(a.out, shellHelp)
			continue
		}

		command, ok := commands[name]
		if !ok {
			a.reportError(fmt.Errorf("unknown command %q, type \"help\" for commands", name))
			continue
		}
		if len(args) < command.minArgs {
			a.reportError(fmt.Errorf("usage: %s", command.usage))
			continue
		}
		if err := command.run(ctx, args); err != nil {
			a.reportError(err)
		}
	}
}

func (a *App) shellCommands() map[string]shellCommand {
	ws := a.workspace

	show := func(v any, view func(r *render.Renderer) error) error {
		return a.emit(v, view)
	}
	selectedID := func() int64 {
		if ds := ws.Selected(); ds != nil {
			return ds.ID
		}
		return 0
	}
	showVersions := func(ctx context.Context) error {
		list, ok := ws.Versions.Versions.Value(ws.Selected().Key())
		if !ok {
			var err error
			if list, err = ws.Versions.Load(ctx); err != nil {
				return err
			}
		}
		return show(list, func(r *render.Renderer) error {
			return r.Versions(list, ws.Versions.Selection())
		})
	}

	return map[string]shellCommand{
		"ls": {run: func(ctx context.Context, _ []string) error {
			list, err := ws.Load(ctx)
			if err != nil {
				return err
			}
			return show(list, func(r *render.Renderer) error { return r.Datasets(list, selectedID()) })
		}},
		"use": {minArgs: 1, usage: "use ID", run: func(ctx context.Context, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			ds, err := ws.Select(ctx, id)
			if err != nil {
				return err
			}
			return show(ds, func(r *render.Renderer) error { return r.Dataset(ds) })
		}},
		"profile": {run: func(ctx context.Context, args []string) error {
			run := ws.Profile.Run
			if len(args) > 0 && args[0] == "latest" {
				run = ws.Profile.LoadLatest
			}
			report, err := run(ctx)
			if err != nil {
				return err
			}
			return show(report, func(r *render.Renderer) error { return r.Profile(report) })
		}},
		"issues": {run: func(ctx context.Context, _ []string) error {
			list, err := ws.Profile.LoadIssues(ctx)
			if err != nil {
				return err
			}
			return show(list, func(r *render.Renderer) error { return r.Issues(list) })
		}},
		"ai": {run: func(ctx context.Context, _ []string) error {
			analysis, err := ws.AI.Analyze(ctx)
			if err != nil {
				return err
			}
			return show(analysis, func(r *render.Renderer) error { return r.Analysis(analysis) })
		}},
		"suggest": {minArgs: 1, usage: "suggest COLUMN", run: func(ctx context.Context, args []string) error {
			suggestions, err := ws.AI.SuggestRules(ctx, args[0])
			if err != nil {
				return err
			}
			return show(suggestions, func(r *render.Renderer) error { return r.Suggestions(suggestions) })
		}},
		"rules": {run: func(ctx context.Context, _ []string) error {
			rules, err := ws.Rules.Load(ctx)
			if err != nil {
				return err
			}
			return show(rules, func(r *render.Renderer) error { return r.Rules(rules) })
		}},
		"add-rule": {minArgs: 2, usage: "add-rule COLUMN TYPE [JSON]", run: func(ctx context.Context, args []string) error {
			rule, err := ws.Rules.AddRule(ctx, args[0], args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			return a.message("Added rule %d (%s on %s)", rule.ID, rule.RuleType, rule.ColumnName)
		}},
		"del-rule": {minArgs: 1, usage: "del-rule RULE_ID", run: func(ctx context.Context, args []string) error {
			id, err := parseID("rule", args[0])
			if err != nil {
				return err
			}
			if err := ws.Rules.DeleteRule(ctx, id); err != nil {
				return err
			}
			return a.message("Deleted rule %d", id)
		}},
		"validate": {run: func(ctx context.Context, _ []string) error {
			result, err := ws.Rules.RunValidation(ctx)
			if err != nil {
				return err
			}
			return show(result, func(r *render.Renderer) error { return r.Validation(result) })
		}},
		"versions": {run: func(ctx context.Context, _ []string) error {
			if _, err := ws.Versions.Load(ctx); err != nil {
				return err
			}
			return showVersions(ctx)
		}},
		"pick": {minArgs: 1, usage: "pick ID", run: func(ctx context.Context, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			if ws.Selected() == nil {
				return api.NewLocalError("select a dataset first", nil)
			}
			if _, ok := ws.Versions.Versions.Value(ws.Selected().Key()); !ok {
				if _, err := ws.Versions.Load(ctx); err != nil {
					return err
				}
			}
			if err := ws.Versions.Toggle(id); err != nil {
				return err
			}
			return showVersions(ctx)
		}},
		"compare": {run: func(ctx context.Context, _ []string) error {
			comparison, err := ws.Versions.Compare(ctx)
			if err != nil {
				return err
			}
			return show(comparison, func(r *render.Renderer) error { return r.Comparison(comparison) })
		}},
		"upload": {minArgs: 1, usage: "upload FILE", run: func(ctx context.Context, args []string) error {
			ds, err := ws.Upload(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return show(ds, func(r *render.Renderer) error { return r.UploadState(workspace.UploadDone, ds) })
		}},
		"new-version": {minArgs: 1, usage: "new-version FILE", run: func(ctx context.Context, args []string) error {
			resp, err := ws.Versions.UploadVersion(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return show(resp, func(r *render.Renderer) error {
				return r.UploadState(workspace.UploadDone, &resp.NewDataset)
			})
		}},
		"delete": {minArgs: 1, usage: "delete ID", run: func(ctx context.Context, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			if err := ws.Delete(ctx, id); err != nil {
				return err
			}
			return a.message("Deleted dataset %d", id)
		}},
		"refresh": {run: func(ctx context.Context, _ []string) error {
			if err := ws.Refresh(ctx); err != nil {
				return err
			}
			return a.message("Refreshed rules and versions")
		}},
	}
}
