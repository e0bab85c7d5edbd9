package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

// errCheckFailed is returned by "dq check" when a file would be refused.
var errCheckFailed = errors.New("file did not pass the upload checks")

func newDatasetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ds"},
		Short:   "List, show and delete datasets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.listDatasets(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List datasets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.listDatasets(cmd)
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Show one dataset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("dataset", args[0])
				if err != nil {
					return err
				}
				ds, err := app.gateway.GetDataset(cmd.Context(), id)
				if err != nil {
					return err
				}
				return app.emit(ds, func(r *render.Renderer) error {
					return r.Dataset(ds)
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a dataset",
			Long: `Delete a dataset. The service refuses to delete a dataset that newer
versions depend on; delete those versions first.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("dataset", args[0])
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				if _, err := app.workspace.Load(ctx); err != nil {
					return err
				}
				if err := app.workspace.Delete(ctx, id); err != nil {
					return err
				}
				return app.message("Deleted dataset %d", id)
			},
		},
	)
	return cmd
}

func (a *App) listDatasets(cmd *cobra.Command) error {
	list, err := a.workspace.Load(cmd.Context())
	if err != nil {
		return err
	}
	return a.emit(list, func(r *render.Renderer) error {
		return r.Datasets(list, 0)
	})
}

func newUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a CSV file as a new dataset",
		Long: `Upload a CSV file as a new dataset. The file is checked locally first
(extension, size, structure and formula or script injection); a refused
file is never sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := app.workspace.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.emit(ds, func(r *render.Renderer) error {
				return r.UploadState(workspace.UploadDone, ds)
			})
		},
	}
}

func newNewVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "new-version ID FILE",
		Short: "Upload a CSV file as a new version of a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := app.workspace.Select(ctx, id); err != nil {
				return err
			}
			resp, err := app.workspace.Versions.UploadVersion(ctx, args[1])
			if err != nil {
				return err
			}
			return app.emit(resp, func(r *render.Renderer) error {
				if resp.Message != "" {
					if err := r.Message("%s", resp.Message); err != nil {
						return err
					}
				}
				return r.UploadState(workspace.UploadDone, &resp.NewDataset)
			})
		},
	}
}

// checkReport is the machine-readable output of "dq check".
type checkReport struct {
	Local     models.SecurityReport  `json:"local"`
	Rejection *api.Detail            `json:"rejection,omitempty"`
	Remote    *models.SecurityReport `json:"remote,omitempty"`
}

func newCheckCmd(app *App) *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a CSV file without uploading it",
		Long: `Run the local upload checks against a CSV file, then ask the service for
its own security report. Exits non-zero when the file would be refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			name := filepath.Base(path)
			opts := app.preflightOptions()

			report := checkReport{Local: preflight.Inspect(name, content, opts)}
			if rej := preflight.Check(name, content, opts); rej != nil {
				report.Rejection = &api.Detail{
					Error:       rej.Error,
					Reason:      rej.Reason,
					Explanation: rej.Explanation,
					FoundIssues: rej.FoundIssues,
					HowToFix:    rej.HowToFix,
				}
			}

			if !localOnly {
				remote, err := app.gateway.SecurityCheck(cmd.Context(), name, bytes.NewReader(content))
				if err != nil {
					return err
				}
				report.Remote = remote
			}

			err = app.emit(report, func(r *render.Renderer) error {
				r.Message("Local checks:")
				if err := r.SecurityReport(&report.Local); err != nil {
					return err
				}
				if report.Remote != nil {
					r.Message("Service checks:")
					return r.SecurityReport(report.Remote)
				}
				return nil
			})
			if err != nil {
				return err
			}

			if report.Rejection != nil {
				return fmt.Errorf("%w: %w", errCheckFailed, api.NewLocalError(report.Rejection.Error, report.Rejection))
			}
			if report.Remote != nil && !reportPasses(report.Remote) {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&localOnly, "local", false, "Skip the service check")
	return cmd
}

func reportPasses(rep *models.SecurityReport) bool {
	return rep.ExtensionOK && rep.SizeOK && rep.Structure.Valid && rep.SecurityScan.Safe
}

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.gateway.Health(cmd.Context())
			if err != nil {
				return err
			}
			return app.emit(status, func(r *render.Renderer) error {
				return r.Message("%s: %s", app.cfg.API.BaseURL, status.Status)
			})
		},
	}
}
