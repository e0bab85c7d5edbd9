package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/mcp"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
	"github.com/Dimash999666/data-quality-platform/pkg/watch"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

func newWatchCmd(app *App) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch ID FILE",
		Short: "Upload a new version every time a CSV file changes",
		Long: `Watch FILE and upload it as a new version of dataset ID after every
change. Bursts of writes are coalesced. Stops on interrupt.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}
			if debounce <= 0 {
				debounce = app.cfg.Watch.Debounce
			}

			w, err := watch.New(app.workspace.Uploader, id, args[1], watch.Options{
				Debounce: debounce,
				OnUpload: func(resp *models.NewVersionResponse, err error) {
					if err != nil {
						app.reportError(err)
						return
					}
					_ = app.emit(resp, func(r *render.Renderer) error {
						return r.UploadState(workspace.UploadDone, &resp.NewDataset)
					})
				},
			}, app.logger)
			if err != nil {
				return err
			}

			app.renderer(app.errOut).Message("Watching %s for changes (dataset %d)", w.Path(), id)
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before uploading (default from config)")
	return cmd
}

func newMCPCmd(app *App) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve workspace tools over the Model Context Protocol",
		Long: `Serve dataset tools to an MCP client. By default the server speaks
JSON-RPC over stdin and stdout; with --http it serves the streamable HTTP
transport on the given address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mcp.NewServer("dq", app.version, app.gateway, app.logger)
			ctx := cmd.Context()

			if httpAddr == "" {
				return server.ServeStdio(ctx, app.in, app.out)
			}
			return serveHTTP(ctx, httpAddr, server.NewStreamableHTTPServer(), app.logger)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve over HTTP on this address instead of stdio")
	return cmd
}

// serveHTTP runs handler on addr until ctx is canceled, then shuts down gracefully.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving MCP over HTTP", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
