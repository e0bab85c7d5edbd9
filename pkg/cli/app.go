// Package cli implements the dq command line: one-shot commands, the
// interactive shell, the file watcher and the MCP server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/config"
	"github.com/Dimash999666/data-quality-platform/pkg/logging"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
	"github.com/Dimash999666/data-quality-platform/pkg/render"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	output     string
	logLevel   string
	noColor    bool
}

// App carries the state shared by every command of one invocation.
type App struct {
	version string
	flags   globalFlags

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg       *config.Config
	logger    *zap.Logger
	gateway   *api.Gateway
	workspace *workspace.Workspace
}

// NewApp creates an App reading from in and writing results to out and
// diagnostics to errOut.
func NewApp(version string, in io.Reader, out, errOut io.Writer) *App {
	return &App{
		version: version,
		in:      in,
		out:     out,
		errOut:  errOut,
	}
}

// setup loads configuration, applies flag overrides and builds the logger,
// gateway and workspace.
func (a *App) setup() error {
	path := a.flags.configPath
	if path == "" {
		path = os.Getenv("DQ_CONFIG")
	}

	cfg, err := config.Load(path, a.version)
	if err != nil {
		return err
	}

	// An explicit --api-url is used as given.
	if a.flags.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(a.flags.apiURL, "/")
	}
	if a.flags.output != "" {
		cfg.Output.Format = a.flags.output
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.noColor {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := logging.New(cfg.Log.Env, cfg.Log.Level)
		if err != nil {
			return err
		}
		a.logger = logger
	}

	gw, err := api.NewGateway(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent + "/" + a.version,
	}, a.logger)
	if err != nil {
		return err
	}
	a.gateway = gw

	a.workspace = workspace.New(gw, workspace.Options{
		Preflight: a.preflightOptions(),
	}, a.logger)

	a.logger.Debug("Configuration loaded",
		zap.String("api_url", logging.SanitizeURL(cfg.API.BaseURL)),
		zap.String("output", cfg.Output.Format),
		zap.String("version", a.version))
	return nil
}

func (a *App) preflightOptions() preflight.Options {
	return preflight.Options{
		MaxSizeBytes: a.cfg.Upload.MaxSizeBytes(),
		ScanContent:  a.cfg.Upload.ScanContent,
	}
}

// renderer returns a text renderer over w.
func (a *App) renderer(w io.Writer) *render.Renderer {
	color := !a.flags.noColor
	if a.cfg != nil {
		color = a.cfg.Output.Color
	}
	return render.New(w, render.Options{Color: color})
}

func (a *App) format() string {
	if a.cfg == nil {
		return config.FormatText
	}
	return a.cfg.Output.Format
}

// emit writes v in the configured output format. text renders it with view.
func (a *App) emit(v any, view func(r *render.Renderer) error) error {
	switch a.format() {
	case config.FormatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return view(a.renderer(a.out))
	}
}

// toGeneric converts v through its JSON form so YAML output uses the
// same field names as JSON output.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return generic, nil
}

// message prints a status line in text mode and {"message": ...} otherwise.
func (a *App) message(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	return a.emit(map[string]string{"message": text}, func(r *render.Renderer) error {
		return r.Message("%s", text)
	})
}

// reportError prints err to the diagnostics writer.
func (a *App) reportError(err error) {
	_ = a.renderer(a.errOut).Error(err)
}

// parseID parses a positive dataset or rule id.
func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.NewLocalError(fmt.Sprintf("invalid %s id %q", kind, s), nil)
	}
	return id, nil
}
