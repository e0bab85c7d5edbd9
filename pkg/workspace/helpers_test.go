package workspace

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/api/apitest"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 10 * time.Millisecond
)

const peopleCSV = "name,age,email\nalice,30,a@example.com\nbob,,b@example.com\ncarol,41,c@example.com\n"

func newTestWorkspace(t *testing.T) (*Workspace, *apitest.Server) {
	t.Helper()

	fake := apitest.New(t)
	logger := zaptest.NewLogger(t)

	gw, err := api.NewGateway(api.Options{BaseURL: fake.URL, Timeout: 5 * time.Second}, logger)
	require.NoError(t, err)

	ws := New(gw, Options{Preflight: preflight.Options{ScanContent: true}}, logger)
	return ws, fake
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// gate blocks an overridden route until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate(t *testing.T) *gate {
	g := &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
	t.Cleanup(g.open)
	return g
}

func (g *gate) open() {
	select {
	case <-g.release:
	default:
		close(g.release)
	}
}

// handler writes body with status once the gate opens.
func (g *gate) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.entered <- struct{}{}
		<-g.release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(waitFor):
		t.Fatal("request never reached the service")
	}
}

func bg() context.Context {
	return context.Background()
}

func newFakeOnly(t *testing.T) *apitest.Server {
	t.Helper()
	return apitest.New(t)
}
