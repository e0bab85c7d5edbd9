// Package apitest provides an in-memory stand-in for the dataset-quality
// service, served over httptest.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

type dataset struct {
	models.Dataset
	parentID int64
	table    *table
}

func (d *dataset) rootID() int64 {
	if d.parentID != 0 {
		return d.parentID
	}
	return d.ID
}

type storedProfile struct {
	report    models.ProfileReport
	createdAt time.Time
}

// Server is a fake service holding datasets, rules and profiles in memory.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	datasets   map[int64]*dataset
	rules      map[int64][]models.Rule
	profiles   map[int64]*storedProfile
	overrides  map[string]http.HandlerFunc
	requests   []string
	nextID     int64
	nextRuleID int64
}

// New starts a fake service and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		datasets:   make(map[int64]*dataset),
		rules:      make(map[int64][]models.Rule),
		profiles:   make(map[int64]*storedProfile),
		overrides:  make(map[string]http.HandlerFunc),
		nextID:     1,
		nextRuleID: 1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "healthy"})
	})

	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", s.listDatasets)
		r.Post("/upload", s.upload)
		r.Post("/security-check", s.securityCheck)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getDataset)
			r.Delete("/", s.deleteDataset)
			r.Post("/profile", s.runProfile)
			r.Get("/profile", s.latestProfile)
			r.Get("/issues", s.issues)
			r.Post("/ai-analyze", s.aiAnalyze)
			r.Post("/ai-suggest-rules/{column}", s.suggestRules)
			r.Get("/rules", s.listRules)
			r.Post("/rules", s.createRule)
			r.Delete("/rules/{ruleID}", s.deleteRule)
			r.Post("/validate", s.validate)
			r.Post("/new-version", s.newVersion)
			r.Get("/versions", s.versions)
			r.Get("/compare/{other}", s.compare)
		})
	})

	return r
}

// record logs every request and serves any registered override instead of the route.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests = append(s.requests, key)
		override := s.overrides[key]
		s.mu.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Override serves h for every request matching method and exact path.
func (s *Server) Override(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = h
}

// ClearOverride removes an override.
func (s *Server) ClearOverride(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, method+" "+path)
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestCount returns how many requests matched method and path.
func (s *Server) RequestCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.requests {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// AddDataset stores csvText as a new root dataset.
func (s *Server) AddDataset(name, csvText string) models.Dataset {
	tbl, err := parseTable([]byte(csvText))
	if err != nil {
		panic(fmt.Sprintf("apitest: bad csv for %s: %v", name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(name, 1, 0, tbl).Dataset
}

// AddVersion stores csvText as the next version in parentID's lineage.
func (s *Server) AddVersion(parentID int64, name, csvText string) models.Dataset {
	tbl, err := parseTable([]byte(csvText))
	if err != nil {
		panic(fmt.Sprintf("apitest: bad csv for %s: %v", name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.datasets[parentID]
	if !ok {
		panic(fmt.Sprintf("apitest: unknown dataset %d", parentID))
	}
	root := parent.rootID()
	return s.insertLocked(name, s.maxVersionLocked(root)+1, root, tbl).Dataset
}

// AddRule attaches a rule to a dataset.
func (s *Server) AddRule(datasetID int64, column, ruleType string, params map[string]any) models.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRuleLocked(datasetID, column, ruleType, params)
}

func (s *Server) insertLocked(name string, version int, parentID int64, tbl *table) *dataset {
	d := &dataset{
		Dataset: models.Dataset{
			ID:           s.nextID,
			Name:         name,
			Version:      version,
			UploadDate:   time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
			TotalRows:    len(tbl.rows),
			TotalColumns: len(tbl.header),
		},
		parentID: parentID,
		table:    tbl,
	}
	s.datasets[d.ID] = d
	s.nextID++
	return d
}

func (s *Server) addRuleLocked(datasetID int64, column, ruleType string, params map[string]any) models.Rule {
	if params == nil {
		params = map[string]any{}
	}
	rule := models.Rule{
		ID:         s.nextRuleID,
		DatasetID:  datasetID,
		ColumnName: column,
		RuleType:   ruleType,
		Parameters: params,
	}
	s.nextRuleID++
	s.rules[datasetID] = append(s.rules[datasetID], rule)
	return rule
}

func (s *Server) maxVersionLocked(rootID int64) int {
	max := 0
	for _, d := range s.datasets {
		if d.rootID() == rootID && d.Version > max {
			max = d.Version
		}
	}
	return max
}

func (s *Server) lineageLocked(rootID int64) []models.Dataset {
	var out []models.Dataset
	for _, d := range s.datasets {
		if d.rootID() == rootID {
			out = append(out, d.Dataset)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// lookup resolves the {id} URL parameter, writing a 404 when absent.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, param string) (*dataset, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"path", param},
			"msg":  "value is not a valid integer",
			"type": "type_error.integer",
		}})
		return nil, false
	}

	s.mu.Lock()
	d, ok := s.datasets[id]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, r, http.StatusNotFound, "Dataset not found")
		return nil, false
	}
	return d, true
}

// writeDetail writes the service's {"detail": ...} error envelope.
func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail any) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"detail": detail})
}
