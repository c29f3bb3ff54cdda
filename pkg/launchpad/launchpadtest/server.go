// Package launchpadtest provides an in-memory Launchpad API server for
// tests. It answers the subset of the web service the exporter uses.
package launchpadtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/launchpad"
)

const apiVersion = "devel"

// Build is a failed build record served by the fake.
type Build struct {
	Source  string
	Version string
	Arch    string
	Current bool
}

type series struct {
	name        string
	version     string
	status      string
	packagesets map[string][]string
	uploads     map[launchpad.Pocket]map[launchpad.QueueStatus]int
	builds      map[launchpad.Pocket][]Build
}

// Server is a fake Launchpad instance for one distribution.
type Server struct {
	*httptest.Server

	Distribution string

	mu       sync.Mutex
	series   map[string]*series
	fail     bool
	requests atomic.Int64
}

// NewServer starts a fake Launchpad for distribution. Close it when done.
func NewServer(distribution string) *Server {
	s := &Server{
		Distribution: distribution,
		series:       map[string]*series{},
	}

	r := mux.NewRouter()
	r.Use(s.middleware)
	api := r.PathPrefix("/" + apiVersion).Subrouter()
	api.HandleFunc("/package-sets", s.handlePackagesetsBySeries).
		Queries("ws.op", "getBySeries").Methods(http.MethodGet)
	api.HandleFunc("/package-sets/{distro}/{series}/{name}", s.handleSourcesIncluded).
		Queries("ws.op", "getSourcesIncluded").Methods(http.MethodGet)
	api.HandleFunc("/{distro}", s.handleGetSeries).
		Queries("ws.op", "getSeries").Methods(http.MethodGet)
	api.HandleFunc("/{distro}/series", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/{distro}/{series}", s.handlePackageUploads).
		Queries("ws.op", "getPackageUploads").Methods(http.MethodGet)
	api.HandleFunc("/{distro}/{series}", s.handleBuildRecords).
		Queries("ws.op", "getBuildRecords").Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// AddSeries registers a series with a Launchpad status such as "Supported".
func (s *Server) AddSeries(name, version, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[name] = &series{
		name:        name,
		version:     version,
		status:      status,
		packagesets: map[string][]string{},
		uploads:     map[launchpad.Pocket]map[launchpad.QueueStatus]int{},
		builds:      map[launchpad.Pocket][]Build{},
	}
}

// SetPackageset sets the sources of a packageset of a registered series.
func (s *Server) SetPackageset(seriesName, name string, sources ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustSeries(seriesName).packagesets[name] = sources
}

// SetUploads sets the size of an upload queue.
func (s *Server) SetUploads(seriesName string, pocket launchpad.Pocket, status launchpad.QueueStatus, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.mustSeries(seriesName)
	if sr.uploads[pocket] == nil {
		sr.uploads[pocket] = map[launchpad.QueueStatus]int{}
	}
	sr.uploads[pocket][status] = n
}

// SetFailedBuilds replaces the failed builds of a pocket, newest first.
func (s *Server) SetFailedBuilds(seriesName string, pocket launchpad.Pocket, builds ...Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustSeries(seriesName).builds[pocket] = builds
}

// SetFailing makes every request answer 503 until reset.
func (s *Server) SetFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Requests returns the number of requests served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) mustSeries(name string) *series {
	sr, ok := s.series[name]
	if !ok {
		panic("launchpadtest: unknown series " + name)
	}
	return sr
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		fail := s.fail
		s.mu.Unlock()
		if fail {
			http.Error(w, "launchpad is down", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) link(parts ...string) string {
	l := s.URL + "/" + apiVersion
	for _, p := range parts {
		l += "/" + p
	}
	return l
}

func (s *Server) seriesJSON(sr *series) map[string]interface{} {
	return map[string]interface{}{
		"name":      sr.name,
		"version":   sr.version,
		"status":    sr.status,
		"active":    sr.status != "Obsolete",
		"self_link": s.link(s.Distribution, sr.name),
	}
}

// lookup finds a series by name.
func (s *Server) lookup(name string) (*series, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[name]
	return sr, ok
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["distro"] != s.Distribution {
		http.NotFound(w, r)
		return
	}
	want := r.URL.Query().Get("name_or_version")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sr := range s.series {
		if sr.name == want || sr.version == want {
			writeJSON(w, s.seriesJSON(sr))
			return
		}
	}
	http.Error(w, "No such distribution series: '"+want+"'.", http.StatusBadRequest)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["distro"] != s.Distribution {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	entries := make([]interface{}, 0, len(names))
	for _, name := range names {
		entries = append(entries, s.seriesJSON(s.series[name]))
	}
	s.mu.Unlock()

	writeCollection(w, entries, len(entries))
}

func (s *Server) handlePackagesetsBySeries(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("distroseries")
	var sr *series
	s.mu.Lock()
	for _, candidate := range s.series {
		if s.link(s.Distribution, candidate.name) == link {
			sr = candidate
		}
	}
	if sr == nil {
		s.mu.Unlock()
		http.Error(w, "invalid distroseries", http.StatusBadRequest)
		return
	}
	names := make([]string, 0, len(sr.packagesets))
	for name := range sr.packagesets {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]interface{}, 0, len(names))
	for _, name := range names {
		entries = append(entries, map[string]interface{}{
			"name":              name,
			"description":       name + " packages",
			"distroseries_link": s.link(s.Distribution, sr.name),
			"self_link":         s.link("package-sets", s.Distribution, sr.name, name),
		})
	}
	s.mu.Unlock()

	writeCollection(w, entries, len(entries))
}

func (s *Server) handleSourcesIncluded(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sr, ok := s.lookup(vars["series"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	sources, ok := sr.packagesets[vars["name"]]
	sources = append([]string{}, sources...)
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, sources)
}

func (s *Server) handlePackageUploads(w http.ResponseWriter, r *http.Request) {
	sr, ok := s.lookup(mux.Vars(r)["series"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	pocket, status, ok := parseQueue(r)
	if !ok {
		http.Error(w, "invalid pocket or status", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	n := sr.uploads[pocket][status]
	s.mu.Unlock()

	writeCollection(w, []interface{}{}, n)
}

func (s *Server) handleBuildRecords(w http.ResponseWriter, r *http.Request) {
	sr, ok := s.lookup(mux.Vars(r)["series"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	pocket, err := launchpad.PocketString(r.URL.Query().Get("pocket"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	builds := sr.builds[pocket]
	entries := make([]interface{}, 0, len(builds))
	for _, b := range builds {
		entry := map[string]interface{}{
			"source_package_name":    b.Source,
			"source_package_version": b.Version,
			"arch_tag":               b.Arch,
			"pocket":                 pocket.String(),
			"buildstate":             launchpad.BuildStateFailed,
		}
		if b.Current {
			entry["current_source_publication_link"] = s.link(s.Distribution, "+archive", "primary", "+sourcepub", b.Source)
		}
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	writeCollection(w, entries, len(entries))
}

func parseQueue(r *http.Request) (launchpad.Pocket, launchpad.QueueStatus, bool) {
	pocket, err := launchpad.PocketString(r.URL.Query().Get("pocket"))
	if err != nil {
		return 0, 0, false
	}
	status, err := launchpad.QueueStatusString(r.URL.Query().Get("status"))
	if err != nil {
		return 0, 0, false
	}
	return pocket, status, true
}

func writeCollection(w http.ResponseWriter, entries []interface{}, total int) {
	writeJSON(w, map[string]interface{}{
		"start":      0,
		"total_size": total,
		"entries":    entries,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
