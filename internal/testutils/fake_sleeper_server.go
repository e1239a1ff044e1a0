// Package testutils provides a fake Sleeper API for tests.
package testutils

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

//go:embed sleeperdata
var sleeperdata embed.FS

// The league served by the fake server
const LeagueID = "1180000000000000000"

type FakeSleeperServer struct {
	s *httptest.Server

	mu     sync.Mutex
	week   int
	status int
	hits   map[string]int
}

func NewFakeSleeperServer() *FakeSleeperServer {
	f := &FakeSleeperServer{hits: map[string]int{}}

	r := chi.NewRouter()
	r.Use(f.middleware)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state/nfl", f.stateHandler)
		r.Get("/players/nfl", f.fileHandler("players.json"))

		r.Route("/league/{leagueID}", func(r chi.Router) {
			r.Use(knownLeague)
			r.Get("/", f.fileHandler("league.json"))
			r.Get("/rosters", f.fileHandler("rosters.json"))
			r.Get("/users", f.fileHandler("users.json"))
			r.Get("/matchups/{week}", f.weekHandler("matchups"))
			r.Get("/transactions/{week}", f.weekHandler("transactions"))
		})
	})

	f.s = httptest.NewServer(r)
	return f
}

func (f *FakeSleeperServer) Close() {
	f.s.Close()
}

// Base url including the API version, as the client expects it
func (f *FakeSleeperServer) URL() string {
	return f.s.URL + "/v1"
}

// Override the week reported by /state/nfl, 0 restores the fixture
func (f *FakeSleeperServer) SetWeek(week int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.week = week
}

// Make every request answer with the given status, 0 restores normal behaviour
func (f *FakeSleeperServer) SetStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Number of requests received for a path, e.g. "/v1/players/nfl"
func (f *FakeSleeperServer) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *FakeSleeperServer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		status := f.status
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func knownLeague(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "leagueID") != LeagueID {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeSleeperServer) stateHandler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	week := f.week
	f.mu.Unlock()

	if week == 0 {
		serveFile(w, "state.json")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"week": %d, "season": "2025", "season_type": "regular", "display_week": %d}`, week, week)
}

func (f *FakeSleeperServer) fileHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, name)
	}
}

// Weeks without a fixture answer with an empty list, like the real API does
func (f *FakeSleeperServer) weekHandler(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := fmt.Sprintf("%s_%s.json", prefix, chi.URLParam(r, "week"))
		if _, err := fs.Stat(sleeperdata, "sleeperdata/"+name); err != nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("[]"))
			return
		}
		serveFile(w, name)
	}
}

func serveFile(w http.ResponseWriter, name string) {
	b, err := sleeperdata.ReadFile(fmt.Sprintf("sleeperdata/%s", name))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
