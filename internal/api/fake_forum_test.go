package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// fakeForum serves the subset of the forum API the handler tests touch.
type fakeForum struct {
	mu     sync.Mutex
	users  map[string]domain.User
	posts  []domain.Post
	counts map[string]int
	tags   []domain.Tag
	// reject answers these paths with 401.
	reject map[string]bool
	hits   map[string]int
}

func newFakeForum(t *testing.T) (*fakeForum, *httptest.Server) {
	t.Helper()
	f := &fakeForum{
		users:  make(map[string]domain.User),
		counts: make(map[string]int),
		tags:   []domain.Tag{{ID: "t1", Name: "Go"}},
		reject: make(map[string]bool),
		hits:   make(map[string]int),
		posts: []domain.Post{
			{ID: "p1", Title: "Welcome", Content: "Hello", AuthorEmail: "ana@example.com", AuthorName: "Ana", Tags: []string{"Go"}},
		},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.hits[req.Method+" "+req.URL.Path]++
			rejected := f.reject[req.URL.Path]
			f.mu.Unlock()
			if rejected {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		email := req.URL.Query().Get("email")
		out := []domain.Post{}
		for _, p := range f.posts {
			if email == "" || p.AuthorEmail == email {
				out = append(out, p)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.Get("/posts/count", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int{"count": f.counts[req.URL.Query().Get("email")]})
	})
	r.Post("/posts", func(w http.ResponseWriter, req *http.Request) {
		var p domain.Post
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		p.ID = "p-new"
		f.posts = append(f.posts, p)
		f.counts[p.AuthorEmail]++
		writeJSON(w, http.StatusOK, map[string]string{"insertedId": p.ID})
	})
	r.Get("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.posts {
			if p.ID == chi.URLParam(req, "id") {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "post not found"})
	})
	r.Get("/comments/{postId}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Comment{})
	})
	r.Get("/tags", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.tags)
	})
	r.Get("/announcements", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Announcement{})
	})
	r.Get("/users/{email}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.users[chi.URLParam(req, "email")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
	r.Post("/users", func(w http.ResponseWriter, req *http.Request) {
		var u domain.User
		if err := json.NewDecoder(req.Body).Decode(&u); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.users[u.Email] = u
		writeJSON(w, http.StatusOK, map[string]string{"insertedId": "u-" + u.Email})
	})
	r.Get("/users-role/{email}/role", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		role := domain.RoleUser
		if u, ok := f.users[chi.URLParam(req, "email")]; ok && u.Role != "" {
			role = u.Role
		}
		writeJSON(w, http.StatusOK, map[string]domain.Role{"role": role})
	})
	r.Get("/users-search/search", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		q := req.URL.Query().Get("email")
		out := []domain.User{}
		for _, u := range f.users {
			if strings.Contains(u.Email, q) {
				out = append(out, u)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeForum) addUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
}

func (f *fakeForum) setCount(email string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[email] = n
}

func (f *fakeForum) rejectPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject[path] = true
}

func (f *fakeForum) hitCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
