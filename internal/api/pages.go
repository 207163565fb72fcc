package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/guard"
	"github.com/talkboard/talkboard-web/internal/http/response"
	"github.com/talkboard/talkboard-web/internal/session"
)

// registerPageRoutes mounts the page views. Each page answers with the JSON
// view model the browser renders; guarded pages redirect instead.
func (s *Server) registerPageRoutes() {
	r := s.router

	r.Get("/", s.page(func(r *http.Request) (any, error) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		return s.services.Posts.Home(r.Context(), r.URL.Query().Get("sort"), page)
	}))
	r.Get("/post/{id}", s.page(func(r *http.Request) (any, error) {
		view, err := s.services.Posts.Post(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return nil, err
		}
		view.ShareURL = s.shareURL(r, view.Post.ID)
		return view, nil
	}))
	r.Get("/tags/{tag}", s.page(func(r *http.Request) (any, error) {
		return s.services.Posts.ByTag(r.Context(), chi.URLParam(r, "tag"))
	}))
	r.Get("/search", s.page(func(r *http.Request) (any, error) {
		return s.services.Posts.Search(r.Context(), r.URL.Query().Get("tag"))
	}))
	r.Get("/signin", s.handleAuthPage)
	r.Get("/register", s.handleAuthPage)
	r.Get("/forbidden", s.handleForbiddenPage)

	r.Group(func(r chi.Router) {
		r.Use(s.guards.RequireSession)

		r.Get("/membership", s.page(func(r *http.Request) (any, error) {
			return s.services.Membership.View(r.Context())
		}))
		r.Get("/dashboard", s.page(func(r *http.Request) (any, error) {
			return s.services.Dashboard.Dashboard(r.Context())
		}))
		r.Get("/dashboard/profile", s.page(func(r *http.Request) (any, error) {
			return s.services.Dashboard.Profile(r.Context())
		}))
		r.Get("/dashboard/addPost", s.page(func(r *http.Request) (any, error) {
			return s.services.Posts.AddPost(r.Context())
		}))
		r.Get("/dashboard/myPost", s.page(func(r *http.Request) (any, error) {
			return s.services.Posts.MyPosts(r.Context())
		}))
		r.Get("/dashboard/comments/{postId}", s.page(func(r *http.Request) (any, error) {
			return s.services.Comments.PostComments(r.Context(), chi.URLParam(r, "postId"))
		}))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.guards.RequireAdmin)

		r.Get("/dashboard/adminProfile", s.page(func(r *http.Request) (any, error) {
			return s.services.Admin.Profile(r.Context())
		}))
		r.Get("/dashboard/makeAdmin", s.page(func(r *http.Request) (any, error) {
			q := r.URL.Query().Get("email")
			users, err := s.services.Admin.SearchUsers(r.Context(), q)
			if err != nil {
				return nil, err
			}
			if users == nil {
				users = []domain.User{}
			}
			return map[string]any{"query": q, "users": users}, nil
		}))
		r.Get("/dashboard/makeAnnouncement", s.page(func(r *http.Request) (any, error) {
			list, err := s.services.Content.Announcements(r.Context())
			if err != nil {
				return nil, err
			}
			return map[string]any{"announcements": list}, nil
		}))
		r.Get("/dashboard/reportComments", s.page(func(r *http.Request) (any, error) {
			return s.services.Admin.ReportedComments(r.Context())
		}))
	})
}

// page adapts a view loader to a handler that writes the view or the error.
func (s *Server) page(load func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := load(r)
		if err != nil {
			s.pageError(w, r, err)
			return
		}
		response.Success(w, view, s.logger)
	}
}

// pageError turns a rejected remote call into navigation: 401 goes to the
// sign-in page, 403 to the forbidden page. The post limit is a 403 the page
// renders itself, so it keeps its error body.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	switch errors.CodeOf(err) {
	case errors.CodeUnauthorized, errors.CodeTokenExpired:
		response.Redirect(w, r, guard.SignInURL(r))
	case errors.CodeForbidden:
		response.Redirect(w, r, guard.ForbiddenURL(r))
	default:
		response.HandleError(w, err, s.logger)
	}
}

// authPageView is the state of the sign-in and register pages.
type authPageView struct {
	From string `json:"from"`
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	from := guard.ReturnPath(r.URL.Query().Get("from"))
	st := session.FromContext(r.Context())
	if st.Loading {
		response.Loading(w, s.logger)
		return
	}
	if st.Authenticated() {
		response.Redirect(w, r, from)
		return
	}
	response.Success(w, authPageView{From: from}, s.logger)
}

// forbiddenView is the page shown after a guard or the forum API refused access.
type forbiddenView struct {
	Message string `json:"message"`
	From    string `json:"from,omitempty"`
	Home    string `json:"home"`
}

// shareURL links to the post page on the configured public origin, or on the
// origin the request came in on when none is configured.
func (s *Server) shareURL(r *http.Request, postID string) string {
	base := s.opts.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/post/" + url.PathEscape(postID)
}

func (s *Server) handleForbiddenPage(w http.ResponseWriter, r *http.Request) {
	response.Success(w, forbiddenView{
		Message: "You do not have access to that page.",
		From:    r.URL.Query().Get("from"),
		Home:    "/",
	}, s.logger)
}
