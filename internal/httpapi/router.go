// Package httpapi exposes the forum over HTTP. Read handlers go through the
// cached views; write handlers go through the forum service, which
// invalidates before the response is written.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/internal/auth"
	"github.com/goliatone/go-forum-cache/service"
	"github.com/goliatone/go-forum-cache/viewcache"
)

// Forum is the write side the handlers drive.
type Forum interface {
	RegisterUser(ctx context.Context, in service.RegisterInput) (forum.UserView, error)
	Authenticate(ctx context.Context, in service.LoginInput) (*forum.User, error)
	CreateSubreddit(ctx context.Context, actor forum.Actor, in service.SubredditInput) (forum.SubredditView, error)
	EditSubreddit(ctx context.Context, actor forum.Actor, id int64, patch service.SubredditPatch) (forum.SubredditView, error)
	JoinSubreddit(ctx context.Context, actor forum.Actor, id int64) (forum.SubredditView, error)
	DeleteSubreddit(ctx context.Context, actor forum.Actor, id int64) error
	CreatePost(ctx context.Context, actor forum.Actor, in service.PostInput) (forum.PostDetail, error)
	EditPost(ctx context.Context, actor forum.Actor, id int64, patch service.PostPatch) (forum.PostDetail, error)
	DeletePost(ctx context.Context, actor forum.Actor, id int64) error
	VotePost(ctx context.Context, actor forum.Actor, id int64, delta int) error
	AddComment(ctx context.Context, actor forum.Actor, postID int64, in service.CommentInput) (forum.CommentView, error)
	EditComment(ctx context.Context, actor forum.Actor, postID, commentID int64, in service.CommentInput) (forum.CommentView, error)
	DeleteComment(ctx context.Context, actor forum.Actor, postID, commentID int64) error
	VoteComment(ctx context.Context, actor forum.Actor, postID, commentID int64, delta int) error
}

var _ Forum = (*service.Forum)(nil)

// Deps are the collaborators of the HTTP layer. Logger and Gatherer may be
// nil; without a Gatherer /metrics is not mounted.
type Deps struct {
	Views          viewcache.Source
	Forum          Forum
	Tokens         *auth.TokenManager
	Blocklist      auth.Blocklist
	Logger         *zap.Logger
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

// Server holds the handlers and their dependencies.
type Server struct {
	views          viewcache.Source
	forum          Forum
	tokens         *auth.TokenManager
	blocklist      auth.Blocklist
	logger         *zap.Logger
	gatherer       prometheus.Gatherer
	allowedOrigins []string
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	blocklist := deps.Blocklist
	if blocklist == nil {
		blocklist = auth.NewMemoryBlocklist()
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		views:          deps.Views,
		forum:          deps.Forum,
		tokens:         deps.Tokens,
		blocklist:      blocklist,
		logger:         logger,
		gatherer:       deps.Gatherer,
		allowedOrigins: origins,
	}
}

// Routes builds the chi router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.welcome)
	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.With(s.authenticate).Delete("/logout", s.logout)
	})

	r.With(s.authenticate).Get("/profile", s.profile)

	r.Route("/subreddits", func(r chi.Router) {
		r.Get("/", s.listSubreddits)
		r.Get("/{id}", s.getSubreddit)
		r.Get("/{id}/posts", s.listSubredditPosts)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/", s.createSubreddit)
			r.Put("/{id}", s.editSubreddit)
			r.Delete("/{id}", s.deleteSubreddit)
		})
	})
	r.With(s.authenticate).Get("/join/subreddits/{id}", s.joinSubreddit)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.listPosts)
		r.Get("/{id}", s.getPost)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/", s.createPost)
			r.Put("/{id}", s.editPost)
			r.Delete("/{id}", s.deletePost)
			r.Get("/{id}/upvote", s.votePost(1))
			r.Get("/{id}/downvote", s.votePost(-1))

			r.Post("/{id}/comments", s.addComment)
			r.Put("/{id}/comments/{cid}", s.editComment)
			r.Delete("/{id}/comments/{cid}", s.deleteComment)
			r.Get("/{id}/comments/{cid}/upvote", s.voteComment(1))
			r.Get("/{id}/comments/{cid}/downvote", s.voteComment(-1))
		})
	})

	return r
}

func (s *Server) welcome(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Welcome to the forum API")
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
