// Package api exposes the recommendation service over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gamegraph/gamegraph/internal/auth"
	"github.com/gamegraph/gamegraph/internal/catalog"
	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/maintainer"
	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/recommend"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Deps are the collaborators a Server routes to.
type Deps struct {
	Catalog    catalog.Catalog
	Graph      graph.Graph
	Maintainer *maintainer.Maintainer
	Mirror     *maintainer.Mirror
	Engine     *recommend.Engine
	Tokens     *auth.TokenManager
}

// Options tunes a Server.
type Options struct {
	// LoginRate and LoginBurst throttle register and login attempts
	// (events per second). A zero LoginRate disables throttling.
	LoginRate  float64
	LoginBurst int
}

// Server is an HTTP API server that exposes the graph operations.
type Server struct {
	deps         Deps
	validate     *validator.Validate
	loginLimiter *rate.Limiter
	logger       *slog.Logger
}

// NewServer creates a new Server with the given dependencies.
func NewServer(deps Deps, opts Options, logger *slog.Logger) *Server {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.LoginRate > 0 {
		burst := opts.LoginBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.LoginRate), burst)
	}
	return &Server{
		deps:         deps,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		loginLimiter: limiter,
		logger:       logger.With("component", "api"),
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("POST /api/auth/register", s.throttle(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.throttle(s.handleLogin))
	mux.HandleFunc("GET /api/games", s.handleListGames)

	// Bearer token required.
	mux.HandleFunc("GET /api/users/me", s.auth(s.handleMe))
	mux.HandleFunc("POST /api/friends/add/{targetUsername}", s.auth(s.handleAddFriend))
	mux.HandleFunc("POST /api/activity/plays/{gameId}", s.auth(s.handleRecordPlay))
	mux.HandleFunc("GET /api/recommendations", s.auth(s.handleDashboard))
	mux.HandleFunc("GET /api/recommendations/friends-activity", s.auth(s.handleFriendsActivity))
	mux.HandleFunc("GET /api/recommendations/by-genre", s.auth(s.handleByGenre))
	mux.HandleFunc("GET /api/recommendations/friend-suggestions", s.auth(s.handleFriendSuggestions))
	mux.HandleFunc("GET /api/stats", s.auth(s.handleStats))

	return s.requestID(mux)
}

// --- middleware ---

type ctxKey int

const (
	identityKey ctxKey = iota
	requestIDKey
)

// requestID echoes the client's X-Request-ID or assigns a new one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// auth validates the Bearer token and stores the caller identity in the
// request context.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.deps.Tokens.Validate(token)
		if err != nil {
			s.logger.Debug("rejected token", "request_id", requestIDFrom(r), "error", err)
			s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, claims.Identity())))
	}
}

// throttle rejects requests beyond the login rate.
func (s *Server) throttle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.loginLimiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.writeError(w, http.StatusTooManyRequests, "too many attempts, retry later")
			return
		}
		next(w, r)
	}
}

func identityFrom(r *http.Request) models.UserRef {
	id, _ := r.Context().Value(identityKey).(models.UserRef)
	return id
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// --- handlers ---

type healthResponse struct {
	Status  string `json:"status"`
	Graph   string `json:"graph"`
	Catalog string `json:"catalog"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Graph: "ok", Catalog: "ok"}
	status := http.StatusOK
	if err := s.deps.Graph.Ping(r.Context()); err != nil {
		s.logger.Warn("health: graph unreachable", "error", err)
		resp.Graph, resp.Status, status = "unavailable", "degraded", http.StatusServiceUnavailable
	}
	if err := s.deps.Catalog.Ping(r.Context()); err != nil {
		s.logger.Warn("health: catalog unreachable", "error", err)
		resp.Catalog, resp.Status, status = "unavailable", "degraded", http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// registerRequest is the body accepted by POST /api/auth/register.
type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,excludesall=/"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// loginRequest is the body accepted by POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse is returned by register and login.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	user, err := s.deps.Catalog.CreateUser(r.Context(), models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		s.writeStoreError(w, r, err, "username or email already in use")
		return
	}

	// Never fails registration; deferred mirrors are reconciled later.
	s.deps.Mirror.UserRegistered(r.Context(), user.Ref())

	token, err := s.deps.Tokens.Issue(user.Ref())
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "request_id", requestIDFrom(r))
	s.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.deps.Catalog.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.writeStoreError(w, r, err, "failed to log in")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.deps.Tokens.Issue(user.Ref())
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	s.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Catalog.GetUserByID(r.Context(), identityFrom(r).ID)
	if err != nil {
		s.writeStoreError(w, r, err, "user not found")
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Catalog.ListItems(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "failed to list games")
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

// messageResponse is returned by the mutation endpoints.
type messageResponse struct {
	Message string `json:"message"`
	GameID  int64  `json:"gameId,omitempty"`
	Title   string `json:"title,omitempty"`
}

func (s *Server) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	target := r.PathValue("targetUsername")
	if target == "" {
		s.writeError(w, http.StatusBadRequest, "target username is required")
		return
	}
	me := identityFrom(r)

	if err := s.deps.Maintainer.AddFriend(r.Context(), me.ID, me.Username, target); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOperation):
			s.writeError(w, http.StatusBadRequest, "you cannot add yourself as a friend")
		case errors.Is(err, models.ErrNotFound):
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("user %s not found", target))
		default:
			s.writeStoreError(w, r, err, "failed to add friend")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("you are now friends with %s", target)})
}

// playRequest is the body accepted by POST /api/activity/plays/{gameId}.
type playRequest struct {
	Status models.PlayStatus `json:"status" validate:"max=64"`
	Rating *int              `json:"rating" validate:"omitempty,min=0,max=5"`
}

func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseInt(r.PathValue("gameId"), 10, 64)
	if err != nil || gameID <= 0 {
		s.writeError(w, http.StatusBadRequest, "game id must be a positive integer")
		return
	}
	var req playRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = models.StatusPlaying
	}

	title, err := s.deps.Maintainer.RecordActivity(r.Context(), identityFrom(r).ID, gameID, req.Status, req.Rating)
	if err != nil {
		s.writeStoreError(w, r, err, fmt.Sprintf("game %d not found", gameID))
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("activity recorded for %s", title),
		GameID:  gameID,
		Title:   title,
	})
}

func (s *Server) handleFriendsActivity(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Engine.RecommendByFriendsActivity(r.Context(), identityFrom(r).ID)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to compute recommendations")
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleByGenre(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Engine.RecommendByGenre(r.Context(), identityFrom(r).ID)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to compute recommendations")
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleFriendSuggestions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Engine.SuggestFriends(r.Context(), identityFrom(r).ID)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to compute suggestions")
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Engine.Dashboard(r.Context(), identityFrom(r).ID)
	if err != nil {
		s.writeStoreError(w, r, err, "failed to compute recommendations")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Graph.Stats(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// decode reads a size-limited JSON body into v and validates it. On failure
// it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage names the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "invalid request"
}

// writeStoreError maps the error taxonomy onto HTTP status codes. notFound
// is the message used for 404 and 409 responses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, models.ErrInvalidOperation):
		s.writeError(w, http.StatusBadRequest, "invalid operation")
	case errors.Is(err, models.ErrUnknownUser):
		s.writeError(w, http.StatusUnauthorized, "unknown user")
	case errors.Is(err, models.ErrNotFound):
		s.writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, models.ErrConflict):
		s.writeError(w, http.StatusConflict, notFound)
	case errors.Is(err, models.ErrStoreUnavailable):
		s.logger.Warn("store unavailable", "path", r.URL.Path, "request_id", requestIDFrom(r), "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", requestIDFrom(r), "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
