package authtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/eduAuth/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Demo account seeded into every Server.
const (
	DemoEmail    = "demo@test.com"
	DemoPassword = "Demo123!"
)

// ErrUserExists is returned by AddUser for a taken email.
var ErrUserExists = errors.New("user already exists")

type account struct {
	user session.User
	hash string
}

type forced struct {
	status  int
	code    string
	message string
}

// Server is the stub backend. Its zero value is not usable; call New or
// Start.
type Server struct {
	// URL is the API base URL (ending in /api) once started.
	URL string

	hasher *Hasher
	tokens *Tokens
	router chi.Router
	ts     *httptest.Server

	mu       sync.Mutex
	byEmail  map[string]*account
	byID     map[string]*account
	forced   *forced
	delay    time.Duration
	requests map[string]int
	headers  []http.Header
}

// New returns a server with the demo account seeded and no listener.
func New() (*Server, error) {
	hasher, err := NewHasher(DefaultHashParams())
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokens(time.Hour)
	if err != nil {
		return nil, err
	}

	s := &Server{
		hasher:   hasher,
		tokens:   tokens,
		byEmail:  map[string]*account{},
		byID:     map[string]*account{},
		requests: map[string]int{},
	}
	grade := 7
	if err := s.AddUser(session.User{
		ID:        "1",
		Email:     DemoEmail,
		FirstName: "Demo",
		LastName:  "User",
		Role:      session.RoleStudent,
		Grade:     &grade,
	}, DemoPassword); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

// Start runs a new server on a loopback listener until tb finishes.
func Start(tb testing.TB) *Server {
	tb.Helper()
	s, err := New()
	if err != nil {
		tb.Fatalf("authtest: %v", err)
	}
	s.ts = httptest.NewServer(s.Handler())
	s.URL = s.ts.URL + "/api"
	tb.Cleanup(s.Close)
	return s
}

// Handler serves the API under /api.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the listener started by Start.
func (s *Server) Close() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// AddUser registers u with password. An empty ID gets a fresh uuid.
func (s *Server) AddUser(u session.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	key := strings.ToLower(strings.TrimSpace(u.Email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return ErrUserExists
	}
	a := &account{user: *u.Clone(), hash: hash}
	s.byEmail[key] = a
	s.byID[u.ID] = a
	return nil
}

// RemoveUser deletes the account with id.
func (s *Server) RemoveUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		delete(s.byEmail, strings.ToLower(a.user.Email))
		delete(s.byID, id)
	}
}

// IssueToken signs a token for an existing user id.
func (s *Server) IssueToken(id string) (string, error) {
	s.mu.Lock()
	a, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("unknown user")
	}
	return s.tokens.Issue(id, a.user.Email)
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() error {
	return s.tokens.Revoke()
}

// ForceStatus makes every request fail with status and an error envelope
// carrying code and message. Empty code and message produce a body without
// them. Status 0 clears the override.
func (s *Server) ForceStatus(status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		s.forced = nil
		return
	}
	s.forced = &forced{status: status, code: code, message: message}
}

// SetDelay holds every response for d, or until the request is canceled.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Requests counts requests received for path (e.g. "/api/auth/login").
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// LastHeaders returns the headers of the most recent request.
func (s *Server) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1].Clone()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.override)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.With(Guard(s.tokens)).Get("/me", s.me)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "", "Route not found")
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, delay := s.forced, s.delay
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if f != nil {
			writeError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Grade     *int   `json:"grade"`
	// Present only if a client leaks it.
	ConfirmPassword *string `json:"confirmPassword"`
}

type authData struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	s.mu.Lock()
	a, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	match, err := s.hasher.Verify(req.Password, a.hash)
	if err != nil || !match {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	s.issue(w, http.StatusOK, a.user, "Login successful")
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.ConfirmPassword != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "confirmPassword must not be sent")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "All fields are required")
		return
	}

	u := session.User{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      session.RoleStudent,
		Grade:     req.Grade,
	}
	if err := s.AddUser(u, req.Password); err != nil {
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusConflict, "EMAIL_ALREADY_EXISTS", "User already exists with this email")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not create account")
		return
	}

	s.issue(w, http.StatusCreated, u, "Account created successfully")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	s.mu.Lock()
	a, ok := s.byID[claims.Subject]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": a.user})
}

func (s *Server) issue(w http.ResponseWriter, status int, u session.User, message string) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not issue token")
		return
	}
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    authData{User: u, Token: token},
		"message": message,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]any{"success": false}
	if message != "" {
		body["message"] = message
	}
	if code != "" {
		body["error"] = map[string]string{"code": code, "message": message}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
