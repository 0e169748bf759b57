// Package fakeapi is an in-memory task backend for tests. It speaks the same
// wire protocol as the real service: OAuth2 password login, bearer token
// introspection and per-user task CRUD under /api/v1.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/timex"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	RequestID     string
}

type account struct {
	user     models.User
	password string
}

type failure struct {
	status int
	detail string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	accounts   []*account
	tokens     map[string]int64
	nextTokens []string
	tasks      map[int64]*models.Task
	nextTaskID int64
	requests   []Request
	failures   []failure

	holdEntered chan struct{}
	holdRelease chan struct{}
}

// New starts a fake backend; it is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		tokens: make(map[string]int64),
		tasks:  make(map[int64]*models.Task),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/signup", s.signup)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/auth/test-token", s.testToken)
			r.Get("/tasks/", s.listTasks)
			r.Post("/tasks/", s.createTask)
			r.Get("/tasks/{id}", s.getTask)
			r.Put("/tasks/{id}", s.updateTask)
			r.Delete("/tasks/{id}", s.deleteTask)
		})
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, username, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, username, password)
}

func (s *Server) addUserLocked(email, username, password string) models.User {
	u := models.User{ID: int64(len(s.accounts) + 1), Email: email, Username: username, IsActive: true}
	s.accounts = append(s.accounts, &account{user: u, password: password})
	return u
}

// IssueTokens makes the next logins return the given tokens in order.
// Without queued tokens a random one is issued.
func (s *Server) IssueTokens(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTokens = append(s.nextTokens, tokens...)
}

// GrantToken makes token valid for the user with the given email.
func (s *Server) GrantToken(email, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == email {
			s.tokens[token] = a.user.ID
		}
	}
}

// Revoke invalidates a previously issued token.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailNext makes the next request fail with status and a detail message.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, detail: detail})
}

// HoldTestToken blocks the next token introspection until release is
// called. entered is closed once the request has arrived.
func (s *Server) HoldTestToken() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdEntered = make(chan struct{})
	s.holdRelease = make(chan struct{})
	ch := s.holdRelease
	var once sync.Once
	return s.holdEntered, func() { once.Do(func() { close(ch) }) }
}

// SeedTask stores a task for the user with the given id.
func (s *Server) SeedTask(userID int64, title string, status models.TaskStatus) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaskID++
	task := &models.Task{
		ID:        s.nextTaskID,
		Title:     title,
		Status:    status,
		UserID:    userID,
		CreatedAt: timex.Time{Time: time.Now().UTC().Truncate(time.Second)},
	}
	s.tasks[task.ID] = task
	return *task
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit method+path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		userID, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeDetail(w, http.StatusUnprocessableEntity, "unsupported grant type")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if (a.user.Email == username || a.user.Username == username) && a.password == password {
			token := uuid.NewString()
			if len(s.nextTokens) > 0 {
				token = s.nextTokens[0]
				s.nextTokens = s.nextTokens[1:]
			}
			s.tokens[token] = a.user.ID
			writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
			return
		}
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "Incorrect username/email or password")
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Email == req.Email {
			writeDetail(w, http.StatusBadRequest, "A user with this email already exists")
			return
		}
		if a.user.Username == req.Username {
			writeDetail(w, http.StatusBadRequest, "A user with this username already exists")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.addUserLocked(req.Email, req.Username, req.Password))
}

func (s *Server) testToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entered, release := s.holdEntered, s.holdRelease
	s.holdEntered, s.holdRelease = nil, nil
	s.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}

	userID := userFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.ID == userID {
			writeJSON(w, http.StatusOK, a.user)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	status := models.TaskStatus(r.URL.Query().Get("status"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == userID && (status == "" || t.Status == status) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var p models.CreateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	if p.Status == "" {
		p.Status = models.StatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaskID++
	task := &models.Task{
		ID:          s.nextTaskID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		DueDate:     p.DueDate,
		UserID:      userFrom(r.Context()),
		CreatedAt:   timex.Time{Time: time.Now().UTC().Truncate(time.Second)},
	}
	s.tasks[task.ID] = task
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.ownedTaskLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.ownedTaskLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}

	updated := *task
	for field, raw := range patch {
		var err error
		switch field {
		case "title":
			err = json.Unmarshal(raw, &updated.Title)
		case "description":
			err = json.Unmarshal(raw, &updated.Description)
		case "status":
			err = json.Unmarshal(raw, &updated.Status)
		case "due_date":
			updated.DueDate = nil
			err = json.Unmarshal(raw, &updated.DueDate)
		}
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid "+field)
			return
		}
	}
	now := timex.Time{Time: time.Now().UTC().Truncate(time.Second)}
	updated.UpdatedAt = &now
	*task = updated
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.ownedTaskLocked(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	delete(s.tasks, task.ID)
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) ownedTaskLocked(r *http.Request) (*models.Task, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, false
	}
	task, ok := s.tasks[id]
	if !ok || task.UserID != userFrom(r.Context()) {
		return nil, false
	}
	return task, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
