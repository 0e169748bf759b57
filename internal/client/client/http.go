package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// APIPrefix is the base path of every backend endpoint.
const APIPrefix = "/api/v1"

// UnauthorizedHandler is invoked once per 401 response on an authenticated
// call, before the error is returned to the caller.
type UnauthorizedHandler func(ctx context.Context)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. The client is copied;
// the caller's value is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		cp := *hc
		c.http = &cp
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// NewHTTPClient builds a client for the backend at serverURL
// (e.g. "http://127.0.0.1:8000").
func NewHTTPClient(serverURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(serverURL, "/") + APIPrefix,
		http:    &http.Client{},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Transport = &requestIDTransport{base: c.http.Transport}
	c.log = c.log.With("component", "api")
	return c
}

// OnUnauthorized registers the process-wide reaction to a rejected token.
func (c *HTTPClient) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = h
}

func (c *HTTPClient) unauthorized(ctx context.Context) {
	c.mu.RLock()
	h := c.onUnauthorized
	c.mu.RUnlock()
	if h != nil {
		h(context.WithoutCancel(ctx))
	}
}

// requestIDTransport stamps X-Request-ID on requests that lack one, which
// covers the token grant issued by the oauth2 package.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(common.RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(common.RequestIDHeader, uuid.NewString())
	}
	return base.RoundTrip(req)
}

// do performs an API request. body, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded 2xx response.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := AccessTokenFrom(ctx); token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	log := c.log.With("method", method, "path", path, "request_id", requestID)
	log.Debug(ctx, "HTTP request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn(ctx, "HTTP request failed", "error", err)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}
	log.Debug(ctx, "HTTP response", "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized && AccessTokenFrom(ctx) != "" {
		log.Warn(ctx, "token rejected by backend")
		c.unauthorized(ctx)
		return newAPIError(resp.StatusCode, respBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// Login exchanges credentials for an access token using the OAuth2 password
// grant (form-encoded username/password). username may be an email.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/auth/login",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return "", c.mapTokenError(ctx, err)
	}
	c.log.Debug(ctx, "token issued", "token", logging.MaskToken(tok.AccessToken))
	return tok.AccessToken, nil
}

func (c *HTTPClient) mapTokenError(ctx context.Context, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		apiErr := newAPIError(status, re.Body)
		if status == http.StatusUnauthorized {
			apiErr.kind = ErrInvalidCredentials
		}
		c.log.Info(ctx, "token request rejected", "status", status)
		return apiErr
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return &TransportError{Op: "POST /auth/login", Err: err}
	}
	return fmt.Errorf("login: %w", err)
}

func (c *HTTPClient) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TestToken asks the backend to introspect the bearer token in ctx and
// returns the profile it belongs to.
func (c *HTTPClient) TestToken(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/auth/test-token", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTasks returns the caller's tasks. An empty status lists all of them.
func (c *HTTPClient) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {string(status)}}
	}

	tasks := make([]models.Task, 0)
	if err := c.do(ctx, http.MethodGet, "/tasks/", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *HTTPClient) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, payload models.CreateTaskPayload) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id int64, payload models.UpdateTaskPayload) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), nil, payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task and returns its last representation.
func (c *HTTPClient) DeleteTask(ctx context.Context, id int64) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}
