package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/config"
	"github.com/dmitrijs2005/taskkeeper/internal/client/guard"
	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/client/session"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/testutil/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Passwords are read from the piped input, never from a real terminal.
	stdinIsTerminal = func() bool { return false }
	os.Exit(m.Run())
}

// ---- helpers ----

type harness struct {
	srv *fakeapi.Server
	cfg *config.Config
	out *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakeapi.New(t)
	srv.AddUser("a@x.com", "alice", "secret")
	srv.IssueTokens("abc123")

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = srv.URL
	cfg.DatabasePath = filepath.Join(t.TempDir(), "tk.db")

	return &harness{srv: srv, cfg: cfg, out: &bytes.Buffer{}}
}

func (h *harness) app(t *testing.T, input ...string) *App {
	t.Helper()
	in := strings.Join(input, "\n") + "\n"
	a, err := NewApp(context.Background(), h.cfg, logging.Discard(), strings.NewReader(in), h.out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func (h *harness) run(t *testing.T, input ...string) string {
	t.Helper()
	require.NoError(t, h.app(t, input...).Run(context.Background()))
	return h.out.String()
}

// started returns an app whose session has been initialised, for tests
// that drive commands one by one.
func (h *harness) started(t *testing.T, input ...string) *App {
	t.Helper()
	a := h.app(t, input...)
	require.NoError(t, a.session.Init(context.Background()))
	return a
}

var loginLines = []string{"login", "alice", "secret"}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ---- tests ----

func TestRun_LoginAddListLogout(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, concat(loginLines, []string{
		"add", "Write report", "", "", "2024-06-01",
		"list",
		"logout",
		"list",
		"exit",
	})...)

	assert.Contains(t, out, "Welcome to TaskKeeper CLI")
	assert.Contains(t, out, "Logged in as alice")
	assert.Contains(t, out, "tk (alice)> ")
	assert.Contains(t, out, "Created task #1")
	assert.Contains(t, out, "Jun 01, 2024")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Please log in")
	assert.True(t, strings.HasSuffix(out, "Bye!\n"))

	assert.Equal(t, 1, h.srv.Count("GET", "/api/v1/tasks/"), "list after logout must not reach the backend")
	for _, r := range h.srv.Requests() {
		if r.Path == "/api/v1/tasks/" {
			assert.Equal(t, "Bearer abc123", r.Authorization)
		}
	}
}

func TestRun_ProtectedCommandWithoutSession(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, "list", "exit")

	assert.Contains(t, out, "You are not logged in or your session has expired")
	assert.Empty(t, h.srv.Requests())
}

func TestRun_EmptyList(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, concat(loginLines, []string{"list"})...)

	assert.Contains(t, out, "No tasks found. Create a new task to get started!")
}

func TestRun_LoginFailure(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, "login", "alice", "wrong", "whoami")

	assert.Contains(t, out, "Login failed: Incorrect username/email or password")
	assert.Contains(t, out, "Please log in")
	assert.NotContains(t, out, "tk (alice)> ")
}

func TestRun_Signup(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, "signup", "b@x.com", "bob", "pw", "whoami")

	assert.Contains(t, out, "Welcome, bob!")
	assert.Contains(t, out, "bob <b@x.com> (id 2)")
}

func TestRun_SignupDuplicate(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, "signup", "a@x.com", "alice2", "pw")

	assert.Contains(t, out, "Signup failed: A user with this email already exists")
	assert.Equal(t, 0, h.srv.Count("POST", "/api/v1/auth/login"))
}

func TestRun_RestoresStoredSession(t *testing.T) {
	h := newHarness(t)
	h.srv.GrantToken("a@x.com", "stored")

	db, err := client.InitDatabase(context.Background(), h.cfg.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, session.NewSQLiteStorage(db).Save(context.Background(), "stored", &models.User{ID: 1, Username: "alice"}))
	require.NoError(t, db.Close())

	out := h.run(t, "whoami")

	assert.Contains(t, out, "Checking session...")
	assert.Contains(t, out, "Logged in as alice")
	assert.Contains(t, out, "alice <a@x.com> (id 1)")
	assert.Equal(t, 1, h.srv.Count("POST", "/api/v1/auth/test-token"), "mount validates once")
}

func TestRun_StoredSessionRejected(t *testing.T) {
	h := newHarness(t)

	db, err := client.InitDatabase(context.Background(), h.cfg.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, session.NewSQLiteStorage(db).Save(context.Background(), "expired", nil))
	require.NoError(t, db.Close())

	out := h.run(t, "exit")

	assert.Contains(t, out, "Please log in")
	assert.NotContains(t, out, "Logged in as")
}

func TestRun_EditStatusDelete(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, concat(loginLines, []string{
		"add", "Draft", "first line", "", "", "2024-06-01",
		"status 1 in progress",
		"edit 1", "Final", "", "", "-",
		"show 1",
		"delete 1", "n",
		"delete 1 --yes",
		"show 1",
	})...)

	assert.Contains(t, out, "Task #1 is now In Progress")
	assert.Contains(t, out, "Updated task #1")
	assert.Contains(t, out, "Task #1: Final")
	assert.Contains(t, out, "Status:      In Progress")
	assert.Contains(t, out, "Due:         -")
	assert.Contains(t, out, "Description: first line")
	assert.Contains(t, out, "Cancelled.")
	assert.Contains(t, out, "Deleted task #1")
	assert.Contains(t, out, "Task not found.")
}

func TestRun_EditNothingChanged(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, concat(loginLines, []string{
		"add", "Same", "", "", "",
		"edit 1", "", "", "", "",
	})...)

	assert.Contains(t, out, "Nothing to change.")
	assert.Equal(t, 0, h.srv.Count("PUT", "/api/v1/tasks/1"))
}

func TestRun_ListStatusFilter(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedTask(1, "open", models.StatusPending)
	h.srv.SeedTask(1, "closed", models.StatusCompleted)

	out := h.run(t, concat(loginLines, []string{"list --status done"})...)

	assert.Contains(t, out, "closed")
	assert.NotContains(t, out, "open")

	var queries []string
	for _, r := range h.srv.Requests() {
		if r.Path == "/api/v1/tasks/" {
			queries = append(queries, r.Query)
		}
	}
	assert.Equal(t, []string{"status=Completed"}, queries)
}

func TestRun_InputErrors(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, concat(loginLines, []string{
		"frobnicate",
		"show abc",
		"show",
		"status 1 someday",
		"list --status later",
	})...)

	assert.Contains(t, out, `Error: unknown command "frobnicate"`)
	assert.Contains(t, out, `Error: invalid task id "abc"`)
	assert.Contains(t, out, "Error: accepts 1 arg(s), received 0")
	assert.Contains(t, out, "use one of: Pending, In Progress, Completed")
}

func TestRun_Help(t *testing.T) {
	h := newHarness(t)
	out := h.run(t, "help")

	for _, name := range []string{"signup", "login", "logout", "whoami", "list", "show", "add", "edit", "status", "delete"} {
		assert.Contains(t, out, name)
	}
}

func TestRun_ServerUnavailable(t *testing.T) {
	h := newHarness(t)
	dead := httptest.NewServer(nil)
	h.cfg.ServerURL = dead.URL
	dead.Close()

	out := h.run(t, loginLines...)
	assert.Contains(t, out, "Server unavailable, please try again later.")
}

func TestUnauthorizedDuringCommand_Redirects(t *testing.T) {
	h := newHarness(t)
	a := h.started(t, "alice", "secret")
	ctx := context.Background()

	a.execute(ctx, "login")
	a.execute(ctx, "list")
	require.NotNil(t, a.mount)

	h.srv.Revoke("abc123")
	a.execute(ctx, "list")

	assert.Equal(t, session.Invalid, a.session.State())
	a.applyRedirect()
	assert.Nil(t, a.mount)
	assert.Contains(t, h.out.String(), "Please log in")
}

func TestPeriodicRecheck_Redirects(t *testing.T) {
	h := newHarness(t)
	h.cfg.AuthCheckInterval = 10 * time.Millisecond
	a := h.started(t, "alice", "secret")
	ctx := context.Background()

	a.execute(ctx, "login")
	a.execute(ctx, "whoami")
	require.NotNil(t, a.mount)

	h.srv.Revoke("abc123")

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.redirectTo == guard.LoginPath
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-a.mount.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("mount still active after failed re-check")
	}
	assert.False(t, a.session.IsAuthenticated())
}

func TestLoginClearsPendingRedirect(t *testing.T) {
	h := newHarness(t)
	a := h.started(t, "alice", "secret")
	ctx := context.Background()

	a.Redirect(ctx, guard.LoginPath)
	a.execute(ctx, "login")
	assert.Empty(t, a.takeRedirect())
}

func TestReport_Unauthorized(t *testing.T) {
	h := newHarness(t)
	a := h.started(t)
	err := fmt.Errorf("list tasks: %w", client.ErrUnauthorized)

	a.report(err)
	assert.Contains(t, h.out.String(), "Please log in again.")

	h.out.Reset()
	a.Redirect(context.Background(), guard.LoginPath)
	a.report(err)
	assert.Empty(t, h.out.String(), "the redirect notice covers it")
	assert.Equal(t, guard.LoginPath, a.takeRedirect())
}
