package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/config"
	"github.com/dmitrijs2005/taskkeeper/internal/client/guard"
	"github.com/dmitrijs2005/taskkeeper/internal/client/services"
	"github.com/dmitrijs2005/taskkeeper/internal/client/session"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	session *session.Store
	tasks   services.TaskService
	guard   *guard.Guard
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	// mount is only touched by the REPL goroutine.
	mount *guard.Mount

	mu         sync.Mutex
	redirectTo string
}

// NewApp opens the local database and wires the API client, session store,
// task service and route guard. Prompts read from in; all user-facing
// output goes to out.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log),
	)
	store := session.NewStore(api, session.NewSQLiteStorage(db), session.WithLogger(log))

	a := &App{
		config:  c,
		db:      db,
		session: store,
		tasks:   services.NewTaskService(api, store),
		log:     log.With("component", "cli"),
		reader:  bufio.NewReader(in),
		out:     out,
	}
	a.guard = guard.New(store, a,
		guard.WithInterval(c.AuthCheckInterval),
		guard.WithLogger(log),
		guard.WithPending(func(context.Context) { fmt.Fprintln(a.out, "Checking session...") }),
	)

	api.OnUnauthorized(func(ctx context.Context) {
		if store.HandleUnauthorized(ctx) {
			a.Redirect(ctx, guard.LoginPath)
		}
	})
	return a, nil
}

// Run restores the stored session and serves the REPL until the user exits
// or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.session.Init(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Welcome to TaskKeeper CLI (type 'help' for commands)")
	if a.session.State() == session.PendingValidation {
		if err := a.protect(ctx); err == nil {
			fmt.Fprintf(a.out, "Logged in as %s\n", a.session.User().Username)
		}
	}

	a.repl(ctx)
	return nil
}

// Close stops the guard and releases the database.
func (a *App) Close() error {
	a.unmount()
	return a.db.Close()
}

// Redirect implements guard.Navigator. It only records the target; the
// REPL acts on it before the next prompt. Safe for concurrent use.
func (a *App) Redirect(ctx context.Context, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.redirectTo = path
	a.log.Debug(ctx, "redirect requested", "to", path)
}

func (a *App) takeRedirect() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	to := a.redirectTo
	a.redirectTo = ""
	return to
}

func (a *App) redirectPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.redirectTo != ""
}

// protect mounts the route guard unless a live mount exists.
func (a *App) protect(ctx context.Context) error {
	if a.mount != nil && a.mount.Active() {
		return nil
	}
	a.mount = nil

	m, err := a.guard.Mount(ctx)
	if err != nil {
		return err
	}
	a.mount = m
	return nil
}

func (a *App) unmount() {
	if a.mount != nil {
		a.mount.Unmount()
		a.mount = nil
	}
}

func (a *App) status() string {
	if u := a.session.User(); u != nil {
		return fmt.Sprintf(" (%s)", u.Username)
	}
	return ""
}
