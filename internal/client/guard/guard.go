// Package guard gates the protected part of the client behind a validated
// session and keeps re-validating it while that part is in use.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
)

// LoginPath is the entry point unauthenticated users are sent to.
const LoginPath = "/login"

const DefaultInterval = 5 * time.Minute

var ErrNotAuthenticated = errors.New("not authenticated")

// Checker validates the current session. It must not return before the
// verdict is known.
type Checker interface {
	CheckAuth(ctx context.Context) bool
}

// Navigator moves the user to another entry point. Redirect may be called
// from the re-check goroutine and must not call Unmount synchronously.
type Navigator interface {
	Redirect(ctx context.Context, path string)
}

type Guard struct {
	checker  Checker
	nav      Navigator
	interval time.Duration
	pending  func(ctx context.Context)
	log      logging.Logger
}

type Option func(*Guard)

// WithInterval sets the re-check period. Non-positive values keep the
// default.
func WithInterval(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithPending registers the callback run while the first check is in
// flight, e.g. to show a placeholder.
func WithPending(fn func(ctx context.Context)) Option {
	return func(g *Guard) { g.pending = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Guard) { g.log = l }
}

func New(checker Checker, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		checker:  checker,
		nav:      nav,
		interval: DefaultInterval,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With("component", "guard")
	return g
}

// Mount validates the session before protected content is shown. When the
// session is not valid the user is redirected to LoginPath and
// ErrNotAuthenticated is returned. Otherwise the returned Mount re-checks
// the session every interval until it is unmounted, ctx ends or a check
// fails.
func (g *Guard) Mount(ctx context.Context) (*Mount, error) {
	if g.pending != nil {
		g.pending(ctx)
	}

	if !g.checker.CheckAuth(ctx) {
		g.log.Info(ctx, "session rejected, redirecting", "to", LoginPath)
		g.nav.Redirect(ctx, LoginPath)
		return nil, ErrNotAuthenticated
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m := &Mount{cancel: cancel, done: make(chan struct{})}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.finish()
		g.watch(loopCtx)
	}()
	return m, nil
}

func (g *Guard) watch(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ok := g.checker.CheckAuth(ctx)
			if ctx.Err() != nil {
				return
			}
			if !ok {
				g.log.Info(ctx, "periodic check failed, redirecting", "to", LoginPath)
				g.nav.Redirect(ctx, LoginPath)
				return
			}
			g.log.Debug(ctx, "periodic check passed")

		case <-ctx.Done():
			return
		}
	}
}

// Mount is an active protected area.
type Mount struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	done   chan struct{}
}

// Unmount stops the periodic re-check. No redirect is issued by this mount
// after Unmount returns. Safe to call more than once.
func (m *Mount) Unmount() {
	m.cancel()
	m.wg.Wait()
}

// Done is closed once the mount has ended.
func (m *Mount) Done() <-chan struct{} {
	return m.done
}

// Active reports whether the mount is still re-checking.
func (m *Mount) Active() bool {
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Mount) finish() {
	m.once.Do(func() { close(m.done) })
}
