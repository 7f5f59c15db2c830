package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/linkvault/internal/metrics"
)

const launchKey = "browser"

var errBrowserGone = errors.New("browser disconnected during launch")

// Manager lazily launches one browser and hands out references to it.
// Concurrent Acquire calls during a launch wait on the same launch. When the
// browser disconnects the handle is dropped and the next Acquire relaunches.
type Manager struct {
	launcher Launcher
	logger   *zap.Logger
	group    singleflight.Group

	mu         sync.Mutex
	current    Browser
	generation uint64
	refs       int
	launches   int
}

// NewManager builds a Manager around launcher.
func NewManager(launcher Launcher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		launcher: launcher,
		logger:   logger.Named("browser"),
	}
}

// Acquire returns the shared browser and a release func that drops the
// reference. Release is safe to call more than once.
func (m *Manager) Acquire(ctx context.Context) (Browser, func(), error) {
	if b, release := m.take(nil); b != nil {
		return b, release, nil
	}

	ch := m.group.DoChan(launchKey, func() (any, error) {
		return m.launch(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("acquire browser: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, nil, res.Err
		}
		launched, _ := res.Val.(Browser)
		b, release := m.take(launched)
		if b == nil {
			return nil, nil, fmt.Errorf("acquire browser: %w", errBrowserGone)
		}
		return b, release, nil
	}
}

// NewPage opens a tab on the shared browser. Closing the page releases the
// reference taken for it.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	b, release, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	p, err := b.NewPage(ctx)
	if err != nil {
		release()
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &managedPage{Page: p, release: release}, nil
}

// Shutdown closes the browser, if any, and resets the manager so a later
// Acquire launches a fresh one.
func (m *Manager) Shutdown(_ context.Context) error {
	m.mu.Lock()
	b := m.current
	m.current = nil
	m.refs = 0
	m.generation++
	m.mu.Unlock()

	if b == nil {
		return nil
	}
	m.logger.Info("shutting down browser")
	if err := b.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Launches reports how many browsers have been launched.
func (m *Manager) Launches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.launches
}

// Refs reports outstanding references on the current browser.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// take increments the reference count on the current browser. When want is
// non-nil the current browser must be want.
func (m *Manager) take(want Browser) (Browser, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || (want != nil && m.current != want) {
		return nil, nil
	}
	m.refs++
	gen := m.generation
	var once sync.Once
	return m.current, func() {
		once.Do(func() { m.release(gen) })
	}
}

func (m *Manager) release(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.refs == 0 {
		return
	}
	m.refs--
}

func (m *Manager) launch(ctx context.Context) (Browser, error) {
	m.mu.Lock()
	if m.current != nil {
		b := m.current
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	m.logger.Info("launching browser")
	b, err := m.launcher.Launch(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	m.mu.Lock()
	m.current = b
	m.generation++
	m.launches++
	m.mu.Unlock()
	metrics.ObserveBrowserLaunch()

	go m.watch(b)
	return b, nil
}

func (m *Manager) watch(b Browser) {
	<-b.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != b {
		return
	}
	m.logger.Warn("browser disconnected, will relaunch on next use")
	m.current = nil
	m.refs = 0
	m.generation++
}

type managedPage struct {
	Page
	once    sync.Once
	release func()
}

func (p *managedPage) Close() error {
	var err error
	p.once.Do(func() {
		err = p.Page.Close()
		p.release()
	})
	return err
}
