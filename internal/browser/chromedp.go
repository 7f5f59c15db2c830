package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const defaultIdleGrace = 2 * time.Second

// ChromedpConfig controls how Chrome is launched.
type ChromedpConfig struct {
	ExecPath  string
	// RemoteURL connects to an already running Chrome DevTools endpoint
	// instead of launching a local process.
	RemoteURL string
	Headless  bool
	NoSandbox bool
	// IdleGrace bounds how long Navigate waits for network idle after load.
	IdleGrace time.Duration
}

// ChromedpLauncher launches headless Chrome through chromedp.
type ChromedpLauncher struct {
	cfg ChromedpConfig
}

// NewChromedpLauncher returns a Launcher for cfg.
func NewChromedpLauncher(cfg ChromedpConfig) *ChromedpLauncher {
	if cfg.IdleGrace <= 0 {
		cfg.IdleGrace = defaultIdleGrace
	}
	return &ChromedpLauncher{cfg: cfg}
}

// Launch starts Chrome, or connects to RemoteURL, and waits until the first
// target is ready.
func (l *ChromedpLauncher) Launch(ctx context.Context) (Browser, error) {
	allocCtx, allocCancel := l.allocator(ctx)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	b := &chromeBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		idleGrace:   l.cfg.IdleGrace,
		done:        make(chan struct{}),
	}
	go b.watch()
	return b, nil
}

func (l *ChromedpLauncher) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, l.cfg.RemoteURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if l.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	idleGrace   time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

func (b *chromeBrowser) watch() {
	var lost <-chan struct{}
	if c := chromedp.FromContext(b.ctx); c != nil && c.Browser != nil {
		lost = c.Browser.LostConnection
	}
	select {
	case <-lost:
	case <-b.ctx.Done():
	}
	close(b.done)
}

func (b *chromeBrowser) Done() <-chan struct{} {
	return b.done
}

func (b *chromeBrowser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(b.ctx); cerr != nil {
			err = fmt.Errorf("cancel browser: %w", cerr)
		}
		b.cancel()
		b.allocCancel()
	})
	return err
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("init tab: %w", err)
	}
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	p := &chromePage{
		ctx:       tabCtx,
		cancel:    cancel,
		idleGrace: b.idleGrace,
		idle:      make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	// The first Run attaches the tab and starts its event loop on the context
	// it is given, so it must be tabCtx itself and never a derived context.
	stop := forwardCancel(ctx, cancel)
	err := chromedp.Run(tabCtx, network.Enable(), page.SetLifecycleEventsEnabled(true))
	stop()
	if err == nil {
		err = tabCtx.Err()
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init tab: %w", err)
	}
	return p, nil
}

type chromePage struct {
	ctx       context.Context
	cancel    context.CancelFunc
	idleGrace time.Duration
	idle      chan struct{}

	mu     sync.Mutex
	closed bool
}

func (p *chromePage) onEvent(ev any) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
		select {
		case p.idle <- struct{}{}:
		default:
		}
	}
}

func (p *chromePage) SetUserAgent(ctx context.Context, userAgent string) error {
	if err := p.run(ctx, emulation.SetUserAgentOverride(userAgent)); err != nil {
		return fmt.Errorf("set user-agent: %w", err)
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	p.drainIdle()
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	timer := time.NewTimer(p.idleGrace)
	defer timer.Stop()
	select {
	case <-p.idle:
	case <-timer.C:
	case <-ctx.Done():
		return fmt.Errorf("wait network idle: %w", ctx.Err())
	}
	return nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

func (p *chromePage) Evaluate(ctx context.Context, script string, out any) error {
	if err := p.run(ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	return nil
}

// run executes actions on the tab, bounded by ctx's cancellation and deadline.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (p *chromePage) drainIdle() {
	select {
	case <-p.idle:
	default:
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
