// Package browser owns the process-wide headless browser shared by renderers.
package browser

import (
	"context"
	"errors"
)

// ErrClosed is returned when a page is used after Close.
var ErrClosed = errors.New("browser page closed")

// Page is a single tab inside the shared browser. Pages are never shared
// between callers; each caller closes the page it opened.
type Page interface {
	SetUserAgent(ctx context.Context, userAgent string) error
	// Navigate loads url and waits for the load event and network idle.
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	// Evaluate runs script in the page and decodes its JSON result into out.
	Evaluate(ctx context.Context, script string, out any) error
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Browser is a live browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	// Done is closed when the process exits or the connection is lost.
	Done() <-chan struct{}
	Close() error
}

// Launcher starts browser processes. The context bounds the lifetime of the
// launched process, not just the launch.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Browser, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) {
	return f(ctx)
}
