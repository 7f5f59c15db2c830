// Package headless fetches rendered pages through a shared browser with retries.
package headless

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/browser"
)

const defaultNavigationTimeout = 30 * time.Second

// Config controls navigation and retry behavior.
type Config struct {
	NavigationTimeout time.Duration
	MaxAttempts       int
	BaseDelay         time.Duration
}

// Fetcher navigates browser pages with a per-attempt timeout and retries.
type Fetcher struct {
	retrier    *Retrier
	navTimeout time.Duration
	logger     *zap.Logger
}

// New builds a Fetcher. Zero values fall back to a 30s navigation timeout,
// three attempts and a one second base delay.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("headless")
	navTimeout := cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}
	return &Fetcher{
		retrier:    NewRetrier(cfg.MaxAttempts, cfg.BaseDelay, logger),
		navTimeout: navTimeout,
		logger:     logger,
	}
}

// WithRetrier replaces the retrier, mainly so tests can stub sleeping.
func (f *Fetcher) WithRetrier(r *Retrier) *Fetcher {
	f.retrier = r
	return f
}

// Navigate loads url in page, retrying failed navigations.
func (f *Fetcher) Navigate(ctx context.Context, page browser.Page, url string) error {
	return f.retrier.Do(ctx, func(ctx context.Context) error {
		return f.navigateOnce(ctx, page, url)
	})
}

// FetchHTML navigates page to url and returns the rendered document. Each
// attempt is bounded by the navigation timeout.
func (f *Fetcher) FetchHTML(ctx context.Context, page browser.Page, url string) (string, error) {
	var html string
	err := f.retrier.Do(ctx, func(ctx context.Context) error {
		if err := f.navigateOnce(ctx, page, url); err != nil {
			return err
		}
		out, err := page.HTML(ctx)
		if err != nil {
			return fmt.Errorf("read rendered html: %w", err)
		}
		html = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

func (f *Fetcher) navigateOnce(ctx context.Context, page browser.Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, f.navTimeout)
	defer cancel()
	start := time.Now()
	if err := page.Navigate(navCtx, url); err != nil {
		f.logger.Debug("navigation failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("navigate: %w", err)
	}
	f.logger.Debug("navigated", zap.String("url", url), zap.Duration("duration", time.Since(start)))
	return nil
}
