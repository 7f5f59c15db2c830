// Package parser turns link URLs into LinkMetadata using platform-specific
// strategies, falling back to generic HTML metadata scraping.
package parser

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkvault/internal/enrichment"
	"github.com/JakeFAU/linkvault/internal/metrics"
	"github.com/JakeFAU/linkvault/internal/platform"
)

// Outcome is the result of a strategy that did not fail: either metadata was
// found, or the strategy had nothing to say and the fallback should run.
type Outcome struct {
	meta  enrichment.LinkMetadata
	found bool
}

// Found wraps metadata produced by a strategy.
func Found(meta enrichment.LinkMetadata) Outcome {
	return Outcome{meta: meta, found: true}
}

// Empty signals that the strategy does not apply to the URL.
func Empty() Outcome {
	return Outcome{}
}

// Metadata returns the metadata and whether any was found.
func (o Outcome) Metadata() (enrichment.LinkMetadata, bool) {
	return o.meta, o.found
}

// Strategy extracts metadata for one kind of URL. Returning an error is a hard
// failure; returning Empty hands the URL to the fallback strategy.
type Strategy interface {
	Name() string
	Parse(ctx context.Context, rawURL string) (Outcome, error)
}

// Rule pairs a predicate with the strategy that handles matching URLs.
type Rule struct {
	Match    func(u *url.URL, rawURL string) bool
	Strategy Strategy
}

// HostRule matches URLs whose host is one of domains or a subdomain of one.
func HostRule(s Strategy, domains ...string) Rule {
	return Rule{
		Strategy: s,
		Match: func(u *url.URL, _ string) bool {
			if u == nil {
				return false
			}
			for _, d := range domains {
				if platform.Matches(u.Hostname(), d) {
					return true
				}
			}
			return false
		},
	}
}

// Chain evaluates rules in order; the first matching rule wins.
type Chain struct {
	rules    []Rule
	fallback Strategy
	logger   *zap.Logger
}

// NewChain builds a Chain. fallback handles URLs no rule matches and URLs whose
// strategy returned Empty.
func NewChain(fallback Strategy, logger *zap.Logger, rules ...Rule) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		rules:    rules,
		fallback: fallback,
		logger:   logger.Named("parser"),
	}
}

// Parse returns metadata for rawURL. Errors from the selected strategy are
// returned unchanged and do not trigger the fallback.
func (c *Chain) Parse(ctx context.Context, rawURL string) (enrichment.LinkMetadata, error) {
	u, _ := url.Parse(rawURL)
	for _, rule := range c.rules {
		if !rule.Match(u, rawURL) {
			continue
		}
		meta, found, err := c.run(ctx, rule.Strategy, rawURL)
		if err != nil {
			return enrichment.LinkMetadata{}, err
		}
		if found {
			return meta, nil
		}
		c.logger.Debug("strategy returned nothing, using fallback",
			zap.String("strategy", rule.Strategy.Name()),
			zap.String("url", rawURL),
		)
		break
	}

	meta, found, err := c.run(ctx, c.fallback, rawURL)
	if err != nil {
		return enrichment.LinkMetadata{}, err
	}
	if !found {
		return c.normalize(enrichment.LinkMetadata{}, rawURL), nil
	}
	return meta, nil
}

func (c *Chain) run(ctx context.Context, s Strategy, rawURL string) (enrichment.LinkMetadata, bool, error) {
	out, err := s.Parse(ctx, rawURL)
	if err != nil {
		metrics.ObserveParser(s.Name(), "error")
		c.logger.Debug("strategy failed",
			zap.String("strategy", s.Name()),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return enrichment.LinkMetadata{}, false, err
	}
	meta, found := out.Metadata()
	if !found {
		metrics.ObserveParser(s.Name(), "empty")
		return enrichment.LinkMetadata{}, false, nil
	}
	metrics.ObserveParser(s.Name(), "found")
	return c.normalize(meta, rawURL), true, nil
}

func (c *Chain) normalize(meta enrichment.LinkMetadata, rawURL string) enrichment.LinkMetadata {
	if meta.Platform == "" {
		meta.Platform = platform.Classify(rawURL)
	}
	if meta.URL == "" {
		meta.URL = rawURL
	}
	return meta
}
