package parser

import (
	"net/url"

	"go.uber.org/zap"
)

// Strategies bundles the platform strategies used by NewDefaultChain.
type Strategies struct {
	GitHub    Strategy
	Instagram Strategy
	YouTube   Strategy
	LinkedIn  Strategy
	Twitter   Strategy
	Generic   Strategy
}

// NewDefaultChain wires strategies in dispatch order: GitHub, Instagram,
// YouTube (by video ID), LinkedIn, Twitter/X, then the generic fallback.
// Nil strategies are skipped.
func NewDefaultChain(s Strategies, logger *zap.Logger) *Chain {
	var rules []Rule
	if s.GitHub != nil {
		rules = append(rules, HostRule(s.GitHub, "github.com"))
	}
	if s.Instagram != nil {
		rules = append(rules, HostRule(s.Instagram, "instagram.com"))
	}
	if s.YouTube != nil {
		rules = append(rules, Rule{
			Strategy: s.YouTube,
			Match: func(_ *url.URL, rawURL string) bool {
				_, ok := VideoID(rawURL)
				return ok
			},
		})
	}
	if s.LinkedIn != nil {
		rules = append(rules, HostRule(s.LinkedIn, "linkedin.com"))
	}
	if s.Twitter != nil {
		rules = append(rules, HostRule(s.Twitter, "twitter.com", "x.com"))
	}
	return NewChain(s.Generic, logger, rules...)
}
