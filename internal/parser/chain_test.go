package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

type stubStrategy struct {
	name  string
	out   Outcome
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Parse(context.Context, string) (Outcome, error) {
	s.calls++
	return s.out, s.err
}

func TestChainFirstMatchWins(t *testing.T) {
	t.Parallel()

	first := &stubStrategy{name: "first", out: Found(enrichment.LinkMetadata{Title: "first"})}
	second := &stubStrategy{name: "second", out: Found(enrichment.LinkMetadata{Title: "second"})}
	fallback := &stubStrategy{name: "generic"}
	chain := NewChain(fallback, nil, HostRule(first, "github.com"), HostRule(second, "github.com"))

	meta, err := chain.Parse(context.Background(), "https://github.com/a/b")
	require.NoError(t, err)
	require.Equal(t, "first", meta.Title)
	require.Equal(t, enrichment.PlatformGitHub, meta.Platform)
	require.Equal(t, "https://github.com/a/b", meta.URL)
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls)
	require.Zero(t, fallback.calls)
}

func TestChainEmptyFallsBackToGeneric(t *testing.T) {
	t.Parallel()

	specific := &stubStrategy{name: "github", out: Empty()}
	fallback := &stubStrategy{name: "generic", out: Found(enrichment.LinkMetadata{Title: "GitHub"})}
	chain := NewChain(fallback, nil, HostRule(specific, "github.com"))

	meta, err := chain.Parse(context.Background(), "https://github.com/owner")
	require.NoError(t, err)
	require.Equal(t, "GitHub", meta.Title)
	require.Equal(t, 1, specific.calls)
	require.Equal(t, 1, fallback.calls)
}

func TestChainErrorDoesNotFallBack(t *testing.T) {
	t.Parallel()

	boom := enrichment.NotFound("twitter parse", "no title found")
	specific := &stubStrategy{name: "twitter", err: boom}
	fallback := &stubStrategy{name: "generic", out: Found(enrichment.LinkMetadata{Title: "x"})}
	chain := NewChain(fallback, nil, HostRule(specific, "x.com"))

	_, err := chain.Parse(context.Background(), "https://x.com/u/status/1")
	require.ErrorIs(t, err, boom)
	require.Zero(t, fallback.calls)
}

func TestChainUnmatchedUsesFallback(t *testing.T) {
	t.Parallel()

	specific := &stubStrategy{name: "github"}
	fallback := &stubStrategy{name: "generic", out: Found(enrichment.LinkMetadata{Description: "d"})}
	chain := NewChain(fallback, nil, HostRule(specific, "github.com"))

	meta, err := chain.Parse(context.Background(), "https://notgithub.com/a/b")
	require.NoError(t, err)
	require.Equal(t, "d", meta.Description)
	require.Equal(t, enrichment.Platform("notgithub.com"), meta.Platform)
	require.Zero(t, specific.calls)
}

func TestChainFallbackEmptyYieldsBlankMetadata(t *testing.T) {
	t.Parallel()

	chain := NewChain(&stubStrategy{name: "generic", out: Empty()}, nil)
	meta, err := chain.Parse(context.Background(), "https://example.org/x")
	require.NoError(t, err)
	require.Equal(t, enrichment.LinkMetadata{Platform: "example.org", URL: "https://example.org/x"}, meta)
}

func TestChainFallbackErrorPropagates(t *testing.T) {
	t.Parallel()

	root := errors.New("dial tcp: refused")
	chain := NewChain(&stubStrategy{name: "generic", err: enrichment.ServiceUnavailable("generic parse", root)}, nil)
	_, err := chain.Parse(context.Background(), "https://example.org/x")
	require.ErrorIs(t, err, root)
	require.True(t, enrichment.IsServiceUnavailable(err))
}

func TestDefaultChainDispatch(t *testing.T) {
	t.Parallel()

	s := Strategies{
		GitHub:    &stubStrategy{name: "github", out: Found(enrichment.LinkMetadata{Title: "github"})},
		Instagram: &stubStrategy{name: "instagram", out: Found(enrichment.LinkMetadata{Title: "instagram"})},
		YouTube:   &stubStrategy{name: "youtube", out: Found(enrichment.LinkMetadata{Title: "youtube"})},
		LinkedIn:  &stubStrategy{name: "linkedin", out: Found(enrichment.LinkMetadata{Title: "linkedin"})},
		Twitter:   &stubStrategy{name: "twitter", out: Found(enrichment.LinkMetadata{Title: "twitter"})},
		Generic:   &stubStrategy{name: "generic", out: Found(enrichment.LinkMetadata{Title: "generic"})},
	}
	chain := NewDefaultChain(s, nil)

	cases := map[string]string{
		"https://github.com/golang/go":                "github",
		"https://www.instagram.com/p/Cabc123/":        "instagram",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "youtube",
		"https://youtu.be/dQw4w9WgXcQ":                "youtube",
		"https://www.youtube.com/":                    "generic",
		"https://www.linkedin.com/in/someone":         "linkedin",
		"https://twitter.com/u/status/1":              "twitter",
		"https://x.com/u/status/1":                    "twitter",
		"https://netflix.com/title/1":                 "generic",
		"https://example.org/":                        "generic",
	}
	for raw, want := range cases {
		meta, err := chain.Parse(context.Background(), raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, meta.Title, raw)
	}
}
