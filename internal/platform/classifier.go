// Package platform maps link URLs to the service they originate from.
package platform

import (
	"net/url"
	"strings"

	"github.com/JakeFAU/linkvault/internal/enrichment"
)

type rule struct {
	platform enrichment.Platform
	domains  []string
}

// rules are evaluated in order; the first rule with a matching domain wins.
var rules = []rule{
	{enrichment.PlatformGitHub, []string{"github.com"}},
	{enrichment.PlatformYouTube, []string{"youtube.com", "youtu.be"}},
	{enrichment.PlatformTwitter, []string{"twitter.com", "x.com"}},
	{enrichment.PlatformInstagram, []string{"instagram.com"}},
	{enrichment.PlatformLinkedIn, []string{"linkedin.com", "lnkd.in"}},
	{enrichment.PlatformReddit, []string{"reddit.com", "redd.it"}},
	{enrichment.PlatformMedium, []string{"medium.com"}},
	{enrichment.PlatformStackOverflow, []string{"stackoverflow.com"}},
	{enrichment.PlatformFacebook, []string{"facebook.com", "fb.com"}},
	{enrichment.PlatformTikTok, []string{"tiktok.com"}},
	{enrichment.PlatformTwitch, []string{"twitch.tv"}},
	{enrichment.PlatformPinterest, []string{"pinterest.com", "pin.it"}},
	{enrichment.PlatformVimeo, []string{"vimeo.com"}},
	{enrichment.PlatformDiscord, []string{"discord.com", "discord.gg"}},
	{enrichment.PlatformTelegram, []string{"telegram.org", "t.me"}},
}

// Classify returns the platform for rawURL. A known platform matches only when
// the hostname is one of its domains or a subdomain of one, so lookalike hosts
// such as mygithub.com are not classified as GitHub. Unknown hosts map to their
// last two hostname labels; unparseable URLs map to "other". It never fails.
func Classify(rawURL string) enrichment.Platform {
	host := Host(rawURL)
	if host == "" {
		return enrichment.PlatformOther
	}
	for _, r := range rules {
		for _, d := range r.domains {
			if Matches(host, d) {
				return r.platform
			}
		}
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return enrichment.Platform(host)
	}
	return enrichment.Platform(strings.Join(labels[len(labels)-2:], "."))
}

// Host extracts the lowercase hostname from rawURL, or "" when it cannot be parsed.
func Host(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// Matches reports whether host is domain or one of its subdomains.
func Matches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
