// Package enrichment defines the core types shared across the link-enrichment pipeline.
package enrichment

// Platform identifies the service a saved link originates from. Known platforms use the
// constants below; unknown links carry their registrable domain (e.g. "example.org").
type Platform string

// Known platform identifiers.
const (
	PlatformGitHub        Platform = "github"
	PlatformYouTube       Platform = "youtube"
	PlatformTwitter       Platform = "twitter"
	PlatformInstagram     Platform = "instagram"
	PlatformLinkedIn      Platform = "linkedin"
	PlatformReddit        Platform = "reddit"
	PlatformMedium        Platform = "medium"
	PlatformStackOverflow Platform = "stackoverflow"
	PlatformFacebook      Platform = "facebook"
	PlatformTikTok        Platform = "tiktok"
	PlatformTwitch        Platform = "twitch"
	PlatformPinterest     Platform = "pinterest"
	PlatformVimeo         Platform = "vimeo"
	PlatformDiscord       Platform = "discord"
	PlatformTelegram      Platform = "telegram"
	PlatformOther         Platform = "other"
)

// String returns the platform identifier.
func (p Platform) String() string {
	return string(p)
}

// LinkMetadata is the normalized output of every parser strategy.
// Title and Description are plain strings so they are always present, possibly empty.
type LinkMetadata struct {
	Platform        Platform `json:"platform"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	PreviewImageURL string   `json:"previewImageUrl"`
}

// Queue names used by the enrichment workers.
const (
	QueueScreenshot = "screenshot-generation"
	QueueTags       = "tag-generation"
)

// Job is the queue message carrying the identifiers needed to enrich one content item.
type Job struct {
	ContentID string `json:"contentId"`
	URL       string `json:"url"`
	UserID    string `json:"userId"`
}

// DesktopUserAgent is sent to sites that block non-browser agents.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
