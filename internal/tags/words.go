package tags

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var stopwords = wordSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
	"are", "aren", "as", "at", "be", "because", "been", "before", "being", "below", "between",
	"both", "but", "by", "can", "cannot", "could", "couldn", "did", "didn", "do", "does",
	"doesn", "doing", "don", "down", "during", "each", "even", "ever", "every", "few", "for",
	"from", "further", "get", "gets", "got", "had", "hadn", "has", "hasn", "have", "haven",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"however", "i", "if", "in", "into", "is", "isn", "it", "its", "itself", "just", "let",
	"like", "made", "make", "many", "may", "me", "might", "more", "most", "much", "must",
	"mustn", "my", "myself", "never", "new", "no", "nor", "not", "now", "of", "off", "on",
	"once", "one", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"same", "say", "says", "said", "shall", "she", "should", "shouldn", "since", "so", "some",
	"still", "such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
	"there", "these", "they", "this", "those", "through", "thus", "to", "too", "under",
	"until", "up", "upon", "us", "use", "used", "using", "very", "via", "was", "wasn", "way",
	"we", "well", "were", "weren", "what", "when", "where", "whether", "which", "while", "who",
	"whom", "whose", "why", "will", "with", "within", "without", "won", "would", "wouldn",
	"yet", "you", "your", "yours", "yourself", "yourselves", "youre", "dont", "cant", "wont",
	"thats", "ive", "ill", "isnt", "arent", "doesnt", "didnt", "two",
)

// junkWords are web and UI boilerplate terms that never describe page content.
var junkWords = wordSet(
	"click", "clicks", "login", "logout", "signin", "signup", "sign", "register", "cookie",
	"cookies", "subscribe", "subscribed", "subscription", "newsletter", "menu", "navigation",
	"home", "homepage", "page", "pages", "search", "share", "shares", "follow", "followers",
	"comment", "comments", "reply", "privacy", "policy", "terms", "conditions", "copyright",
	"rights", "reserved", "accept", "consent", "javascript", "enable", "browser", "loading",
	"read", "more", "continue", "next", "previous", "prev", "back", "top", "skip", "content",
	"account", "password", "email", "contact", "advertisement", "advertise", "ads", "sponsored",
	"download", "app", "http", "https", "www", "com", "html", "link", "links", "view", "views",
	"watch", "video", "videos", "like", "likes", "post", "posts", "toggle", "close", "open",
	"learn", "see", "find", "help", "faq", "support", "settings", "profile", "notifications",
)
