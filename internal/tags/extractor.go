// Package tags derives ranked keyword tags from free text.
package tags

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxTags is used when Extract is called with a non-positive limit.
const DefaultMaxTags = 10

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// Extract returns at most maxTags lowercase tags: hashtags in first-seen order followed
// by the most frequent remaining keywords.
func Extract(text string, maxTags int) []string {
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}

	hashtags := make([]string, 0)
	seen := make(map[string]struct{})
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		hashtags = append(hashtags, tag)
	}

	remaining := hashtagPattern.ReplaceAllString(text, " ")
	keywords := rankKeywords(remaining, seen)

	out := make([]string, 0, maxTags)
	out = appendUnique(out, hashtags, maxTags)
	out = appendUnique(out, keywords, maxTags)
	return out
}

type keyword struct {
	word  string
	count int
	first int
}

func rankKeywords(text string, hashtags map[string]struct{}) []string {
	counts := make(map[string]*keyword)
	order := make([]*keyword, 0)
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := stripNonAlphanumeric(raw)
		if !keep(word, hashtags) {
			continue
		}
		if k, ok := counts[word]; ok {
			k.count++
			continue
		}
		k := &keyword{word: word, count: 1, first: len(order)}
		counts[word] = k
		order = append(order, k)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})
	words := make([]string, len(order))
	for i, k := range order {
		words[i] = k.word
	}
	return words
}

func keep(word string, hashtags map[string]struct{}) bool {
	if len([]rune(word)) <= 2 {
		return false
	}
	if _, ok := stopwords[word]; ok {
		return false
	}
	if _, ok := junkWords[word]; ok {
		return false
	}
	if _, ok := hashtags[word]; ok {
		return false
	}
	return !isNumeric(word)
}

func stripNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func appendUnique(dst, src []string, limit int) []string {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		if contains(dst, s) {
			continue
		}
		dst = append(dst, s)
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims tags, dropping empties and duplicates while keeping order.
func Normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
