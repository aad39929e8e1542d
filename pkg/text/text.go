// Package text prepares vendor strings for speech output and pulls Spotify
// references out of pasted text.
package text

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	spotifyURIRegex = regexp.MustCompile(`spotify:(?:user:[\w.-]+:)?[a-z]+:[A-Za-z0-9]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	trackingParams = []string{"si", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "context"}
)

// Normalize composes text to NFC and collapses whitespace so screen readers
// do not spell out decomposed marks or read line breaks.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// JoinNames normalizes names, drops empty and duplicate entries and joins the
// rest with ", ".
func JoinNames(names []string) string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = Normalize(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return strings.Join(out, ", ")
}

// FindReferences returns the Spotify URIs and web links contained in pasted
// text, in order of appearance.
func FindReferences(s string) []string {
	s = Normalize(s)

	type match struct {
		start int
		value string
	}
	var matches []match

	for _, loc := range spotifyURIRegex.FindAllStringIndex(s, -1) {
		matches = append(matches, match{start: loc[0], value: s[loc[0]:loc[1]]})
	}
	for _, loc := range urlRegex.FindAllStringIndex(s, -1) {
		raw := strings.TrimRight(s[loc[0]:loc[1]], ".,!?;)")
		if clean := CleanLink(raw); clean != "" {
			matches = append(matches, match{start: loc[0], value: clean})
		}
	}

	// Two short lists; insertion sort keeps appearance order stable.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m.value)
	}
	return refs
}

// CleanLink strips share-sheet tracking parameters from a web link. It returns
// "" for input that is not an absolute http(s) URL.
func CleanLink(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String()
}

// Clock formats a position as m:ss or h:mm:ss for announcements.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
