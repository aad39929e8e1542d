// Package fuzzy scores how well a catalog track matches a title and artist
// taken from somewhere else.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	titleWeight  = 0.7
	artistWeight = 0.3
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]?`)
	withRegex       = regexp.MustCompile(`(?i)\s*[\(\[]\s*with\s+[^\)\]]*[\)\]]`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*\b(?:remaster(?:ed)?|deluxe|extended|radio edit|clean|explicit|live)\b[^\)\]]*[\)\]]`)
	dashSuffixRegex = regexp.MustCompile(`(?i)\s+-\s+(?:\d{4}\s+)?(?:remaster(?:ed)?|radio edit|single version|live)\b.*$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Candidate is a title and artist pair.
type Candidate struct {
	Title  string
	Artist string
}

// NormalizeTitle lowercases, strips diacritics and punctuation, and drops
// featured artists and version suffixes such as "(Remastered 2011)".
func NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, "")
	title = withRegex.ReplaceAllString(title, "")
	title = versionRegex.ReplaceAllString(title, "")
	title = dashSuffixRegex.ReplaceAllString(title, "")
	return basicNormalize(title)
}

// NormalizeArtist folds "and" into "&" on top of the basic normalization.
func NormalizeArtist(artist string) string {
	artist = basicNormalize(artist)
	return strings.ReplaceAll(artist, " and ", " & ")
}

func basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var b strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	text = punctRegex.ReplaceAllString(b.String(), " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

// Similarity is the longest common subsequence of a and b relative to the
// longer of the two, in runes.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return float64(lcs(ra, rb)) / float64(max(len(ra), len(rb)))
}

func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Score rates got against want between 0 and 1. A missing artist on either
// side scores on the title alone.
func Score(want, got Candidate) float64 {
	title := Similarity(NormalizeTitle(want.Title), NormalizeTitle(got.Title))

	wantArtist, gotArtist := NormalizeArtist(want.Artist), NormalizeArtist(got.Artist)
	if wantArtist == "" || gotArtist == "" {
		return title
	}

	artist := Similarity(wantArtist, gotArtist)
	// Catalog entries list every artist; the source often names only the first.
	if strings.Contains(gotArtist, wantArtist) || strings.Contains(wantArtist, gotArtist) {
		artist = 1
	}
	return titleWeight*title + artistWeight*artist
}

// Best returns the index and score of the highest scoring candidate, or -1
// when none reaches threshold.
func Best(want Candidate, candidates []Candidate, threshold float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := Score(want, c)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore < threshold {
		return -1, bestScore
	}
	return best, bestScore
}
