package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoNoiseRegex = regexp.MustCompile(`(?i)\s*[\(\[](?:official\s+)?(?:music\s+)?(?:video|audio|lyric video|lyrics|visualizer|hd|4k)[\)\]]`)
	camelCaseRegex  = regexp.MustCompile(`([a-z])([A-Z])`)
)

// oembedResolver resolves links through a provider's oEmbed endpoint.
type oembedResolver struct {
	provider string
	hosts    map[string]bool
	endpoint string
	client   *http.Client
	parse    func(title, author string) TrackInfo
}

// NewYouTubeResolver handles youtube.com, youtu.be and YouTube Music links.
func NewYouTubeResolver(client *http.Client, endpoint string) Resolver {
	return &oembedResolver{
		provider: "youtube",
		hosts: map[string]bool{
			"youtube.com": true, "www.youtube.com": true, "m.youtube.com": true,
			"music.youtube.com": true, "youtu.be": true,
		},
		endpoint: endpoint,
		client:   client,
		parse:    parseYouTube,
	}
}

// NewSoundCloudResolver handles soundcloud.com track links.
func NewSoundCloudResolver(client *http.Client, endpoint string) Resolver {
	return &oembedResolver{
		provider: "soundcloud",
		hosts: map[string]bool{
			"soundcloud.com": true, "www.soundcloud.com": true, "m.soundcloud.com": true,
		},
		endpoint: endpoint,
		client:   client,
		parse:    parseSoundCloud,
	}
}

func (r *oembedResolver) CanResolve(rawURL string) bool {
	return r.hosts[hostOf(rawURL)]
}

func (r *oembedResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, ErrUnsupported
	}

	doc, err := fetchJSON(ctx, r.client, r.provider, r.endpoint, url.Values{
		"url":    {rawURL},
		"format": {"json"},
	})
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Get("title").String())
	if title == "" {
		return nil, errors.New(r.provider + " returned no title")
	}

	info := r.parse(title, strings.TrimSpace(doc.Get("author_name").String()))
	return &info, nil
}

// parseYouTube reads "Artist - Title (Official Video)" style video titles.
// Artist channels named "<Artist>VEVO" or "<Artist> - Topic" win over the
// title prefix.
func parseYouTube(title, author string) TrackInfo {
	title = strings.TrimSpace(videoNoiseRegex.ReplaceAllString(title, ""))

	artist := ""
	if before, after, found := strings.Cut(title, " - "); found {
		artist, title = strings.TrimSpace(before), strings.TrimSpace(after)
	}

	switch {
	case strings.HasSuffix(author, " - Topic"):
		artist = strings.TrimSuffix(author, " - Topic")
	case strings.HasSuffix(author, "VEVO"):
		artist = camelCaseRegex.ReplaceAllString(strings.TrimSuffix(author, "VEVO"), "$1 $2")
	case artist == "":
		artist = author
	}

	return TrackInfo{Title: title, Artist: artist}
}

// parseSoundCloud reads "Title by Artist".
func parseSoundCloud(title, author string) TrackInfo {
	if idx := strings.LastIndex(title, " by "); idx > 0 {
		return TrackInfo{
			Title:  strings.TrimSpace(title[:idx]),
			Artist: strings.TrimSpace(title[idx+len(" by "):]),
		}
	}
	return TrackInfo{Title: title, Artist: author}
}
