package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var errNoAppleTrackID = errors.New("no track id in apple music link (album links without ?i= are not supported)")

// AppleMusicResolver looks tracks up in the public iTunes catalog.
type AppleMusicResolver struct {
	client   *http.Client
	endpoint string
}

func NewAppleMusicResolver(client *http.Client, endpoint string) *AppleMusicResolver {
	return &AppleMusicResolver{client: client, endpoint: endpoint}
}

func (r *AppleMusicResolver) CanResolve(rawURL string) bool {
	host := hostOf(rawURL)
	return host == "music.apple.com" || host == "itunes.apple.com"
}

func (r *AppleMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, ErrUnsupported
	}

	trackID, err := appleTrackID(rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := fetchJSON(ctx, r.client, "itunes", r.endpoint, url.Values{
		"id":     {trackID},
		"entity": {"song"},
	})
	if err != nil {
		return nil, err
	}

	// Lookups by album id list the album first; take the first song.
	for _, result := range doc.Get("results").Array() {
		if kind := result.Get("kind").String(); kind != "" && kind != "song" {
			continue
		}
		title := result.Get("trackName").String()
		if title == "" {
			continue
		}
		return &TrackInfo{Title: title, Artist: result.Get("artistName").String()}, nil
	}
	return nil, fmt.Errorf("itunes has no track %s", trackID)
}

// appleTrackID prefers the ?i= song id of album links over /song/<slug>/<id>.
func appleTrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if id := u.Query().Get("i"); id != "" {
		return id, nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "song" && i < len(parts)-1 {
			return parts[len(parts)-1], nil
		}
	}
	return "", errNoAppleTrackID
}
