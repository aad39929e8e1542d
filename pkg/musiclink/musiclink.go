// Package musiclink turns track links from other music services into a title
// and artist that can be looked up in the Spotify catalog.
package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrUnsupported is returned for links no resolver handles.
var ErrUnsupported = errors.New("unsupported music link")

// TrackInfo is what a provider tells us about a track.
type TrackInfo struct {
	Title  string
	Artist string
}

// Query renders the info as a catalog search query.
func (t TrackInfo) Query() string {
	return strings.TrimSpace(t.Artist + " " + t.Title)
}

// Resolver handles the links of one provider.
type Resolver interface {
	CanResolve(rawURL string) bool
	Resolve(ctx context.Context, rawURL string) (*TrackInfo, error)
}

// Endpoints are the provider lookup URLs. Tests point them at a local server.
type Endpoints struct {
	YouTubeOEmbed    string
	SoundCloudOEmbed string
	ITunesLookup     string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		YouTubeOEmbed:    "https://www.youtube.com/oembed",
		SoundCloudOEmbed: "https://soundcloud.com/oembed",
		ITunesLookup:     "https://itunes.apple.com/lookup",
	}
}

// Manager picks the resolver for a link and remembers recent answers.
type Manager struct {
	resolvers []Resolver
	cache     *lru.Cache[string, TrackInfo]
}

// NewManager builds a manager over every supported provider. A nil client
// gets the package default; cacheSize <= 0 disables the cache.
func NewManager(client *http.Client, endpoints Endpoints, cacheSize int) *Manager {
	if client == nil {
		client = newHTTPClient()
	}

	m := &Manager{
		resolvers: []Resolver{
			NewYouTubeResolver(client, endpoints.YouTubeOEmbed),
			NewSoundCloudResolver(client, endpoints.SoundCloudOEmbed),
			NewAppleMusicResolver(client, endpoints.ITunesLookup),
		},
	}
	if cacheSize > 0 {
		// Only fails for a non-positive size.
		m.cache, _ = lru.New[string, TrackInfo](cacheSize)
	}
	return m
}

func (m *Manager) CanResolve(rawURL string) bool {
	return m.resolverFor(rawURL) != nil
}

func (m *Manager) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	resolver := m.resolverFor(rawURL)
	if resolver == nil {
		return nil, ErrUnsupported
	}

	key := cacheKey(rawURL)
	if m.cache != nil {
		if info, ok := m.cache.Get(key); ok {
			return &info, nil
		}
	}

	info, err := resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Add(key, *info)
	}
	return info, nil
}

// CacheLen reports how many links are remembered.
func (m *Manager) CacheLen() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}

func (m *Manager) resolverFor(rawURL string) Resolver {
	for _, r := range m.resolvers {
		if r.CanResolve(rawURL) {
			return r
		}
	}
	return nil
}

// cacheKey ignores the scheme, host case and fragment so share variants of the
// same link hit one entry.
func cacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Host) + u.Path + "?" + u.Query().Encode()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
