// Package spotifyuri parses Spotify URIs and open.spotify.com links.
package spotifyuri

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// WebHost is the host of shareable Spotify links.
	WebHost = "open.spotify.com"
	// uriScheme prefixes every Spotify URI.
	uriScheme = "spotify"
)

var (
	// ErrInvalidLink is returned for input that is neither a Spotify URI nor a web link.
	ErrInvalidLink = errors.New("not a spotify uri or link")

	idRegex   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	userRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	knownTypes = map[string]bool{
		"track":    true,
		"album":    true,
		"artist":   true,
		"playlist": true,
		"show":     true,
		"episode":  true,
		"user":     true,
	}
)

// Link is a parsed Spotify resource reference.
type Link struct {
	Type string
	ID   string
}

// URI renders the canonical spotify:<type>:<id> form.
func (l Link) URI() string {
	return uriScheme + ":" + l.Type + ":" + l.ID
}

// URL renders the shareable web link.
func (l Link) URL() string {
	return "https://" + WebHost + "/" + l.Type + "/" + l.ID
}

func (l Link) String() string {
	return l.URI()
}

// Parse accepts spotify:<type>:<id>, the legacy spotify:user:<u>:playlist:<id>
// and https://open.spotify.com/<type>/<id>[?...] forms.
func Parse(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, ErrInvalidLink
	}

	if strings.HasPrefix(strings.ToLower(raw), uriScheme+":") {
		return parseURI(raw)
	}

	return parseURL(raw)
}

// MustURI is Parse(raw).URI() for inputs already known to be valid. It returns
// raw unchanged when parsing fails.
func MustURI(raw string) string {
	link, err := Parse(raw)
	if err != nil {
		return raw
	}
	return link.URI()
}

// ID returns the id part of a URI or link of the given type.
func ID(raw, wantType string) (string, error) {
	link, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if link.Type != wantType {
		return "", fmt.Errorf("%w: expected %s, got %s", ErrInvalidLink, wantType, link.Type)
	}
	return link.ID, nil
}

func parseURI(raw string) (Link, error) {
	// Drop anything a share sheet may have appended.
	if idx := strings.IndexAny(raw, "?#"); idx != -1 {
		raw = raw[:idx]
	}

	parts := strings.Split(raw, ":")
	switch {
	case len(parts) == 5 && strings.EqualFold(parts[1], "user") && strings.EqualFold(parts[3], "playlist"):
		return newLink("playlist", parts[4])
	case len(parts) == 3:
		return newLink(strings.ToLower(parts[1]), parts[2])
	default:
		return Link{}, fmt.Errorf("%w: %q", ErrInvalidLink, raw)
	}
}

func parseURL(raw string) (Link, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	if strings.ToLower(u.Hostname()) != WebHost {
		return Link{}, fmt.Errorf("%w: host %q", ErrInvalidLink, u.Hostname())
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Localized share links carry an intl-<lang> prefix.
	if len(segments) > 0 && strings.HasPrefix(strings.ToLower(segments[0]), "intl-") {
		segments = segments[1:]
	}

	switch {
	case len(segments) == 4 && segments[0] == "user" && segments[2] == "playlist":
		return newLink("playlist", segments[3])
	case len(segments) >= 2:
		return newLink(strings.ToLower(segments[0]), segments[1])
	default:
		return Link{}, fmt.Errorf("%w: path %q", ErrInvalidLink, u.Path)
	}
}

func newLink(kind, id string) (Link, error) {
	if !knownTypes[kind] {
		return Link{}, fmt.Errorf("%w: unknown type %q", ErrInvalidLink, kind)
	}
	valid := idRegex
	if kind == "user" {
		valid = userRegex
	}
	if !valid.MatchString(id) {
		return Link{}, fmt.Errorf("%w: invalid id %q", ErrInvalidLink, id)
	}
	return Link{Type: kind, ID: id}, nil
}
