// Package spotify adapts the Spotify Web API to the core.API surface.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"accessify/internal/core"
	"accessify/pkg/spotifyuri"
	"accessify/pkg/text"
)

const (
	// DefaultBaseURL is the Web API root every endpoint path is relative to.
	DefaultBaseURL = "https://api.spotify.com/v1/"
	// MaxErrorBody caps how much of an error response is read.
	MaxErrorBody = 64 << 10
)

var _ core.API = (*Client)(nil)

// Client talks to the Web API through zmb3/spotify for typed endpoints and
// through raw requests on the same authenticated http.Client for the queue
// and player-state endpoints, whose shapes are partial.
type Client struct {
	logger  *zap.Logger
	client  *spotify.Client
	http    *http.Client
	baseURL string
}

// NewClient wraps an authenticated http.Client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		logger:  logger,
		client:  spotify.New(httpClient, spotify.WithBaseURL(baseURL)),
		http:    httpClient,
		baseURL: baseURL,
	}
}

func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", convertError(err))
	}
	if user.DisplayName != "" {
		return user.DisplayName, nil
	}
	return user.ID, nil
}

func (c *Client) Devices(ctx context.Context) ([]core.Device, error) {
	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get player devices: %w", convertError(err))
	}

	result := make([]core.Device, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		result = append(result, core.Device{
			ID:         d.ID.String(),
			Name:       d.Name,
			Type:       d.Type,
			Active:     d.Active,
			Restricted: d.Restricted,
			Volume:     int(d.Volume),
		})
	}

	c.logger.Debug("Retrieved player devices", zap.Int("count", len(result)))
	return result, nil
}

func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if err := c.client.TransferPlayback(ctx, spotify.ID(deviceID), play); err != nil {
		return fmt.Errorf("failed to transfer playback to %s: %w", deviceID, convertError(err))
	}
	return nil
}

func (c *Client) PlayURIs(ctx context.Context, deviceID string, uris []string) error {
	opt := playOptions(deviceID)
	opt.URIs = make([]spotify.URI, 0, len(uris))
	for _, uri := range uris {
		opt.URIs = append(opt.URIs, spotify.URI(uri))
	}

	if err := c.client.PlayOpt(ctx, opt); err != nil {
		return fmt.Errorf("failed to play %d uris: %w", len(uris), convertError(err))
	}
	return nil
}

func (c *Client) PlayContext(ctx context.Context, deviceID, contextURI, offsetURI string) error {
	opt := playOptions(deviceID)
	contextValue := spotify.URI(contextURI)
	opt.PlaybackContext = &contextValue
	if offsetURI != "" {
		opt.PlaybackOffset = &spotify.PlaybackOffset{URI: spotify.URI(offsetURI)}
	}

	if err := c.client.PlayOpt(ctx, opt); err != nil {
		return fmt.Errorf("failed to play context %s: %w", contextURI, convertError(err))
	}
	return nil
}

func (c *Client) Resume(ctx context.Context, deviceID string) error {
	if err := c.client.PlayOpt(ctx, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", convertError(err))
	}
	return nil
}

func (c *Client) Pause(ctx context.Context, deviceID string) error {
	if err := c.client.PauseOpt(ctx, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", convertError(err))
	}
	return nil
}

func (c *Client) Next(ctx context.Context, deviceID string) error {
	if err := c.client.NextOpt(ctx, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to skip to next: %w", convertError(err))
	}
	return nil
}

func (c *Client) Previous(ctx context.Context, deviceID string) error {
	if err := c.client.PreviousOpt(ctx, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to skip to previous: %w", convertError(err))
	}
	return nil
}

func (c *Client) Seek(ctx context.Context, deviceID string, position time.Duration) error {
	if position < 0 {
		position = 0
	}
	if err := c.client.SeekOpt(ctx, int(position.Milliseconds()), playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to seek to %s: %w", position, convertError(err))
	}
	return nil
}

func (c *Client) SetVolume(ctx context.Context, deviceID string, percent int) error {
	percent = max(0, min(100, percent))
	if err := c.client.VolumeOpt(ctx, percent, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to set volume to %d: %w", percent, convertError(err))
	}
	return nil
}

// SetShuffle sets the shuffle state for the user's playback
func (c *Client) SetShuffle(ctx context.Context, deviceID string, shuffle bool) error {
	if err := c.client.ShuffleOpt(ctx, shuffle, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to set shuffle to %t: %w", shuffle, convertError(err))
	}

	c.logger.Debug("Set Spotify shuffle", zap.Bool("shuffle", shuffle))
	return nil
}

// SetRepeat sets the repeat state for the user's playback
// state should be "track", "context", or "off"
func (c *Client) SetRepeat(ctx context.Context, deviceID, state string) error {
	switch state {
	case core.RepeatTrack, core.RepeatContext, core.RepeatOff:
	default:
		return fmt.Errorf("invalid repeat state %q", state)
	}

	if err := c.client.RepeatOpt(ctx, state, playOptions(deviceID)); err != nil {
		return fmt.Errorf("failed to set repeat to %s: %w", state, convertError(err))
	}

	c.logger.Debug("Set Spotify repeat", zap.String("state", state))
	return nil
}

// AddToQueue appends a track or episode uri to the vendor queue. The typed
// client only queues tracks, so the request is issued directly.
func (c *Client) AddToQueue(ctx context.Context, deviceID, uri string) error {
	query := url.Values{"uri": {uri}}
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}

	if _, _, err := c.do(ctx, http.MethodPost, "me/player/queue", query); err != nil {
		return fmt.Errorf("failed to add %s to queue: %w", uri, err)
	}

	c.logger.Info("Item added to queue", zap.String("uri", uri))
	return nil
}

func (c *Client) Queue(ctx context.Context) (*core.QueueSnapshot, error) {
	body, status, err := c.do(ctx, http.MethodGet, "me/player/queue", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get user queue: %w", err)
	}
	if status == http.StatusNoContent {
		return &core.QueueSnapshot{}, nil
	}
	return ParseQueue(body), nil
}

func (c *Client) Playback(ctx context.Context) (*core.PlaybackState, error) {
	body, status, err := c.do(ctx, http.MethodGet, "me/player", url.Values{"additional_types": {"track,episode"}})
	if err != nil {
		return nil, fmt.Errorf("failed to get player state: %w", err)
	}
	if status == http.StatusNoContent || len(body) == 0 {
		return nil, nil
	}
	return ParsePlayback(body), nil
}

func (c *Client) Search(ctx context.Context, query, kind string, limit, offset int) (core.Page[core.Item], error) {
	searchType, err := searchTypeFor(kind)
	if err != nil {
		return core.Page[core.Item]{}, err
	}

	results, err := c.client.Search(ctx, query, searchType, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return core.Page[core.Item]{}, fmt.Errorf("search failed: %w", convertError(err))
	}

	var page core.Page[core.Item]
	switch searchType {
	case spotify.SearchTypeTrack:
		if results.Tracks != nil {
			for i := range results.Tracks.Tracks {
				page.Items = appendItem(page.Items, trackItem(&results.Tracks.Tracks[i].SimpleTrack))
			}
			page.Total, page.HasNext = int(results.Tracks.Total), results.Tracks.Next != ""
		}
	case spotify.SearchTypeAlbum:
		if results.Albums != nil {
			for i := range results.Albums.Albums {
				page.Items = appendItem(page.Items, albumItem(&results.Albums.Albums[i]))
			}
			page.Total, page.HasNext = int(results.Albums.Total), results.Albums.Next != ""
		}
	case spotify.SearchTypeArtist:
		if results.Artists != nil {
			for i := range results.Artists.Artists {
				page.Items = appendItem(page.Items, artistItem(&results.Artists.Artists[i].SimpleArtist))
			}
			page.Total, page.HasNext = int(results.Artists.Total), results.Artists.Next != ""
		}
	case spotify.SearchTypePlaylist:
		if results.Playlists != nil {
			for i := range results.Playlists.Playlists {
				page.Items = appendItem(page.Items, playlistItem(&results.Playlists.Playlists[i]))
			}
			page.Total, page.HasNext = int(results.Playlists.Total), results.Playlists.Next != ""
		}
	}

	c.logger.Debug("Search completed",
		zap.String("kind", kind),
		zap.Int("offset", offset),
		zap.Int("results", len(page.Items)))

	return page, nil
}

func (c *Client) Playlists(ctx context.Context, limit, offset int) (core.Page[core.Item], error) {
	playlists, err := c.client.CurrentUsersPlaylists(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return core.Page[core.Item]{}, fmt.Errorf("failed to get playlists: %w", convertError(err))
	}

	page := core.Page[core.Item]{Total: int(playlists.Total), HasNext: playlists.Next != ""}
	for i := range playlists.Playlists {
		page.Items = appendItem(page.Items, playlistItem(&playlists.Playlists[i]))
	}
	return page, nil
}

func (c *Client) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (core.Page[core.Item], error) {
	items, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return core.Page[core.Item]{}, fmt.Errorf("failed to get playlist items: %w", convertError(err))
	}

	page := core.Page[core.Item]{Total: int(items.Total), HasNext: items.Next != ""}
	for i := range items.Items {
		// Local files and removed items come back without a track or episode.
		switch item := &items.Items[i].Track; {
		case item.Track != nil:
			page.Items = appendItem(page.Items, trackItem(&item.Track.SimpleTrack))
		case item.Episode != nil:
			page.Items = appendItem(page.Items, core.Item{
				Kind: string(core.MediaEpisode),
				ID:   item.Episode.ID.String(),
				Name: item.Episode.Name,
				URI:  string(item.Episode.URI),
				Link: linkFor(string(item.Episode.URI), item.Episode.ExternalURLs),
			})
		}
	}
	return page, nil
}

func (c *Client) AlbumTracks(ctx context.Context, albumID string, limit, offset int) (core.Page[core.Item], error) {
	tracks, err := c.client.GetAlbumTracks(ctx, spotify.ID(albumID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return core.Page[core.Item]{}, fmt.Errorf("failed to get album tracks: %w", convertError(err))
	}

	page := core.Page[core.Item]{Total: int(tracks.Total), HasNext: tracks.Next != ""}
	for i := range tracks.Tracks {
		page.Items = appendItem(page.Items, trackItem(&tracks.Tracks[i]))
	}
	return page, nil
}

func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (core.Page[core.Item], error) {
	tracks, err := c.client.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return core.Page[core.Item]{}, fmt.Errorf("failed to get saved tracks: %w", convertError(err))
	}

	page := core.Page[core.Item]{Total: int(tracks.Total), HasNext: tracks.Next != ""}
	for i := range tracks.Tracks {
		page.Items = appendItem(page.Items, trackItem(&tracks.Tracks[i].SimpleTrack))
	}
	return page, nil
}

func (c *Client) FollowedArtists(ctx context.Context, limit int, after string) (core.CursorPage[core.Item], error) {
	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if after != "" {
		opts = append(opts, spotify.After(after))
	}

	artists, err := c.client.CurrentUsersFollowedArtists(ctx, opts...)
	if err != nil {
		return core.CursorPage[core.Item]{}, fmt.Errorf("failed to get followed artists: %w", convertError(err))
	}

	var page core.CursorPage[core.Item]
	for i := range artists.Artists {
		page.Items = appendItem(page.Items, artistItem(&artists.Artists[i].SimpleArtist))
	}
	if artists.Next != "" {
		page.Next = artists.Cursor.After
	}
	return page, nil
}

func (c *Client) SaveTracks(ctx context.Context, ids ...string) error {
	if err := c.client.AddTracksToLibrary(ctx, toIDs(ids)...); err != nil {
		return fmt.Errorf("failed to save tracks: %w", convertError(err))
	}
	return nil
}

func (c *Client) RemoveSavedTracks(ctx context.Context, ids ...string) error {
	if err := c.client.RemoveTracksFromLibrary(ctx, toIDs(ids)...); err != nil {
		return fmt.Errorf("failed to remove saved tracks: %w", convertError(err))
	}
	return nil
}

// do issues a raw request relative to baseURL. Non-2xx answers become a
// *core.VendorError; a 204 returns a nil body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, convertError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
		return nil, resp.StatusCode, parseVendorError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// convertError maps library and transport errors onto *core.VendorError so
// callers classify one error type.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &core.VendorError{Status: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &core.VendorError{Status: apiErrPtr.Status, Message: apiErrPtr.Message}
	}

	// A refresh rejected by the accounts service means the grant is gone.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		message := retrieveErr.ErrorCode
		if message == "" {
			message = "token refresh rejected"
		}
		return &core.VendorError{Status: http.StatusUnauthorized, Message: message}
	}

	return err
}

func parseVendorError(status int, body []byte) *core.VendorError {
	ve := &core.VendorError{Status: status, Message: http.StatusText(status)}
	if !gjson.ValidBytes(body) {
		return ve
	}

	parsed := gjson.ParseBytes(body)
	if msg := parsed.Get("error.message"); msg.Exists() && msg.String() != "" {
		ve.Message = msg.String()
	}
	ve.Reason = parsed.Get("error.reason").String()
	return ve
}

func playOptions(deviceID string) *spotify.PlayOptions {
	opt := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opt.DeviceID = &id
	}
	return opt
}

func searchTypeFor(kind string) (spotify.SearchType, error) {
	switch kind {
	case "track":
		return spotify.SearchTypeTrack, nil
	case "album":
		return spotify.SearchTypeAlbum, nil
	case "artist":
		return spotify.SearchTypeArtist, nil
	case "playlist":
		return spotify.SearchTypePlaylist, nil
	default:
		return 0, fmt.Errorf("unsupported search kind %q", kind)
	}
}

func toIDs(ids []string) []spotify.ID {
	result := make([]spotify.ID, 0, len(ids))
	for _, id := range ids {
		result = append(result, spotify.ID(id))
	}
	return result
}

// appendItem drops the null entries search and playlist pages may contain.
func appendItem(items []core.Item, item core.Item) []core.Item {
	if item.URI == "" {
		return items
	}
	return append(items, item)
}

func trackItem(t *spotify.SimpleTrack) core.Item {
	return core.Item{
		Kind:     string(core.MediaTrack),
		ID:       t.ID.String(),
		Name:     t.Name,
		Subtitle: artistNames(t.Artists),
		URI:      string(t.URI),
		Link:     linkFor(string(t.URI), t.ExternalURLs),
	}
}

func albumItem(a *spotify.SimpleAlbum) core.Item {
	return core.Item{
		Kind:     "album",
		ID:       a.ID.String(),
		Name:     a.Name,
		Subtitle: artistNames(a.Artists),
		URI:      string(a.URI),
		Link:     linkFor(string(a.URI), a.ExternalURLs),
	}
}

func artistItem(a *spotify.SimpleArtist) core.Item {
	return core.Item{
		Kind: "artist",
		ID:   a.ID.String(),
		Name: a.Name,
		URI:  string(a.URI),
		Link: linkFor(string(a.URI), a.ExternalURLs),
	}
}

func playlistItem(p *spotify.SimplePlaylist) core.Item {
	return core.Item{
		Kind:     "playlist",
		ID:       p.ID.String(),
		Name:     p.Name,
		Subtitle: p.Owner.DisplayName,
		URI:      string(p.URI),
		Link:     linkFor(string(p.URI), p.ExternalURLs),
	}
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for i := range artists {
		names = append(names, artists[i].Name)
	}
	return text.JoinNames(names)
}

func linkFor(uri string, external map[string]string) string {
	if link := external["spotify"]; link != "" {
		return link
	}
	if link, err := spotifyuri.Parse(uri); err == nil {
		return link.URL()
	}
	return ""
}
