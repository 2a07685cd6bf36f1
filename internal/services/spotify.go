// Spotify Web API client built on the authenticated session core.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/muse/internal/cache"
	"github.com/desertthunder/muse/internal/session"
	"github.com/desertthunder/muse/internal/shared"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyFlowConfig builds the session flow configuration for Spotify from
// provider settings.
func SpotifyFlowConfig(pc shared.ProviderConfig) session.FlowConfig {
	return session.FlowConfig{
		Flow:         session.FlowKind(pc.Flow),
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		RedirectURI:  pc.RedirectURI,
		Scopes:       pc.Scopes,
		AuthURL:      SpotifyAuthURL,
		TokenURL:     SpotifyTokenURL,
	}
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// SpotifySearchResult represents the track portion of a search response.
type SpotifySearchResult struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// SpotifyPlaybackState represents the user's current player state.
type SpotifyPlaybackState struct {
	IsPlaying  bool         `json:"is_playing"`
	ProgressMS int          `json:"progress_ms"`
	Item       SpotifyTrack `json:"item"`
	Device     struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		VolumePercent int    `json:"volume_percent"`
	} `json:"device"`
}

// SpotifyService wraps the session client with typed Spotify operations.
//
// Read operations declare a cache tier matched to how often the underlying
// data changes; mutations invalidate the affected resource.
type SpotifyService struct {
	client *session.Client
}

// NewSpotifyService creates a Spotify service over an authenticated session
// client rooted at the Web API base URL.
func NewSpotifyService(client *session.Client) *SpotifyService {
	return &SpotifyService{client: client}
}

// Name returns the service name.
func (s *SpotifyService) Name() string { return "Spotify" }

// Client returns the underlying session client.
func (s *SpotifyService) Client() *session.Client { return s.client }

// fetch performs the operation and decodes the JSON response into T.
func fetch[T any](ctx context.Context, client *session.Client, op session.Operation) (*T, error) {
	resp, err := client.Request(ctx, op)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, op.Name, err)
	}
	return &out, nil
}

// CurrentUser fetches the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	return fetch[SpotifyUser](ctx, s.client, session.Operation{
		Name:      "GetCurrentUser",
		Path:      "/me",
		CacheTier: cache.TierUser,
		Resource:  "me",
	})
}

// GetTrack fetches a track from the catalog.
func (s *SpotifyService) GetTrack(ctx context.Context, id, market string) (*SpotifyTrack, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}

	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}

	return fetch[SpotifyTrack](ctx, s.client, session.Operation{
		Name:      "GetTrack",
		Path:      "/tracks/" + id,
		Query:     q,
		CacheTier: cache.TierCatalog,
		Resource:  "tracks",
	})
}

// GetAlbum fetches an album from the catalog.
func (s *SpotifyService) GetAlbum(ctx context.Context, id, market string) (*SpotifyAlbum, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: album id is required", shared.ErrInvalidInput)
	}

	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}

	return fetch[SpotifyAlbum](ctx, s.client, session.Operation{
		Name:      "GetAlbum",
		Path:      "/albums/" + id,
		Query:     q,
		CacheTier: cache.TierCatalog,
		Resource:  "albums",
	})
}

// GetArtist fetches an artist from the catalog.
func (s *SpotifyService) GetArtist(ctx context.Context, id string) (*SpotifyArtist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id is required", shared.ErrInvalidInput)
	}

	return fetch[SpotifyArtist](ctx, s.client, session.Operation{
		Name:      "GetArtist",
		Path:      "/artists/" + id,
		CacheTier: cache.TierCatalog,
		Resource:  "artists",
	})
}

// ArtistTopTracks fetches an artist's most popular tracks for a market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, id, market string) ([]SpotifyTrack, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: artist id is required", shared.ErrInvalidInput)
	}

	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}

	out, err := fetch[struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}](ctx, s.client, session.Operation{
		Name:      "GetArtistTopTracks",
		Path:      "/artists/" + id + "/top-tracks",
		Query:     q,
		CacheTier: cache.TierPopularity,
		Resource:  "artists",
	})
	if err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// Search searches the catalog for tracks matching the query.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) (*SpotifySearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 20
	}

	return fetch[SpotifySearchResult](ctx, s.client, session.Operation{
		Name: "Search",
		Path: "/search",
		Query: url.Values{
			"q":     {query},
			"type":  {"track"},
			"limit": {strconv.Itoa(limit)},
		},
		CacheTier: cache.TierSearch,
		Resource:  "search",
	})
}

// NewReleases fetches the newest albums in the catalog.
func (s *SpotifyService) NewReleases(ctx context.Context, limit int) (*SpotifyPaginatedAlbums, error) {
	if limit <= 0 {
		limit = 20
	}

	out, err := fetch[struct {
		Albums SpotifyPaginatedAlbums `json:"albums"`
	}](ctx, s.client, session.Operation{
		Name:      "GetNewReleases",
		Path:      "/browse/new-releases",
		Query:     url.Values{"limit": {strconv.Itoa(limit)}},
		CacheTier: cache.TierFeatured,
		Resource:  "browse",
	})
	if err != nil {
		return nil, err
	}
	return &out.Albums, nil
}

// SpotifyPaginatedAlbums represents a paginated response of albums.
type SpotifyPaginatedAlbums struct {
	Items  []SpotifyAlbum `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Markets fetches the country codes the catalog is available in.
func (s *SpotifyService) Markets(ctx context.Context) ([]string, error) {
	out, err := fetch[struct {
		Markets []string `json:"markets"`
	}](ctx, s.client, session.Operation{
		Name:      "GetMarkets",
		Path:      "/markets",
		CacheTier: cache.TierStatic,
		Resource:  "markets",
	})
	if err != nil {
		return nil, err
	}
	return out.Markets, nil
}

// SavedTracks fetches a page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 50
	}

	return fetch[SpotifyPaginatedTracks](ctx, s.client, session.Operation{
		Name: "GetSavedTracks",
		Path: "/me/tracks",
		Query: url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		},
		RequiredScopes: []string{"user-library-read"},
		CacheTier:      cache.TierUser,
		Resource:       "library",
	})
}

// SaveTracks adds tracks to the user's library and invalidates cached
// library reads.
func (s *SpotifyService) SaveTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track id is required", shared.ErrInvalidInput)
	}

	body, err := json.Marshal(map[string][]string{"ids": ids})
	if err != nil {
		return fmt.Errorf("failed to encode track ids: %w", err)
	}

	_, err = s.client.Request(ctx, session.Operation{
		Name:           "SaveTracks",
		Method:         http.MethodPut,
		Path:           "/me/tracks",
		Body:           bytes.NewReader(body),
		RequiredScopes: []string{"user-library-modify"},
		Resource:       "library",
	})
	return err
}

// RemoveSavedTracks removes tracks from the user's library and invalidates
// cached library reads.
func (s *SpotifyService) RemoveSavedTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track id is required", shared.ErrInvalidInput)
	}

	_, err := s.client.Request(ctx, session.Operation{
		Name:           "RemoveSavedTracks",
		Method:         http.MethodDelete,
		Path:           "/me/tracks",
		Query:          url.Values{"ids": {strings.Join(ids, ",")}},
		RequiredScopes: []string{"user-library-modify"},
		Resource:       "library",
	})
	return err
}

// Playlists fetches a page of the user's playlists.
func (s *SpotifyService) Playlists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 50
	}

	return fetch[SpotifyPaginatedPlaylists](ctx, s.client, session.Operation{
		Name: "GetPlaylists",
		Path: "/me/playlists",
		Query: url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		},
		RequiredScopes: []string{"playlist-read-private"},
		CacheTier:      cache.TierUser,
		Resource:       "playlists",
	})
}

// PlaybackState fetches the user's current player state. Returns nil with
// no error when nothing is playing (204 from the provider).
func (s *SpotifyService) PlaybackState(ctx context.Context) (*SpotifyPlaybackState, error) {
	resp, err := s.client.Request(ctx, session.Operation{
		Name:           "GetPlaybackState",
		Path:           "/me/player",
		RequiredScopes: []string{"user-read-playback-state"},
		CacheTier:      cache.TierPlayback,
		Resource:       "player",
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil, nil
	}

	var state SpotifyPlaybackState
	if err := json.Unmarshal(resp.Body, &state); err != nil {
		return nil, fmt.Errorf("%w: failed to decode player state: %v", shared.ErrAPIRequest, err)
	}
	return &state, nil
}
