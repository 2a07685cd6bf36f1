package services

import (
	"fmt"
	"slices"

	"github.com/desertthunder/muse/internal/shared"
)

// scopeCategories groups Spotify authorization scopes by feature area, so
// callers can request "library" or "playlists" instead of memorizing scope
// strings.
var scopeCategories = map[string][]string{
	"connect": {
		"user-read-playback-state",
		"user-modify-playback-state",
		"user-read-currently-playing",
	},
	"follow": {
		"user-follow-modify",
		"user-follow-read",
	},
	"history": {
		"user-read-playback-position",
		"user-top-read",
		"user-read-recently-played",
	},
	"images": {
		"ugc-image-upload",
	},
	"library": {
		"user-library-modify",
		"user-library-read",
	},
	"playback": {
		"app-remote-control",
		"streaming",
	},
	"playlists": {
		"playlist-read-private",
		"playlist-read-collaborative",
		"playlist-modify-private",
		"playlist-modify-public",
	},
	"users": {
		"user-read-email",
		"user-read-private",
	},
}

// ScopeCategories returns the recognized category names, sorted.
func ScopeCategories() []string {
	names := make([]string, 0, len(scopeCategories))
	for name := range scopeCategories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ScopesFor expands scope category names into the authorization scopes they
// cover. The category "all" expands to every known scope.
//
// Returns [shared.ErrInvalidArgument] for an unrecognized category.
func ScopesFor(categories ...string) ([]string, error) {
	var scopes []string
	for _, category := range categories {
		if category == "all" {
			for _, name := range ScopeCategories() {
				scopes = append(scopes, scopeCategories[name]...)
			}
			continue
		}

		expanded, ok := scopeCategories[category]
		if !ok {
			return nil, fmt.Errorf("%w: unknown scope category %q (known: %v)",
				shared.ErrInvalidArgument, category, ScopeCategories())
		}
		scopes = append(scopes, expanded...)
	}

	slices.Sort(scopes)
	return slices.Compact(scopes), nil
}
