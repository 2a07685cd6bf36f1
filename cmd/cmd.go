// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to configuration file",
	Value:   "config.toml",
}

// authCommand handles credential lifecycle operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Run the OAuth2 flow and store the credential",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "flow",
						Usage: "Authorization flow (pkce or client_credentials)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored credential",
				Flags:  []cli.Flag{configFlag},
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current credential state",
				Flags:  []cli.Flag{configFlag},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Force a token refresh",
				Flags:  []cli.Flag{configFlag},
				Action: r.AuthRefresh,
			},
		},
	}
}

// spotifyCommand handles typed Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	jsonFlags := []cli.Flag{
		configFlag,
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}

	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify API operations",
		Commands: []*cli.Command{
			{
				Name:   "profile",
				Usage:  "Show the authenticated user's profile",
				Flags:  jsonFlags,
				Action: r.SpotifyProfile,
			},
			{
				Name:  "track",
				Usage: "Fetch a track from the catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "market",
						Usage: "Market country code (e.g. US)",
					},
				}, jsonFlags...),
				Action: r.SpotifyTrack,
			},
			{
				Name:  "search",
				Usage: "Search the catalog for tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
				}, jsonFlags...),
				Action: r.SpotifySearch,
			},
			{
				Name:  "saved",
				Usage: "List the user's saved tracks",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.IntFlag{Name: "offset", Value: 0},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format (json, csv, md, text)",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write formatted output to a file",
					},
				}, jsonFlags...),
				Action: r.SpotifySaved,
			},
			{
				Name:  "save",
				Usage: "Save tracks to the user's library",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{
						Name:     "id",
						Usage:    "Track ID to save (repeatable)",
						Required: true,
					},
				}, jsonFlags...),
				Action: r.SpotifySave,
			},
			{
				Name:   "playlists",
				Usage:  "List the user's playlists",
				Flags:  jsonFlags,
				Action: r.SpotifyPlaylists,
			},
			{
				Name:   "releases",
				Usage:  "Show new album releases",
				Flags:  jsonFlags,
				Action: r.SpotifyReleases,
			},
			{
				Name:   "playing",
				Usage:  "Show the current playback state",
				Flags:  jsonFlags,
				Action: r.SpotifyPlaying,
			},
		},
	}
}

// apiCommand handles raw authenticated API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Raw authenticated API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authenticated GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Authenticated POST with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupDatabase,
			},
			{
				Name:   "scopes",
				Usage:  "List authorization scope categories",
				Action: r.SetupScopes,
			},
		},
	}
}

// cacheCommand inspects and clears the response cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Response cache operations",
		Commands: []*cli.Command{
			{
				Name:   "tiers",
				Usage:  "Show cache tier durations",
				Action: r.CacheTiers,
			},
			{
				Name:  "clear",
				Usage: "Drop cached responses",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "resource",
						Usage: "Only drop entries for this resource prefix",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
