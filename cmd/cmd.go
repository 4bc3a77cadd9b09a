// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func usernameArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "username", UsageText: "MustApp username"}}
}

func updateFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "update",
		Aliases: []string{"u"},
		Usage:   "Skip the cache and fetch fresh data",
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the snapshot database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// fetchCommand fetches a user's lists and caches them.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a user's lists, printing progress, and cache the result",
		Arguments: usernameArg(),
		Flags: []cli.Flag{
			updateFlag(),
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
		},
		Action: r.Fetch,
	}
}

// listsCommand prints one list.
func listsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "lists",
		Aliases:   []string{"ls"},
		Usage:     "Print one of a user's lists",
		Arguments: usernameArg(),
		Flags: []cli.Flag{
			updateFlag(),
			&cli.StringFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List to print (want, watched, shows)",
				Value:   "want",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Case-insensitive title filter",
			},
			&cli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Usage:   "Column to sort by (title, release, modified, rating, review, episodes)",
			},
			&cli.BoolFlag{
				Name:  "desc",
				Usage: "Sort descending",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of rows (0 for all)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (table, csv, json, yaml)",
				Value: "table",
			},
		},
		Action: r.Lists,
	}
}

// exportCommand writes the spreadsheet export.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a user's lists to an .xlsx workbook",
		Arguments: usernameArg(),
		Flags: []cli.Flag{
			updateFlag(),
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (default: export.dir from config)",
			},
		},
		Action: r.Export,
	}
}

// cacheCommand manages cached snapshots.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear cached snapshots",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached snapshots",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:      "show",
				Usage:     "Show a cached snapshot's lists",
				Arguments: usernameArg(),
				Action:    r.CacheShow,
			},
			{
				Name:      "clear",
				Usage:     "Delete one user's snapshot, or every snapshot when no username is given",
				Arguments: usernameArg(),
				Action:    r.CacheClear,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing a user's lists.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Browse a user's lists in an interactive table",
		Arguments: usernameArg(),
		Flags: []cli.Flag{
			updateFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/mustx-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand starts the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web form, user JSON, workbook downloads and metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (default: server.host from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (default: server.port from config)",
			},
		},
		Action: r.Serve,
	}
}
