// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/urfave/cli/v3"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "Account username",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			Sources:  cli.EnvVars("TODOX_PASSWORD"),
			Required: true,
		},
	}
}

func draftFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Aliases:  []string{"t"},
			Usage:    "Todo title",
			Required: required,
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Todo description",
		},
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id", UsageText: "todo id"}}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with default settings",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and session",
		Commands: []*cli.Command{
			{
				Name:   "register",
				Usage:  "Create an account",
				Flags:  credentialFlags(),
				Action: r.AuthRegister,
			},
			{
				Name:   "login",
				Usage:  "Log in and store the session token",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session token",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// todoCommand handles todo operations for the logged-in user
func todoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "todo",
		Aliases: []string{"todos", "t"},
		Usage:   "Manage your todos",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List todos, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "since",
						Usage: "Only todos created on or after this day (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "until",
						Usage: "Only todos created on or before this day (YYYY-MM-DD)",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Todos per page",
						Value: tasks.DefaultPerPage,
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Fetch from the server before listing",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TodoList,
			},
			{
				Name:   "add",
				Usage:  "Add a todo",
				Flags:  draftFlags(true),
				Action: r.TodoAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change a todo's title or description",
				Arguments: idArg(),
				Flags:     draftFlags(false),
				Action:    r.TodoEdit,
			},
			{
				Name:      "toggle",
				Aliases:   []string{"done"},
				Usage:     "Flip a todo between completed and pending",
				Arguments: idArg(),
				Action:    r.TodoToggle,
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a todo",
				Arguments: idArg(),
				Action:    r.TodoRemove,
			},
			{
				Name:  "export",
				Usage: "Export todos to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt); repeatable",
						Value:   []string{formatter.FormatJSON},
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: todox_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Fetch from the server before exporting",
						Value: true,
					},
				},
				Action: r.TodoExport,
			},
		},
	}
}

// cacheCommand handles the local todo cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the local todo cache",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show what is cached for the current user",
				Action: r.CacheStatus,
			},
			{
				Name:   "clear",
				Usage:  "Drop the current user's cached todos",
				Action: r.CacheClear,
			},
		},
	}
}

func pathArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "path"}}
}

func dataFlag() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "JSON body to send",
			Required: true,
		},
	}
}

// apiCommand handles direct, authenticated API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls with the session token attached",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the response body",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: pathArg(),
				Flags:     dataFlag(),
				Action:    r.APIPost,
			},
			{
				Name:      "put",
				Usage:     "Direct PUT with JSON body",
				Arguments: pathArg(),
				Flags:     dataFlag(),
				Action:    r.APIPut,
			},
			{
				Name:      "patch",
				Usage:     "Direct PATCH with JSON body",
				Arguments: pathArg(),
				Flags:     dataFlag(),
				Action:    r.APIPatch,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE, prints the response body",
				Arguments: pathArg(),
				Action:    r.APIDelete,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing todos interactively.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse, toggle and delete todos interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/todox-tui.log",
			},
		},
		Action: r.TUI,
	}
}
