// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Dataset format: yolo, coco or pascal_voc (default from config)",
		},
		&cli.StringFlag{
			Name:  "frames",
			Usage: "Frames to export: all or annotated",
			Value: "all",
		},
		&cli.IntFlag{
			Name:    "quality",
			Aliases: []string{"q"},
			Usage:   "JPEG quality 1-100 (default from config)",
		},
	}
}

// annotateCommand opens the annotation workspace.
func annotateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "annotate",
		Aliases: []string{"a"},
		Usage:   "Draw bounding boxes on the frames of a project",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "project"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "frame",
				Usage: "Zero-based frame to open (default: last visited)",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "link",
				Usage: "Workspace link, e.g. http://host/annotate/{project}?frame=3",
			},
			&cli.BoolFlag{
				Name:  "auto-save",
				Usage: "Save after every change (default from config)",
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "Class given to new boxes (default from config)",
			},
			&cli.BoolFlag{
				Name:  "single",
				Usage: "Keep at most one box per frame",
			},
		},
		Action: r.Annotate,
	}
}

// annotationsCommand reads stored annotations without the TUI.
func annotationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "annotations",
		Usage: "Inspect stored annotations",
		Commands: []*cli.Command{
			{
				Name:  "dump",
				Usage: "Write the annotations of a project to a CSV, JSON, YAML or Markdown file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, json, yaml or md",
						Value:   "md",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: {project}_annotations.{ext})",
					},
					&cli.IntFlag{
						Name:  "from",
						Usage: "First frame to include",
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "to",
						Usage: "Last frame to include (default: last frame)",
						Value: -1,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent frame requests",
						Value: 4,
					},
				},
				Action: r.AnnotationsDump,
			},
			{
				Name:  "delete",
				Usage: "Delete one annotation of a frame by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "frame",
						Usage:    "Frame holding the annotation",
						Required: true,
					},
				},
				Action: r.AnnotationsDelete,
			},
		},
	}
}

// exportCommand estimates, runs and downloads dataset exports.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a project as a training dataset",
		Commands: []*cli.Command{
			{
				Name:  "estimate",
				Usage: "Show frame count and estimated archive size",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Flags:  append(exportFlags(), jsonFlags(true)...),
				Action: r.ExportEstimate,
			},
			{
				Name:  "run",
				Usage: "Start an export, wait for it and download the archive",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Flags: append(exportFlags(), &cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Archive path (default: {project}_{format}.zip)",
				}),
				Action: r.ExportRun,
			},
			{
				Name:  "ui",
				Usage: "Interactive export screen",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Flags: append(exportFlags(), &cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Archive path (default: {project}_{format}.zip)",
				}),
				Action: r.ExportUI,
			},
		},
	}
}

// uploadCommand creates projects from video files.
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a video and extract its frames into a new project",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Upload without prompts",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Project name (default: file name)",
					},
					&cli.FloatFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Seconds between extracted frames, 0.1-10 (default from config)",
					},
				},
				Action: r.UploadRun,
			},
			{
				Name:  "ui",
				Usage: "Interactive upload wizard",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.UploadUI,
			},
		},
	}
}

// statsCommand prints project progress.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show annotation progress of a project",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "project"},
		},
		Flags:  jsonFlags(true),
		Action: r.Stats,
	}
}

// projectsCommand lists the projects on the server.
func projectsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List projects on the server",
		Flags: append(jsonFlags(true),
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Order by name, date (newest first) or progress (most complete first)",
			},
		),
		Action: r.Projects,
		Commands: []*cli.Command{
			{
				Name:  "delete",
				Usage: "Delete a project with its frames and annotations",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Action: r.ProjectsDelete,
			},
		},
	}
}

// historyCommand shows the last frame visited per project.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently annotated projects",
		Flags: append(jsonFlags(true),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "forget",
				Usage: "Remove the history of a project",
			},
		),
		Action: r.History,
	}
}

// draftsCommand manages annotations whose save failed.
func draftsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "drafts",
		Usage: "Manage locally kept annotations that failed to save",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List drafts",
				Flags: append(jsonFlags(true), &cli.StringFlag{
					Name:    "project",
					Aliases: []string{"p"},
					Usage:   "Only drafts of this project",
				}),
				Action: r.DraftsList,
			},
			{
				Name:  "push",
				Usage: "Retry saving drafts to the server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Only drafts of this project",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent saves (max 10)",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Saves per second",
						Value: 5,
					},
				},
				Action: r.DraftsPush,
			},
			{
				Name:  "discard",
				Usage: "Delete the draft of a frame",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "project"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "frame",
						Usage:    "Frame of the draft",
						Required: true,
					},
				},
				Action: r.DraftsDiscard,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the annotation server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
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

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// devServerCommand serves the annotation API from memory.
func devServerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dev-server",
		Usage: "Run an in-memory annotation server for local use",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:5000",
			},
			&cli.StringSliceFlag{
				Name:  "seed",
				Usage: "Create a demo project with this name (repeatable)",
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: "Frames per seeded project",
				Value: 10,
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Require this bearer token",
			},
			&cli.FloatFlag{
				Name:  "export-step",
				Usage: "Percent an export advances per status request",
				Value: 25,
			},
			&cli.StringFlag{
				Name:  "fail-exports",
				Usage: "Fail every export with this message",
			},
		},
		Action: r.DevServer,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Check server access",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check that the server answers with the configured token",
				Action: r.AuthStatus,
			},
		},
	}
}
