package main

import (
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"Mansoor88-6/timekeeper/internal/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the configuration file",
		Value:   config.DefaultPath(),
		EnvVars: []string{"TIMEKEEPER_CONFIG"},
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Override the configured log level (debug, info, warn, error)",
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	tagFlag = &cli.StringFlag{
		Name:    "tag",
		Aliases: []string{"t"},
		Usage:   "Tag id or name",
	}

	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Start date or time (e.g. '2024-03-10', 'yesterday 9am')",
	}

	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "End date or time (e.g. 'today', '2 hours ago')",
	}

	dayFlag = &cli.StringFlag{
		Name:    "day",
		Aliases: []string{"d"},
		Usage:   "Day to report on (default: today)",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:                 "timekeeper",
		Usage:                "Track time against tags and review where the day went",
		UsageText:            "timekeeper [OPTIONS] COMMAND [ARGS]",
		EnableBashCompletion: true,
		Flags:                []cli.Flag{configFlag, logLevelFlag, noColorFlag},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				disableStyling()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Start a timer for a tag, stopping the active one",
				ArgsUsage: "TAG",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "create", Usage: "Create the tag when it does not exist"},
				},
				Action: withRuntime(startAction),
			},
			{
				Name:   "pause",
				Usage:  "Pause the active timer",
				Action: withRuntime(pauseAction),
			},
			{
				Name:   "resume",
				Usage:  "Resume the paused timer",
				Action: withRuntime(resumeAction),
			},
			{
				Name:   "stop",
				Usage:  "Stop the active timer",
				Action: withRuntime(stopAction),
			},
			{
				Name:   "status",
				Usage:  "Print the active timer and today's total",
				Action: statusAction,
			},
			{
				Name:   "history",
				Usage:  "List entries grouped by day, newest first",
				Flags:  []cli.Flag{fromFlag, toFlag, tagFlag},
				Action: withRuntime(historyAction),
			},
			{
				Name:  "insights",
				Usage: "Show how a day was split between tags",
				Flags: []cli.Flag{
					dayFlag,
					&cli.BoolFlag{Name: "hide-untracked", Usage: "Leave untracked time out"},
					&cli.BoolFlag{Name: "exclude-sleep", Usage: "Leave imported sleep out"},
					&cli.BoolFlag{Name: "exclude-workouts", Usage: "Leave imported workouts out"},
				},
				Action: withRuntime(insightsAction),
			},
			{
				Name:  "tag",
				Usage: "Manage tags",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Create or update a tag",
						ArgsUsage: "NAME",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "color", Usage: "Hex color", Value: defaultTagColor},
							&cli.StringFlag{Name: "icon", Usage: "Icon name"},
							&cli.IntFlag{Name: "order", Usage: "Display order, lower first"},
						},
						Action: withRuntime(tagAddAction),
					},
					{
						Name:   "list",
						Usage:  "List tags in display order",
						Action: withRuntime(tagListAction),
					},
					{
						Name:      "rm",
						Usage:     "Delete a tag",
						ArgsUsage: "TAG",
						Action:    withRuntime(tagRemoveAction),
					},
				},
			},
			{
				Name:   "log",
				Usage:  "Add a finished entry for a past period",
				Flags:  []cli.Flag{tagFlag, fromFlag, toFlag},
				Action: withRuntime(logAction),
			},
			{
				Name:      "rm",
				Usage:     "Delete a timer entry",
				ArgsUsage: "TIMER_ID",
				Action:    withRuntime(removeAction),
			},
			{
				Name:      "import",
				Usage:     "Import sleep and workout samples from a JSON export",
				ArgsUsage: "FILE",
				Action:    withRuntime(importAction),
			},
			{
				Name:   "serve",
				Usage:  "Serve the local HTTP API",
				Action: withRuntime(serveAction),
			},
			{
				Name:   "tray",
				Usage:  "Show the active timer in the system tray",
				Action: withRuntime(trayAction),
			},
		},
	}
}

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
}
