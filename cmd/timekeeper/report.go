package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"Mansoor88-6/timekeeper/internal/insights"
	"Mansoor88-6/timekeeper/internal/livestatus"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/report"
	"Mansoor88-6/timekeeper/internal/repository"
	"Mansoor88-6/timekeeper/internal/timeline"
)

func historyAction(c *cli.Context, rt *runtime) error {
	from, to, err := dayRange(c.String("from"), c.String("to"), time.Now(), rt.loc)
	if err != nil {
		return err
	}

	q := report.HistoryQuery{From: from, To: to}
	if ref := c.String("tag"); ref != "" {
		tag, err := repository.FindTag(c.Context, rt.storage, ref)
		if err != nil {
			return err
		}
		q.TagID = &tag.ID
	}

	res, err := rt.reports.History(c.Context, q)
	if err != nil {
		return err
	}

	if len(res.Days) == 0 {
		pterm.Info.Println("Nothing recorded in this period")
		return nil
	}

	printTable(historyRows(res, rt.loc))
	return nil
}

func insightsAction(c *cli.Context, rt *runtime) error {
	day, err := parseDay(c.String("day"), time.Now(), rt.loc)
	if err != nil {
		return err
	}

	q := rt.insightsDefaults()
	q.Day = day
	if c.Bool("hide-untracked") {
		q.ShowUntracked = false
	}
	if c.Bool("exclude-sleep") {
		q.IncludeSleep = false
	}
	if c.Bool("exclude-workouts") {
		q.IncludeWorkouts = false
	}

	items, err := rt.reports.Insights(c.Context, q)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Println(timeline.DayKey(day, rt.loc))

	if len(items) == 0 {
		pterm.Info.Println("Nothing recorded on this day")
		return nil
	}

	printTable(insightRows(items))
	pterm.Printfln("Tracked: %s", livestatus.FormatClock(insights.TotalTracked(items)))

	if err := pterm.DefaultBarChart.
		WithHorizontal().
		WithShowValue().
		WithBars(insightBars(items)).
		Render(); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// exportFile is the JSON layout accepted by the import command. It matches
// the bodies served by the health HTTP source.
type exportFile struct {
	Samples  []models.SleepSample   `json:"samples"`
	Workouts []models.WorkoutRecord `json:"workouts"`
}

func importAction(c *cli.Context, rt *runtime) error {
	sqlite, ok := rt.storage.(*repository.SQLite)
	if !ok {
		return errors.New("import requires the sqlite storage driver")
	}

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("%w: FILE", errMissingArg)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var export exportFile
	if err := json.NewDecoder(f).Decode(&export); err != nil {
		return fmt.Errorf("invalid export file %s: %w", path, err)
	}

	n, err := sqlite.ImportSamples(c.Context, export.Samples, export.Workouts)
	if err != nil {
		return err
	}
	if rt.cache != nil {
		rt.cache.Invalidate()
	}

	pterm.Success.Printfln("Imported %d samples", n)
	return nil
}
