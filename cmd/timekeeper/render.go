package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pterm/pterm"

	"Mansoor88-6/timekeeper/internal/history"
	"Mansoor88-6/timekeeper/internal/insights"
	"Mansoor88-6/timekeeper/internal/livestatus"
	"Mansoor88-6/timekeeper/internal/models"
)

const clockLayout = "15:04"

func printTable(data [][]string) {
	table := pterm.DefaultTable
	table.Boxed = true

	str, err := table.WithHasHeader().WithData(data).Srender()
	if err != nil {
		pterm.Error.Printfln("Failed to output table: %s", err.Error())
		return
	}

	fmt.Fprintln(os.Stdout, str)
}

func printTimer(verb string, rec *models.TimerRecord) {
	state := "paused"
	if rec.IsRunning {
		state = "running"
	}
	if rec.Closed() {
		state = "closed"
	}

	pterm.Success.Printfln("%s %s (%s, %s) %s",
		verb,
		rec.Name,
		livestatus.FormatClock(rec.ElapsedAt(time.Now())),
		state,
		pterm.Gray(rec.ID.String()),
	)
}

func historyRows(res history.Result, loc *time.Location) [][]string {
	data := [][]string{{"Day", "Kind", "Name", "Start", "End", "Duration", "ID"}}

	for _, day := range res.Days {
		for i, e := range day.Entries {
			key := ""
			if i == 0 {
				key = day.Key
			}

			start := e.CreatedAt
			if e.Start != nil {
				start = *e.Start
			}
			end := "-"
			if e.End != nil {
				end = e.End.In(loc).Format(clockLayout)
			}

			data = append(data, []string{
				key,
				e.Kind.String(),
				e.Name,
				start.In(loc).Format(clockLayout),
				end,
				livestatus.FormatClock(e.Duration.Seconds()),
				e.ID,
			})
		}
	}

	return data
}

func insightRows(items []insights.TagInsight) [][]string {
	data := [][]string{{"Tag", "Time", "Share", "Sessions"}}

	for _, it := range items {
		sessions := fmt.Sprint(it.Sessions)
		if it.Kind == insights.KindUntracked {
			sessions = "-"
		}

		data = append(data, []string{
			it.Tag.Name,
			livestatus.FormatClock(it.TotalSeconds),
			fmt.Sprintf("%.1f%%", it.Percentage),
			sessions,
		})
	}

	return data
}

func insightBars(items []insights.TagInsight) []pterm.Bar {
	bars := make([]pterm.Bar, 0, len(items))
	for _, it := range items {
		bars = append(bars, pterm.Bar{
			Label: it.Tag.Name,
			Value: int(math.Round(it.Percentage)),
		})
	}
	return bars
}
