package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"Mansoor88-6/timekeeper/internal/history"
	"Mansoor88-6/timekeeper/internal/insights"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/timeline"
)

func TestInsightRows(t *testing.T) {
	rows := insightRows([]insights.TagInsight{
		{Kind: insights.KindTag, Tag: models.Tag{Name: "Work"}, TotalSeconds: 3600, Percentage: 4.1666, Sessions: 2},
		{Kind: insights.KindUntracked, Tag: models.Tag{Name: "Untracked"}, TotalSeconds: 82800, Percentage: 95.8333},
	})

	want := [][]string{
		{"Tag", "Time", "Share", "Sessions"},
		{"Work", "01:00:00", "4.2%", "2"},
		{"Untracked", "23:00:00", "95.8%", "-"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestHistoryRowsShowDayOnce(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	entry := timeline.Entry{
		Kind:      timeline.KindTimer,
		ID:        "a",
		Name:      "Work",
		CreatedAt: start,
		Start:     &start,
		End:       &end,
		Duration:  90 * time.Minute,
	}
	open := entry
	open.ID = "b"
	open.End = nil

	rows := historyRows(history.Result{Days: []history.Day{{Key: "2024-03-10", Entries: []timeline.Entry{entry, open}}}}, time.UTC)

	want := [][]string{
		{"Day", "Kind", "Name", "Start", "End", "Duration", "ID"},
		{"2024-03-10", "timer", "Work", "09:00", "10:30", "01:30:00", "a"},
		{"", "timer", "Work", "09:00", "-", "01:30:00", "b"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}
