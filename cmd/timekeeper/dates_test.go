package main

import (
	"testing"
	"time"
)

var now = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseDay(tt.in, now, time.UTC)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestDayRange(t *testing.T) {
	from, to, err := dayRange("", "", now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Fatalf("expected to %v, got %v", want, to)
	}
	if want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Fatalf("expected from %v, got %v", want, from)
	}

	if _, _, err := dayRange("2024-03-12", "2024-03-10", now, time.UTC); err == nil {
		t.Fatal("expected error for reversed range")
	}
}
