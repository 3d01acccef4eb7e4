package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/skyline-va/crewmap/internal/airport"
)

func TestRunOffline(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "kjfk", "EGLL", 4, "", true, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{"KJFK", "EGLL", "zoom: 4", "waypoints (5):"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "\n"); n != 10 {
		t.Errorf("output has %d lines, want 10:\n%s", n, got)
	}
}

func TestRunOfflineRemoteOnlyAirport(t *testing.T) {
	err := run(&bytes.Buffer{}, "KJFK", "KSNA", 0, "", true, false)
	if !errors.Is(err, airport.ErrFetchFailed) {
		t.Errorf("err = %v, want ErrFetchFailed", err)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	tests := []struct {
		from, to string
		points   int
	}{
		{"", "EGLL", 0},
		{"KJFK", "", 0},
		{"KJFK", "EGLL", -1},
		{"KJFK", "EGLL", 1001},
	}
	for _, tt := range tests {
		if err := run(&bytes.Buffer{}, tt.from, tt.to, tt.points, "", true, false); err == nil {
			t.Errorf("run(%q, %q, %d) = nil error", tt.from, tt.to, tt.points)
		}
	}
}
