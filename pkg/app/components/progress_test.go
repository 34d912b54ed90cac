package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/kindlize/pkg/services"
)

func TestNewProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(80)

	if tracker == nil {
		t.Fatal("Expected tracker to be created")
	}
	if tracker.width != 80 {
		t.Errorf("Expected width 80, got %d", tracker.width)
	}
	if tracker.HasActive() {
		t.Error("Expected no active jobs")
	}
	if tracker.View() != "" {
		t.Error("Expected empty view")
	}
}

func TestProgressTracker_Update(t *testing.T) {
	tracker := NewProgressTracker(40)

	tracker.Update(services.ConversionProgress{JobID: "job-1", Title: "chapter1", Status: services.StatusUploading})
	if !tracker.HasActive() {
		t.Error("Expected tracker to have active jobs")
	}

	tracker.Update(services.ConversionProgress{JobID: "job-1", Title: "chapter1", Status: services.StatusEncoding, Poll: 3})
	if len(tracker.jobs) != 1 || len(tracker.order) != 1 {
		t.Errorf("Expected a single tracked job, got %d", len(tracker.jobs))
	}

	view := tracker.View()
	for _, want := range []string{"chapter1", "encoding (poll 3)", "█"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q, got:\n%s", want, view)
		}
	}
}

func TestProgressTracker_RemovesCompleted(t *testing.T) {
	tracker := NewProgressTracker(40)

	tracker.Update(services.ConversionProgress{JobID: "a", Status: services.StatusUploading})
	tracker.Update(services.ConversionProgress{JobID: "b", Status: services.StatusUploading})
	tracker.Update(services.ConversionProgress{JobID: "a", Status: services.StatusComplete})

	if len(tracker.jobs) != 1 {
		t.Errorf("Expected completed job to be removed, got %d jobs", len(tracker.jobs))
	}
	if len(tracker.order) != 1 || tracker.order[0] != "b" {
		t.Errorf("Expected order [b], got %v", tracker.order)
	}
}

func TestProgressTracker_KeepsFailed(t *testing.T) {
	tracker := NewProgressTracker(40)

	tracker.Update(services.ConversionProgress{
		JobID:  "a",
		Title:  "chapter1",
		Status: services.StatusFailed,
		Error:  errors.New("upload rejected"),
	})

	if tracker.HasActive() {
		t.Error("Failed job should not count as active")
	}
	if !strings.Contains(tracker.View(), "Error: upload rejected") {
		t.Error("Expected error in view")
	}

	tracker.Clear()
	if len(tracker.jobs) != 0 || len(tracker.order) != 0 {
		t.Error("Expected Clear to drop everything")
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		width   int
		filled  int
	}{
		{"empty", 0, 7, 14, 0},
		{"half", 1, 2, 10, 5},
		{"full", 7, 7, 14, 14},
		{"overflow", 9, 7, 14, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("filled = %d, want %d", got, tt.filled)
			}
		})
	}

	if renderProgressBar(1, 0, 10) != "" {
		t.Error("Expected empty bar for zero total")
	}
}
