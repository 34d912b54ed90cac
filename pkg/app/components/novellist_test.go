package components

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kerbaras/kindlize/pkg/data"
)

func novels(n int) []data.Novel {
	out := make([]data.Novel, n)
	for i := range out {
		out[i] = data.Novel{
			Title:     fmt.Sprintf("Novel %d", i+1),
			Folder:    fmt.Sprintf("novel-%d", i+1),
			CreatedAt: time.Date(2020, 1, i+1, 0, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestNewNovelList(t *testing.T) {
	list := NewNovelList()

	if list == nil {
		t.Fatal("Expected list to be created")
	}
	if len(list.Items) != 0 {
		t.Errorf("Expected empty items, got %d", len(list.Items))
	}
	if list.Selected() != nil {
		t.Error("Expected no selection on empty list")
	}
}

func TestNovelList_Navigation(t *testing.T) {
	list := NewNovelList()
	list.SetItems(novels(3))

	list.Next()
	if list.SelectedIndex != 1 {
		t.Errorf("Expected index 1, got %d", list.SelectedIndex)
	}

	list.Next()
	list.Next()
	if list.SelectedIndex != 0 {
		t.Errorf("Expected wrap to 0, got %d", list.SelectedIndex)
	}

	list.Prev()
	if list.SelectedIndex != 2 {
		t.Errorf("Expected wrap to 2, got %d", list.SelectedIndex)
	}

	if got := list.Selected(); got == nil || got.Title != "Novel 3" {
		t.Errorf("Selected() = %v, want Novel 3", got)
	}
}

func TestNovelList_SetItemsClampsSelection(t *testing.T) {
	list := NewNovelList()
	list.SetItems(novels(5))
	list.SelectedIndex = 4

	list.SetItems(novels(2))
	if list.SelectedIndex != 1 {
		t.Errorf("Expected index clamped to 1, got %d", list.SelectedIndex)
	}

	list.SetItems(nil)
	if list.SelectedIndex != 0 {
		t.Errorf("Expected index 0 on empty list, got %d", list.SelectedIndex)
	}
	list.Next()
	list.Prev()
}

func TestNovelList_View(t *testing.T) {
	list := NewNovelList()
	list.EmptyMessage = "Nothing here"
	if !strings.Contains(list.View(), "Nothing here") {
		t.Error("Expected empty message in view")
	}

	items := novels(2)
	items[1].CoverPath = "/x/cover.jpg"
	list.SetItems(items)
	view := list.View()
	for _, want := range []string{"Novel 1", "Novel 2", "2020-01-01", "cover.jpg", "no cover"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestNovelList_VisibleRange(t *testing.T) {
	list := NewNovelList()
	list.Height = 12 // three cards
	list.SetItems(novels(10))

	start, end := list.visibleRange()
	if start != 0 || end != 3 {
		t.Errorf("visibleRange() = (%d, %d), want (0, 3)", start, end)
	}

	list.SelectedIndex = 9
	start, end = list.visibleRange()
	if start != 7 || end != 10 {
		t.Errorf("visibleRange() = (%d, %d), want (7, 10)", start, end)
	}
	if !strings.Contains(list.View(), "Showing 8-10 of 10 novels") {
		t.Error("Expected paging footer")
	}
}
