package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/data"
)

type NovelList struct {
	Items         []data.Novel
	SelectedIndex int
	Width         int
	Height        int
	EmptyMessage  string
}

func NewNovelList() *NovelList {
	return &NovelList{
		Items:        []data.Novel{},
		Width:        80,
		Height:       20,
		EmptyMessage: "No novels found",
	}
}

func (m *NovelList) SetItems(items []data.Novel) {
	m.Items = items
	if m.SelectedIndex >= len(items) && len(items) > 0 {
		m.SelectedIndex = len(items) - 1
	}
	if len(items) == 0 {
		m.SelectedIndex = 0
	}
}

func (m *NovelList) Next() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex++
	if m.SelectedIndex >= len(m.Items) {
		m.SelectedIndex = 0
	}
}

func (m *NovelList) Prev() {
	if len(m.Items) == 0 {
		return
	}
	m.SelectedIndex--
	if m.SelectedIndex < 0 {
		m.SelectedIndex = len(m.Items) - 1
	}
}

func (m *NovelList) Selected() *data.Novel {
	if len(m.Items) == 0 || m.SelectedIndex >= len(m.Items) {
		return nil
	}
	return &m.Items[m.SelectedIndex]
}

// visibleRange returns the window of cards that fits the height, keeping
// the selection in view. Each card takes four lines.
func (m *NovelList) visibleRange() (int, int) {
	per := m.Height / 4
	if per < 1 {
		per = 1
	}
	if len(m.Items) <= per {
		return 0, len(m.Items)
	}
	start := m.SelectedIndex - per/2
	if start < 0 {
		start = 0
	}
	end := start + per
	if end > len(m.Items) {
		end = len(m.Items)
		start = end - per
	}
	return start, end
}

func (m *NovelList) View() string {
	if len(m.Items) == 0 {
		emptyMsg := styles.MutedStyle.Render(m.EmptyMessage)
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	var b strings.Builder
	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		novel := m.Items[i]
		cardStyle := styles.CardStyle
		if i == m.SelectedIndex {
			cardStyle = styles.ActiveCardStyle
		}

		cover := "no cover"
		if novel.HasCover() {
			cover = "cover.jpg"
		}
		meta := styles.MutedStyle.Render(fmt.Sprintf("%s • %s", novel.CreatedAt.Format("2006-01-02"), cover))

		card := cardStyle.Width(m.Width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left, styles.TextStyle.Bold(true).Render(novel.Title), meta),
		)
		b.WriteString(card)
		b.WriteString("\n")
	}

	if start > 0 || end < len(m.Items) {
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("Showing %d-%d of %d novels", start+1, end, len(m.Items))))
	}
	return b.String()
}
