package screens

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/kerbaras/kindlize/pkg/library"
	"github.com/kerbaras/kindlize/pkg/services"
)

// ItemsScreen lists the text files of one novel and converts the selected
// one.
type ItemsScreen struct {
	ctx          context.Context
	scanner      *library.Scanner
	controller   *services.Controller
	root         string
	opener       Opener
	novel        data.Novel
	items        []data.TextItem
	selectedItem int
	converting   map[string]bool
	width        int
	height       int
	err          error
}

func NewItemsScreen(ctx context.Context, scanner *library.Scanner, root string, controller *services.Controller, novel data.Novel) *ItemsScreen {
	return &ItemsScreen{
		ctx:        ctx,
		scanner:    scanner,
		controller: controller,
		root:       root,
		novel:      novel,
		converting: make(map[string]bool),
	}
}

func (s *ItemsScreen) Init() tea.Cmd {
	return s.loadItems
}

func (s *ItemsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selectedItem > 0 {
				s.selectedItem--
			}
		case "down", "j":
			if s.selectedItem < len(s.items)-1 {
				s.selectedItem++
			}
		case "r":
			return s, s.loadItems
		case "o":
			return s, openFolder(s.opener, filepath.Join(s.root, s.novel.Folder))
		case "enter":
			return s, s.convert(integrations.FormatMOBI)
		case "e":
			return s, s.convert(integrations.FormatEPUB)
		case "esc", "backspace":
			return s, func() tea.Msg {
				return SwitchScreenMsg{Screen: "library"}
			}
		}

	case itemsLoadedMsg:
		s.items = msg.items
		s.err = msg.err
		if s.selectedItem >= len(s.items) {
			s.selectedItem = 0
		}

	case conversionDoneMsg:
		delete(s.converting, msg.item)
		s.err = nil
		if msg.err != nil && !errors.Is(msg.err, integrations.ErrMailNotConfigured) {
			s.err = msg.err
		}
	}

	return s, nil
}

func (s *ItemsScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render(fmt.Sprintf("📖 %s", s.novel.Title))

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	}

	help := styles.HelpStyle.Render(
		"↑/k ↓/j: navigate • enter: convert to MOBI • e: build EPUB • o: show folder • r: refresh • esc: back • q: quit",
	)

	return fmt.Sprintf("%s\n%s%s\n%s", header, errorMsg, s.renderItems(), help)
}

func (s *ItemsScreen) renderItems() string {
	if len(s.items) == 0 {
		return styles.MutedStyle.Render("No text files in this folder")
	}

	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Items (%d total):", len(s.items))))
	b.WriteString("\n\n")

	// window of ten around the selection
	start, end := 0, len(s.items)
	if end > 10 {
		start = s.selectedItem - 5
		if start < 0 {
			start = 0
		}
		end = start + 10
		if end > len(s.items) {
			end = len(s.items)
			start = end - 10
		}
	}

	for i := start; i < end; i++ {
		item := s.items[i]

		statusIcon := "○"
		statusColor := styles.MutedStyle
		switch {
		case s.converting[item.FileName]:
			statusIcon = "◐"
			statusColor = styles.StatusWorking
		case s.converted(item):
			statusIcon = "●"
			statusColor = styles.StatusCompleted
		}

		line := fmt.Sprintf("%s %s", statusIcon, item.Title)
		if i == s.selectedItem {
			line = styles.SelectedStyle.Render("▸ " + line)
		} else {
			line = statusColor.Render("  " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(s.items) > 10 {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render(
			fmt.Sprintf("Showing %d-%d of %d items", start+1, end, len(s.items)),
		))
	}

	return b.String()
}

// converted reports whether a MOBI for the item already sits next to it.
func (s *ItemsScreen) converted(item data.TextItem) bool {
	req := s.controller.Request(s.novel, item, integrations.FormatMOBI)
	_, err := os.Stat(req.OutputPath)
	return err == nil
}

// Messages
type itemsLoadedMsg struct {
	items []data.TextItem
	err   error
}

type conversionDoneMsg struct {
	item   string
	result services.Result
	err    error
}

// Commands
func (s *ItemsScreen) loadItems() tea.Msg {
	items, err := s.scanner.Items(s.root, s.novel)
	return itemsLoadedMsg{items: items, err: err}
}

func (s *ItemsScreen) convert(format integrations.KindleFormat) tea.Cmd {
	if len(s.items) == 0 {
		return nil
	}
	item := s.items[s.selectedItem]
	if s.converting[item.FileName] {
		return nil
	}
	s.converting[item.FileName] = true

	ctx, controller, novel := s.ctx, s.controller, s.novel
	return func() tea.Msg {
		res, err := controller.ConvertAndSend(ctx, novel, item, services.ConvertOptions{
			Format: format,
			Email:  controller.MailConfigured(),
		})
		return conversionDoneMsg{item: item.FileName, result: res, err: err}
	}
}
