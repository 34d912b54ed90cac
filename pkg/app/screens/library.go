package screens

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/kindlize/pkg/app/components"
	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/library"
)

// LibraryScreen lists the novel folders, newest first, with a keyword
// filter.
type LibraryScreen struct {
	scanner   *library.Scanner
	store     *config.Store
	novels    []data.Novel
	filter    textinput.Model
	novelList *components.NovelList
	root      string
	opener    Opener
	width     int
	height    int
	err       error
}

func NewLibraryScreen(scanner *library.Scanner, store *config.Store) *LibraryScreen {
	ti := textinput.New()
	ti.Placeholder = "Filter by keyword..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 100
	ti.Width = 40

	return &LibraryScreen{
		scanner:   scanner,
		store:     store,
		filter:    ti,
		novelList: components.NewNovelList(),
	}
}

func (s *LibraryScreen) Init() tea.Cmd {
	return s.loadLibrary
}

// Typing reports whether key presses go to the filter box.
func (s *LibraryScreen) Typing() bool {
	return s.filter.Focused()
}

func (s *LibraryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.novelList.Width = msg.Width - 4
		s.novelList.Height = msg.Height - 12

	case tea.KeyMsg:
		if s.filter.Focused() {
			switch msg.String() {
			case "esc", "enter":
				s.filter.Blur()
				return s, nil
			}
			var cmd tea.Cmd
			s.filter, cmd = s.filter.Update(msg)
			s.applyFilter()
			return s, cmd
		}

		switch msg.String() {
		case "up", "k":
			s.novelList.Prev()
		case "down", "j":
			s.novelList.Next()
		case "/":
			return s, s.filter.Focus()
		case "esc":
			s.filter.SetValue("")
			s.applyFilter()
		case "r":
			return s, s.loadLibrary
		case "o":
			if selected := s.novelList.Selected(); selected != nil && s.root != "" {
				return s, openFolder(s.opener, filepath.Join(s.root, selected.Folder))
			}
		case "enter":
			selected := s.novelList.Selected()
			if selected != nil {
				novel := *selected
				return s, func() tea.Msg {
					return SwitchScreenMsg{Screen: "items", Data: novel}
				}
			}
		}

	case libraryLoadedMsg:
		s.root = msg.root
		s.novels = msg.novels
		s.err = msg.err
		s.applyFilter()
	}

	return s, nil
}

func (s *LibraryScreen) applyFilter() {
	s.novelList.SetItems(library.Filter(s.novels, s.filter.Value()))
	if s.filter.Value() != "" {
		s.novelList.EmptyMessage = fmt.Sprintf("No novel matches %q", s.filter.Value())
	} else {
		s.novelList.EmptyMessage = "No novels found in " + s.root
	}
}

func (s *LibraryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("📚 Novels")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	}

	input := styles.InputStyle.Render(s.filter.View())
	if s.filter.Focused() {
		input = styles.FocusedInputStyle.Render(s.filter.View())
	}

	help := styles.HelpStyle.Render(
		"↑/k: up • ↓/j: down • enter: open • /: filter • esc: clear filter • r: refresh • tab: settings • q: quit",
	)

	return fmt.Sprintf("%s\n%s%s\n%s\n%s", header, errorMsg, input, s.novelList.View(), help)
}

// Messages
type libraryLoadedMsg struct {
	root   string
	novels []data.Novel
	err    error
}

// Commands
func (s *LibraryScreen) loadLibrary() tea.Msg {
	settings := s.store.Settings()
	if err := settings.RequireLibraryRoot(); err != nil {
		return libraryLoadedMsg{err: fmt.Errorf("%w, set it under Settings", err)}
	}

	novels := s.scanner.Novels(settings.LibraryRoot)
	library.SortNewestFirst(novels)
	return libraryLoadedMsg{root: settings.LibraryRoot, novels: novels}
}
