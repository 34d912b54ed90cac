package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/kindlize/pkg/app/components"
	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/library"
	"github.com/kerbaras/kindlize/pkg/services"
)

type screenType int

const (
	libraryView screenType = iota
	settingsView
	itemsView
)

// Deps are the long-lived collaborators the screens share.
type Deps struct {
	Store   *config.Store
	Scanner *library.Scanner
	History services.History // nil disables history
	Opener  Opener           // nil means DefaultOpener
}

// SwitchScreenMsg asks the root screen to change view.
type SwitchScreenMsg struct {
	Screen string
	Data   interface{}
}

type notifyMsg struct {
	text string
}

// chanNotifier forwards controller notifications into the tea loop.
type chanNotifier chan string

func (c chanNotifier) Notify(msg string) {
	select {
	case c <- msg:
	default:
	}
}

type RootScreen struct {
	deps       Deps
	controller *services.Controller
	gate       *services.Gate
	notifier   chanNotifier
	stop       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc

	currentView screenType
	library     *LibraryScreen
	items       *ItemsScreen
	settings    *SettingsScreen

	notification *components.Notification
	progress     *components.ProgressTracker

	width  int
	height int
}

func NewRootScreen(deps Deps) *RootScreen {
	if deps.Scanner == nil {
		deps.Scanner = library.NewScanner()
	}
	ctx, cancel := context.WithCancel(context.Background())

	r := &RootScreen{
		deps:         deps,
		gate:         services.NewGate(),
		notifier:     make(chanNotifier, 16),
		ctx:          ctx,
		cancel:       cancel,
		currentView:  libraryView,
		notification: components.NewNotification(),
		progress:     components.NewProgressTracker(80),
	}
	r.rebuild()
	r.library = NewLibraryScreen(deps.Scanner, deps.Store)
	r.library.opener = deps.Opener
	r.settings = NewSettingsScreen(deps.Store)
	return r
}

// rebuild creates a controller from the current settings and restarts the
// progress listener on its converter. Jobs still running on the old
// controller keep their output paths claimed in the shared gate.
func (r *RootScreen) rebuild() {
	if r.stop != nil {
		close(r.stop)
	}
	r.stop = make(chan struct{})
	r.controller = services.NewControllerFromSettings(r.deps.Store.Settings(), r.deps.History, r.notifier)
	r.controller.Converter().UseGate(r.gate)
}

func (r *RootScreen) Init() tea.Cmd {
	return tea.Batch(
		r.library.Init(),
		r.listenForNotifications,
		r.listenForProgress(),
	)
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.progress.SetWidth(msg.Width - 4)
		var cmds []tea.Cmd
		_, c := r.library.Update(msg)
		cmds = append(cmds, c)
		_, c = r.settings.Update(msg)
		cmds = append(cmds, c)
		if r.items != nil {
			_, c = r.items.Update(msg)
			cmds = append(cmds, c)
		}
		return r, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			r.cancel()
			return r, tea.Quit
		case "q":
			if !r.typing() {
				r.cancel()
				return r, tea.Quit
			}
		case "tab":
			if r.currentView != itemsView && !r.typing() {
				if r.currentView == libraryView {
					return r.switchTo(SwitchScreenMsg{Screen: "settings"})
				}
				return r.switchTo(SwitchScreenMsg{Screen: "library"})
			}
		}

	case SwitchScreenMsg:
		return r.switchTo(msg)

	case notifyMsg:
		return r, tea.Batch(r.notification.Show(msg.text), r.listenForNotifications)

	case folderOpenedMsg:
		if msg.err != nil {
			return r, r.notification.Show("Could not open folder: " + msg.err.Error())
		}
		return r, r.notification.Show("Opened " + msg.path)

	case components.NotificationExpiredMsg:
		r.notification.Update(msg)
		return r, nil

	case progressMsg:
		if msg.stop != r.stop {
			// listener of a controller that has since been replaced
			return r, nil
		}
		r.progress.Update(msg.ConversionProgress)
		return r, r.listenForProgress()

	case settingsSavedMsg:
		if msg.err != nil {
			return r, r.notification.Show("Saving settings failed: " + msg.err.Error())
		}
		r.rebuild()
		r.currentView = libraryView
		return r, tea.Batch(
			r.notification.Show("Settings updated"),
			r.library.Init(),
			r.listenForProgress(),
		)
	}

	switch r.currentView {
	case libraryView:
		_, cmd = r.library.Update(msg)
	case settingsView:
		_, cmd = r.settings.Update(msg)
	case itemsView:
		if r.items != nil {
			_, cmd = r.items.Update(msg)
		}
	}
	return r, cmd
}

func (r *RootScreen) switchTo(msg SwitchScreenMsg) (tea.Model, tea.Cmd) {
	switch msg.Screen {
	case "library":
		r.currentView = libraryView
		return r, r.library.Init()
	case "settings":
		r.currentView = settingsView
		return r, r.settings.Init()
	case "items":
		novel, ok := msg.Data.(data.Novel)
		if !ok {
			return r, nil
		}
		r.items = NewItemsScreen(r.ctx, r.deps.Scanner, r.deps.Store.Settings().LibraryRoot, r.controller, novel)
		r.items.opener = r.deps.Opener
		r.items.width, r.items.height = r.width, r.height
		r.currentView = itemsView
		return r, r.items.Init()
	}
	return r, nil
}

func (r *RootScreen) typing() bool {
	switch r.currentView {
	case libraryView:
		return r.library.Typing()
	case settingsView:
		return true
	}
	return false
}

func (r *RootScreen) View() string {
	var content string
	switch r.currentView {
	case libraryView:
		content = r.library.View()
	case settingsView:
		content = r.settings.View()
	case itemsView:
		if r.items != nil {
			content = r.items.View()
		}
	}

	parts := []string{r.renderTabs(), content}
	if p := r.progress.View(); p != "" {
		parts = append(parts, p)
	}
	if n := r.notification.View(); n != "" {
		parts = append(parts, n)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (r *RootScreen) renderTabs() string {
	if r.currentView == itemsView {
		return ""
	}

	libraryTab := "Library"
	settingsTab := "Settings"

	if r.currentView == libraryView {
		libraryTab = styles.ActiveTabStyle.Render(libraryTab)
		settingsTab = styles.InactiveTabStyle.Render(settingsTab)
	} else {
		libraryTab = styles.InactiveTabStyle.Render(libraryTab)
		settingsTab = styles.ActiveTabStyle.Render(settingsTab)
	}

	return fmt.Sprintf("%s\n", lipgloss.JoinHorizontal(lipgloss.Top, libraryTab, settingsTab))
}

type progressMsg struct {
	services.ConversionProgress
	stop chan struct{}
}

func (r *RootScreen) listenForNotifications() tea.Msg {
	return notifyMsg{text: <-r.notifier}
}

func (r *RootScreen) listenForProgress() tea.Cmd {
	ch := r.controller.Converter().GetProgressChannel()
	stop := r.stop
	return func() tea.Msg {
		select {
		case p := <-ch:
			return progressMsg{ConversionProgress: p, stop: stop}
		case <-stop:
			return nil
		}
	}
}
