package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/config"
)

type settingsField struct {
	key   string
	label string
	input textinput.Model
}

// SettingsScreen edits the values the desktop app used to keep in its
// settings modal.
type SettingsScreen struct {
	store   *config.Store
	fields  []settingsField
	focused int
	width   int
	height  int
}

var settingsLabels = []struct{ key, label string }{
	{config.KeyLibraryRoot, "Library folder"},
	{config.KeySMTPUsername, "SMTP username"},
	{config.KeySMTPPassword, "SMTP password"},
	{config.KeyEmail, "Send to (Kindle email)"},
	{config.KeySourceCharset, "Text encoding"},
	{config.KeyDevice, "Kindle device"},
}

func NewSettingsScreen(store *config.Store) *SettingsScreen {
	s := &SettingsScreen{store: store}
	for _, l := range settingsLabels {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 50
		ti.Prompt = ""
		if l.key == config.KeySMTPPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		s.fields = append(s.fields, settingsField{key: l.key, label: l.label, input: ti})
	}
	return s
}

// Init reloads the form from the store.
func (s *SettingsScreen) Init() tea.Cmd {
	for i := range s.fields {
		f := &s.fields[i]
		if f.key == config.KeySMTPPassword {
			f.input.SetValue("")
			f.input.Placeholder = "not set"
			if s.store.Display(f.key) != "" {
				f.input.Placeholder = "unchanged"
			}
			continue
		}
		f.input.SetValue(s.store.Display(f.key))
	}
	return s.focus(0)
}

func (s *SettingsScreen) focus(i int) tea.Cmd {
	s.fields[s.focused].input.Blur()
	s.focused = (i + len(s.fields)) % len(s.fields)
	return s.fields[s.focused].input.Focus()
}

// Values returns the edited form. An empty password means keep the
// stored one.
func (s *SettingsScreen) Values() map[string]string {
	values := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		v := strings.TrimSpace(f.input.Value())
		if f.key == config.KeySMTPPassword {
			if f.input.Value() == "" {
				continue
			}
			v = f.input.Value()
		}
		values[f.key] = v
	}
	return values
}

func (s *SettingsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "shift+tab":
			return s, s.focus(s.focused - 1)
		case "down", "tab":
			return s, s.focus(s.focused + 1)
		case "enter":
			if s.focused < len(s.fields)-1 {
				return s, s.focus(s.focused + 1)
			}
			return s, s.save
		case "ctrl+s":
			return s, s.save
		case "esc":
			return s, func() tea.Msg {
				return SwitchScreenMsg{Screen: "library"}
			}
		}
	}

	var cmd tea.Cmd
	s.fields[s.focused].input, cmd = s.fields[s.focused].input.Update(msg)
	return s, cmd
}

func (s *SettingsScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("⚙️  Settings"))
	b.WriteString("\n")

	for i, f := range s.fields {
		label := styles.MutedStyle.Render(f.label)
		box := styles.InputStyle
		if i == s.focused {
			label = styles.SelectedStyle.Render(f.label)
			box = styles.FocusedInputStyle
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(box.Render(f.input.View()))
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpStyle.Render("↑/↓: move • enter: next/save • ctrl+s: save • esc: back"))
	return b.String()
}

type settingsSavedMsg struct {
	err error
}

func (s *SettingsScreen) save() tea.Msg {
	if err := s.store.Update(s.Values()); err != nil {
		return settingsSavedMsg{err: fmt.Errorf("could not save settings: %w", err)}
	}
	return settingsSavedMsg{}
}
