package screens

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/skratchdot/open-golang/open"
)

// Opener reveals a folder in the desktop file manager.
type Opener func(path string) error

// DefaultOpener hands the path to the platform's open command.
var DefaultOpener Opener = open.Start

type folderOpenedMsg struct {
	path string
	err  error
}

func openFolder(opener Opener, path string) tea.Cmd {
	if opener == nil {
		opener = DefaultOpener
	}
	return func() tea.Msg {
		return folderOpenedMsg{path: path, err: opener(path)}
	}
}
