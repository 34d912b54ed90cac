package app

import (
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/kindlize/pkg/app/screens"
	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/library"
)

// DebugEnv names the variable that turns on the debug log file.
const DebugEnv = "KINDLIZE_DEBUG"

type App struct {
	store *config.Store
}

func NewApp(store *config.Store) *App {
	return &App{store: store}
}

func (a *App) Run() error {
	// stdout belongs to the renderer while the TUI runs
	if path := os.Getenv(DebugEnv); path != "" {
		if path == "1" || path == "true" {
			path = "kindlize-debug.log"
		}
		f, err := tea.LogToFile(path, "debug")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	deps := screens.Deps{
		Store:   a.store,
		Scanner: library.NewScanner(),
	}
	repo, err := data.NewDuckDBRepository(a.store.Settings().HistoryDB)
	if err != nil {
		log.Printf("history disabled: %v", err)
	} else {
		defer repo.Close()
		deps.History = repo
	}

	model := screens.NewRootScreen(deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
