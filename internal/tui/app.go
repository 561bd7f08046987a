// Package tui is the terminal front end: a project library, the step
// player and a keyboard-driven slide editor.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/quiz"
	"github.com/naveenspark/stepdeck/internal/store"
)

type view int

const (
	viewLibrary view = iota
	viewPlayer
	viewEditor
)

// headerLines is the chrome above the body: logo and status line.
const headerLines = 2

// projectLoadedMsg carries a fetched document to the player or editor.
type projectLoadedMsg struct {
	id   string
	data []byte
	edit bool
	err  error
}

// Deps are the collaborators the TUI runs against.
type Deps struct {
	Projects    store.ProjectStore
	Assets      store.AssetStore
	Mailer      quiz.Mailer
	Log         *logger.Logger
	Version     string
	ExportDir   string
	ExportWidth int

	// Open, when set, is loaded right after start: into the editor when
	// Edit is true, otherwise into the player.
	Open string
	Edit bool
}

// App is the root Bubbletea model.
type App struct {
	deps     Deps
	cache    *assets.Cache
	view     view
	library  libraryModel
	player   playerModel
	editor   editorModel
	helpOpen bool
	status   string
	width    int
	height   int
	frame    int // logo shimmer animation frame
}

// NewApp creates a new TUI application.
func NewApp(d Deps) App {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	var cache *assets.Cache
	if d.Assets != nil {
		cache = assets.New(d.Assets, d.Log)
	}
	return App{
		deps:    d,
		cache:   cache,
		library: newLibraryModel(d.Projects),
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.library.Init(), shimmerTickCmd()}
	if a.deps.Open != "" {
		cmds = append(cmds, a.loadProject(a.deps.Open, a.deps.Edit))
	}
	return tea.Batch(cmds...)
}

func (a App) loadProject(id string, edit bool) tea.Cmd {
	ps := a.deps.Projects
	return func() tea.Msg {
		data, err := ps.Load(context.Background(), id)
		return projectLoadedMsg{id: id, data: data, edit: edit, err: err}
	}
}

func (a App) bodySize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: max(a.height-headerLines-1, 0)}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		body := a.bodySize()
		a.library, _ = a.library.Update(body)
		a.player, _ = a.player.Update(body)
		a.editor, _ = a.editor.Update(body)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		a.library.frame = a.frame
		a.player.frame = a.frame
		a.editor.frame = a.frame
		return a, shimmerTickCmd()

	case openProjectMsg:
		a.status = "loading..."
		return a, a.loadProject(msg.id, msg.edit)

	case projectLoadedMsg:
		a.status = ""
		if msg.err != nil {
			a.status = "load failed: " + msg.err.Error()
			return a, nil
		}
		if msg.edit {
			return a.openEditor(msg.id, msg.data, "")
		}
		p, err := newPlayerModel(msg.id, msg.data, playerOptions{
			log:         a.deps.Log,
			cache:       a.cache,
			mailer:      a.deps.Mailer,
			exportDir:   a.deps.ExportDir,
			exportWidth: a.deps.ExportWidth,
		})
		if err != nil {
			a.status = "cannot open project: " + err.Error()
			return a, nil
		}
		a.player, _ = p.Update(a.bodySize())
		a.view = viewPlayer
		return a, a.player.Init()

	case newProjectMsg:
		return a.openEditor("", nil, msg.title)

	case editorClosedMsg:
		a.view = viewLibrary
		return a, a.library.load()

	case tea.MouseMsg:
		msg.Y -= headerLines
		switch a.view {
		case viewPlayer:
			var cmd tea.Cmd
			a.player, cmd = a.player.Update(msg)
			return a, cmd
		case viewEditor:
			var cmd tea.Cmd
			a.editor, cmd = a.editor.Update(msg)
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		if a.helpOpen {
			switch msg.String() {
			case "?", "esc", "q":
				a.helpOpen = false
			case "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.isEditing() {
			switch msg.String() {
			case "?":
				a.helpOpen = true
				return a, nil
			case "q":
				if a.view == viewLibrary {
					return a, tea.Quit
				}
			case "esc":
				if a.view == viewPlayer {
					a.player.player.Leave()
					a.view = viewLibrary
					return a, a.library.load()
				}
			}
		}
		a.status = ""
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLibrary:
		a.library, cmd = a.library.Update(msg)
	case viewPlayer:
		a.player, cmd = a.player.Update(msg)
	case viewEditor:
		a.editor, cmd = a.editor.Update(msg)
	}
	return a, cmd
}

func (a App) openEditor(id string, data []byte, title string) (tea.Model, tea.Cmd) {
	e, err := newEditorModel(id, data, title, editorOptions{
		log:      a.deps.Log,
		cache:    a.cache,
		projects: a.deps.Projects,
		assets:   a.deps.Assets,
	})
	if err != nil {
		a.status = "cannot edit project: " + err.Error()
		return a, nil
	}
	a.editor, _ = e.Update(a.bodySize())
	a.view = viewEditor
	return a, a.editor.Init()
}

// isEditing reports whether keys are captured by a text field, a prompt
// or a running quiz.
func (a App) isEditing() bool {
	switch a.view {
	case viewLibrary:
		return a.library.naming || a.library.confirming
	case viewPlayer:
		return a.player.player != nil && a.player.player.Quiz() != nil
	case viewEditor:
		return a.editor.capturing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	logoPad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", logoPad) + logo

	statusLine := a.status
	switch {
	case statusLine != "":
		statusLine = warnStyle.Render(statusLine)
	case a.view == viewPlayer:
		statusLine = metaStyle.Render("playing " + truncStr(a.player.title(), 40))
	case a.view == viewEditor:
		statusLine = metaStyle.Render("editing")
	case a.deps.Version != "":
		statusLine = metaStyle.Render(a.deps.Version)
	}
	statusPad := max((a.width-lipgloss.Width(statusLine))/2, 0)
	header += "\n" + strings.Repeat(" ", statusPad) + statusLine

	var body, help string
	switch a.view {
	case viewLibrary:
		body = a.library.View()
		help = a.library.helpKeys()
	case viewPlayer:
		body = a.player.View()
		help = a.player.helpKeys()
	case viewEditor:
		body = a.editor.View()
		help = a.editor.helpKeys()
	}
	if a.helpOpen {
		body = helpView()
		help = helpEntry("?", "close") + "  " + helpEntry("ctrl+c", "quit")
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-headerLines-1), "\n")
	return fmt.Sprintf("%s\n%s\n %s", header, body, help)
}
