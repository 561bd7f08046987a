package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/stepdeck/internal/store"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

type projectsLoadedMsg struct {
	projects []domain.ProjectSummary
	err      error
}

// openProjectMsg asks the app to load a project into the player or editor.
type openProjectMsg struct {
	id   string
	edit bool
}

// newProjectMsg asks the app to open the editor on a fresh project.
type newProjectMsg struct {
	title string
}

type deleteResultMsg struct {
	id      string
	deleted bool
	err     error
}

type libraryModel struct {
	projects   store.ProjectStore
	items      []domain.ProjectSummary
	cursor     int
	loading    bool
	confirming bool   // waiting for y/n on delete
	naming     bool   // typing a title for a new project
	title      string // new project title input
	status     string
	err        error
	width      int
	height     int
	frame      int
}

func newLibraryModel(ps store.ProjectStore) libraryModel {
	return libraryModel{projects: ps, loading: true}
}

func (m libraryModel) load() tea.Cmd {
	ps := m.projects
	return func() tea.Msg {
		list, err := ps.List(context.Background())
		return projectsLoadedMsg{projects: list, err: err}
	}
}

func (m libraryModel) Init() tea.Cmd {
	return m.load()
}

func (m libraryModel) selected() (domain.ProjectSummary, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return domain.ProjectSummary{}, false
	}
	return m.items[m.cursor], true
}

func (m libraryModel) Update(msg tea.Msg) (libraryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		m.loading = false
		m.items = msg.projects
		m.err = msg.err
		if m.cursor >= len(m.items) {
			m.cursor = max(len(m.items)-1, 0)
		}
		return m, nil

	case deleteResultMsg:
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("delete failed: %v", msg.err)
		case !msg.deleted:
			m.status = "already gone"
		default:
			m.status = "deleted"
		}
		m.loading = true
		return m, m.load()

	case copyResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.status = msg.what + " copied"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		if m.naming {
			return m.updateNaming(msg)
		}
		if m.confirming {
			return m.updateConfirm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m libraryModel) updateNaming(msg tea.KeyMsg) (libraryModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(m.title)
		if title == "" {
			title = "Untitled"
		}
		m.naming, m.title = false, ""
		return m, func() tea.Msg { return newProjectMsg{title: title} }
	case "esc":
		m.naming, m.title = false, ""
	default:
		m.title = editRune(m.title, msg.String(), maxTitleLen)
	}
	return m, nil
}

func (m libraryModel) updateConfirm(msg tea.KeyMsg) (libraryModel, tea.Cmd) {
	m.confirming = false
	if msg.String() != "y" {
		return m, nil
	}
	p, ok := m.selected()
	if !ok {
		return m, nil
	}
	ps := m.projects
	return m, func() tea.Msg {
		deleted, err := ps.Delete(context.Background(), p.ID)
		return deleteResultMsg{id: p.ID, deleted: deleted, err: err}
	}
}

func (m libraryModel) updateList(msg tea.KeyMsg) (libraryModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(len(m.items)-1, 0)
	case "enter":
		if p, ok := m.selected(); ok {
			return m, func() tea.Msg { return openProjectMsg{id: p.ID} }
		}
	case "e":
		if p, ok := m.selected(); ok {
			return m, func() tea.Msg { return openProjectMsg{id: p.ID, edit: true} }
		}
	case "n":
		m.naming = true
		m.title = ""
	case "d":
		if _, ok := m.selected(); ok {
			m.confirming = true
		}
	case "c":
		if p, ok := m.selected(); ok {
			return m, copyCmd("project id", p.ID)
		}
	case "r":
		m.loading = true
		return m, m.load()
	}
	return m, nil
}

func (m libraryModel) View() string {
	var b strings.Builder
	b.WriteString(" " + selectedStyle.Render("PROJECTS"))
	if len(m.items) > 0 {
		b.WriteString("  " + metaStyle.Render(fmt.Sprintf("%d", len(m.items))))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.items) == 0:
		b.WriteString(dimStyle.Render("  loading...") + "\n")
	case m.err != nil:
		msg := m.err.Error()
		if errors.Is(m.err, domain.ErrPersistence) {
			msg = "storage unavailable: " + msg
		}
		b.WriteString(errStyle.Render("  "+msg) + "\n")
	case len(m.items) == 0:
		b.WriteString(dimStyle.Render("  no projects yet. press n to create one") + "\n")
	default:
		titleWidth := max(m.width-30, 12)
		for i, p := range m.items {
			title := p.Title
			if title == "" {
				title = "Untitled"
			}
			line := fmt.Sprintf("%-*s  %s", titleWidth, truncStr(title, titleWidth), formatTime(p.LastModified))
			if i == m.cursor {
				b.WriteString(selectedRowBg.Render(accentStyle.Render("> ")+selectedStyle.Render(line)) + "\n")
			} else {
				b.WriteString("  " + normalStyle.Render(line) + "\n")
			}
		}
	}

	if m.naming {
		b.WriteString("\n" + renderInput(" title: ", m.title, "Untitled", m.frame) + "\n")
	}
	if m.confirming {
		if p, ok := m.selected(); ok {
			b.WriteString("\n" + warnStyle.Render(fmt.Sprintf(" delete %q? y/n", p.Title)) + "\n")
		}
	}
	if m.status != "" {
		b.WriteString("\n " + metaStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m libraryModel) helpKeys() string {
	switch {
	case m.naming:
		return helpEntry("enter", "create") + "  " + helpEntry("esc", "cancel")
	case m.confirming:
		return helpEntry("y", "delete") + "  " + helpEntry("n", "keep")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "play") + "  " + helpEntry("e", "edit") + "  " +
		helpEntry("n", "new") + "  " + helpEntry("d", "delete") + "  " + helpEntry("c", "copy id") + "  " +
		helpEntry("?", "help") + "  " + helpEntry("q", "quit")
}
