package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/stepdeck/internal/scene"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// frameReadyMsg carries a prepared slide back to the event loop, where it
// is committed.
type frameReadyMsg struct {
	frame *scene.Frame
	err   error
}

// prepareSlideCmd resolves a slide's assets off the event loop.
func prepareSlideCmd(ctrl *scene.Controller, slide *domain.Slide) tea.Cmd {
	return func() tea.Msg {
		f, err := ctrl.Prepare(context.Background(), slide)
		return frameReadyMsg{frame: f, err: err}
	}
}

// canvasSize fits a 16:9 grid into width x height cells. Terminal cells
// are about twice as tall as wide.
func canvasSize(width, height int) (cols, rows int) {
	cols = max(width-2, 16)
	rows = cols * domain.CanvasHeight / domain.CanvasWidth / 2
	if avail := height - 2; avail > 0 && rows > avail {
		rows = avail
		cols = rows * 2 * domain.CanvasWidth / domain.CanvasHeight
	}
	return max(cols, 16), max(rows, 4)
}

var (
	canvasBorder   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#343c4a"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2dd4bf")).Bold(true)
	objectStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0c4d0"))
	shadedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#404858"))
)

// renderCanvas draws the grid inside a border. Cells owned by highlight
// are accented; when dimOthers is set the rest of the slide is shaded.
func renderCanvas(g *scene.Grid, highlight string, dimOthers bool) string {
	lines := make([]string, g.Rows)
	for r := 0; r < g.Rows; r++ {
		var b strings.Builder
		start := 0
		for c := 1; c <= g.Cols; c++ {
			if c < g.Cols && g.Owner[r][c] == g.Owner[r][start] {
				continue
			}
			run := string(g.Runes[r][start:c])
			owner := g.Owner[r][start]
			switch {
			case highlight != "" && owner == highlight:
				b.WriteString(highlightStyle.Render(run))
			case dimOthers && highlight != "":
				b.WriteString(shadedStyle.Render(run))
			case owner != "":
				b.WriteString(objectStyle.Render(run))
			default:
				b.WriteString(run)
			}
			start = c
		}
		lines[r] = b.String()
	}
	return canvasBorder.Render(strings.Join(lines, "\n"))
}

// cellAt maps a mouse position relative to the canvas's top-left border
// corner to a grid cell.
func cellAt(g *scene.Grid, x, y int) (col, row int, ok bool) {
	col, row = x-1, y-1
	if g == nil || col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}
