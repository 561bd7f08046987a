package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/stepdeck/pkg/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	quoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	cmdStyle    = lipgloss.NewStyle().Bold(true)
	descStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#D4A017"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
)

var emptyLibraryTips = [...]string{
	"Start with one slide and one idea. Reveal the rest a step at a time.",
	"A quiz at the end of a slide beats a paragraph at the top of one.",
	"Number your steps. Learners click through them in that order.",
	"Drop a screenshot in with I, then point at the part that matters.",
	"Overlays on a video slide appear at the second you choose.",
	"Keep each step to one click. Nobody reads a wall of arrows.",
}

var commands = []struct{ cmd, desc string }{
	{"stepdeck", "Open the project library (interactive TUI)"},
	{"stepdeck new [title]", "Create an empty project"},
	{"stepdeck list", "List projects, newest first"},
	{"stepdeck view <project>", "Play a project"},
	{"stepdeck edit <project>", "Open a project in the editor"},
	{"stepdeck export <project> [n] [out.png]", "Render slide n to PNG (--width PX, --open)"},
	{"stepdeck import-asset <project> <file>", "Upload an image for a project"},
	{"stepdeck assets [project]", "List a project's assets"},
	{"stepdeck delete <project>", "Delete a project and its assets"},
	{"stepdeck --version", "Show version"},
	{"stepdeck help", "You are here"},
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n",
		titleStyle.Render("S T E P D E C K"),
		quoteStyle.Render("Step-by-step training decks in your terminal."))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-40s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n\n", descStyle.Render("Settings: ~/.stepdeck/config.yaml or STEPDECK_* environment variables"))
}

func printEmptyLibrary(w io.Writer) {
	tip := emptyLibraryTips[rand.IntN(len(emptyLibraryTips))]
	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n\n",
		titleStyle.Render("No projects yet."),
		quoteStyle.Render(tip),
		descStyle.Render("To begin: stepdeck new \"My first deck\""))
}

// printProjects writes one row per project: id, title and age of the last
// change relative to now.
func printProjects(w io.Writer, list []domain.ProjectSummary, now time.Time) {
	fmt.Fprintf(w, "%s  %s  %s\n",
		headerStyle.Render(fmt.Sprintf("%-36s", "ID")),
		headerStyle.Render(fmt.Sprintf("%-32s", "TITLE")),
		headerStyle.Render("MODIFIED"))
	for _, p := range list {
		fmt.Fprintf(w, "%s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("%-36s", p.ID)),
			fmt.Sprintf("%-32s", clip(p.Title, 32)),
			descStyle.Render(age(now, p.LastModified)))
	}
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func age(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}
