package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/naveenspark/stepdeck/internal/store/local"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

func openTestStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("local.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func seedProjects(t *testing.T, s *local.Store, titles ...string) []string {
	t.Helper()
	var ids []string
	for _, title := range titles {
		res, err := s.Save(context.Background(), []byte(`{"slides":[]}`), "", title)
		if err != nil {
			t.Fatalf("Save(%s): %v", title, err)
		}
		ids = append(ids, res.ID)
	}
	return ids
}

func loadedLibrary(t *testing.T, s *local.Store) libraryModel {
	t.Helper()
	m := newLibraryModel(s)
	m, _ = m.Update(tea80x24)
	m, _ = m.Update(m.Init()())
	return m
}

func TestLibraryListsProjects(t *testing.T) {
	s := openTestStore(t)
	seedProjects(t, s, "Onboarding", "Fire safety")
	m := loadedLibrary(t, s)

	if len(m.items) != 2 {
		t.Fatalf("items = %d, want 2", len(m.items))
	}
	view := m.View()
	for _, want := range []string{"Onboarding", "Fire safety", "PROJECTS"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLibraryEmpty(t *testing.T) {
	m := loadedLibrary(t, openTestStore(t))
	if !strings.Contains(m.View(), "no projects yet") {
		t.Errorf("empty library view:\n%s", m.View())
	}
	if _, cmd := m.Update(key("enter")); cmd != nil {
		t.Error("enter on an empty list produced a command")
	}
}

func TestLibraryCursorAndOpen(t *testing.T) {
	s := openTestStore(t)
	seedProjects(t, s, "One", "Two", "Three")
	m := loadedLibrary(t, s)

	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}
	m, _ = m.Update(key("k"))

	_, cmd := m.Update(key("enter"))
	open, ok := cmd().(openProjectMsg)
	if !ok || open.id != m.items[1].ID || open.edit {
		t.Errorf("enter produced %+v", open)
	}
	_, cmd = m.Update(key("e"))
	if open := cmd().(openProjectMsg); !open.edit {
		t.Error("e should open the editor")
	}
}

func TestLibraryDeleteConfirm(t *testing.T) {
	s := openTestStore(t)
	ids := seedProjects(t, s, "Doomed")
	m := loadedLibrary(t, s)

	m, _ = m.Update(key("d"))
	if !m.confirming || !strings.Contains(m.View(), "delete \"Doomed\"?") {
		t.Fatalf("delete prompt not shown:\n%s", m.View())
	}
	m, cmd := m.Update(key("n"))
	if cmd != nil || m.confirming {
		t.Fatal("n should cancel without a command")
	}

	m, _ = m.Update(key("d"))
	m, cmd = m.Update(key("y"))
	res, ok := cmd().(deleteResultMsg)
	if !ok || !res.deleted || res.err != nil {
		t.Fatalf("delete result = %+v", res)
	}
	m, cmd = m.Update(res)
	if m.status != "deleted" {
		t.Errorf("status = %q", m.status)
	}
	m, _ = m.Update(cmd())
	if len(m.items) != 0 {
		t.Errorf("items after delete = %d", len(m.items))
	}
	if _, err := s.Load(context.Background(), ids[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("project still loadable: %v", err)
	}
}

func TestLibraryNewProjectPrompt(t *testing.T) {
	m := loadedLibrary(t, openTestStore(t))
	m, _ = m.Update(key("n"))
	if !m.naming {
		t.Fatal("n did not open the title prompt")
	}
	for _, r := range "Drills" {
		m, _ = m.Update(key(string(r)))
	}
	m, cmd := m.Update(key("enter"))
	if m.naming {
		t.Error("prompt still open after enter")
	}
	if msg, ok := cmd().(newProjectMsg); !ok || msg.title != "Drills" {
		t.Errorf("enter produced %+v", msg)
	}

	m, _ = m.Update(key("n"))
	_, cmd = m.Update(key("enter"))
	if msg := cmd().(newProjectMsg); msg.title != "Untitled" {
		t.Errorf("blank title = %q, want Untitled", msg.title)
	}
}

func TestLibraryCopyID(t *testing.T) {
	s := openTestStore(t)
	seedProjects(t, s, "Copy me")
	m := loadedLibrary(t, s)
	if _, cmd := m.Update(key("c")); cmd == nil {
		t.Fatal("c produced no copy command")
	}
	m, _ = m.Update(copyResultMsg{what: "project id"})
	if m.status != "project id copied" {
		t.Errorf("status = %q", m.status)
	}
}
