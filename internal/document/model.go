package document

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// Context selects editor or viewer behavior.
type Context int

const (
	Editor Context = iota
	Viewer
)

func (c Context) String() string {
	if c == Viewer {
		return "viewer"
	}
	return "editor"
}

// Model owns the in-memory project and every mutation of it. It is not
// safe for concurrent use; all calls happen on the UI event loop.
type Model struct {
	log     *logger.Logger
	context Context
	now     func() time.Time

	project        *domain.Project
	currentSlideID string
	dirty          bool
	lastSaved      string
	lastSavedAt    time.Time

	cursor Cursor
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New returns a model holding no project. Call CreateProject or
// LoadDocument before mutating.
func New(log *logger.Logger, c Context, opts ...Option) *Model {
	if log == nil {
		log = logger.Nop()
	}
	m := &Model{
		log:     log.With("component", "document", "context", c.String()),
		context: c,
		now:     time.Now,
		cursor:  Cursor{Index: -1},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the model's editor/viewer mode.
func (m *Model) Context() Context { return m.context }

// Project returns the live project. Callers must mutate it only through
// the Model's methods.
func (m *Model) Project() *domain.Project { return m.project }

// CreateProject replaces the current project with a new one holding a
// single default slide. The new project is dirty.
func (m *Model) CreateProject(title string) *domain.Project {
	m.project = domain.NewProject(title, m.now())
	m.currentSlideID = m.project.Slides[0].ID
	m.lastSaved = ""
	m.lastSavedAt = time.Time{}
	m.dirty = true
	m.ResetCursor()
	return m.project
}

// LoadDocument parses a serialized project and replaces the current one.
// On failure the previous project stays in place. A project with no
// slides gets a default slide in the editor; the viewer leaves it empty.
func (m *Model) LoadDocument(data []byte) error {
	const op = "document.LoadDocument"

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return domain.Malformed(op, err)
	}
	raw, ok := shape["slides"]
	if !ok {
		return domain.Malformed(op, fmt.Errorf("missing slides"))
	}
	var slides []json.RawMessage
	if err := json.Unmarshal(raw, &slides); err != nil || slides == nil {
		return domain.Malformed(op, fmt.Errorf("slides is not an array"))
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Malformed(op, err)
	}
	p.Normalize()
	if len(p.Slides) == 0 && m.context == Editor {
		p.Slides = append(p.Slides, domain.NewSlide(domain.SlideImage, "Slide 1"))
	}

	m.project = &p
	m.currentSlideID = ""
	if len(p.Slides) > 0 {
		m.currentSlideID = p.Slides[0].ID
	}
	m.dirty = false
	m.lastSaved, _ = m.serialize() //nolint:errcheck
	m.lastSavedAt = p.ModifiedAt
	m.ResetCursor()
	m.log.Info("document loaded", "project", p.ID, "slides", len(p.Slides))
	return nil
}

// Serialize returns the deterministic JSON form of the project.
func (m *Model) Serialize() ([]byte, error) {
	if m.project == nil {
		return nil, fmt.Errorf("document.Serialize: no project")
	}
	data, err := json.Marshal(m.project)
	if err != nil {
		return nil, fmt.Errorf("document.Serialize: %w", err)
	}
	return data, nil
}

func (m *Model) serialize() (string, error) {
	data, err := m.Serialize()
	return string(data), err
}

// MarkSaved records a successful save.
func (m *Model) MarkSaved(id string, at time.Time) {
	if m.project == nil {
		return
	}
	m.project.ID = id
	m.project.ModifiedAt = at
	m.dirty = false
	m.lastSavedAt = at
	m.lastSaved, _ = m.serialize() //nolint:errcheck
}

// Dirty reports whether the project changed since it was created, loaded
// or saved.
func (m *Model) Dirty() bool { return m.dirty }

// LastSavedAt returns the time of the last save or load.
func (m *Model) LastSavedAt() time.Time { return m.lastSavedAt }

// HasUnsavedChanges compares the current serialization with the last
// saved one.
func (m *Model) HasUnsavedChanges() bool {
	if m.project == nil {
		return false
	}
	cur, err := m.serialize()
	if err != nil {
		return true
	}
	return cur != m.lastSaved
}

func (m *Model) touch() {
	m.dirty = true
}

// --- slides ---

// CurrentSlide returns the selected slide, or nil.
func (m *Model) CurrentSlide() *domain.Slide {
	if m.project == nil {
		return nil
	}
	return m.project.Slide(m.currentSlideID)
}

// CurrentSlideIndex returns the position of the selected slide, or -1.
func (m *Model) CurrentSlideIndex() int {
	if m.project == nil {
		return -1
	}
	return m.project.SlideIndex(m.currentSlideID)
}

// SetCurrentSlide selects a slide. Changing slides clears the playback
// cursor and its history.
func (m *Model) SetCurrentSlide(id string) bool {
	if m.project == nil || m.project.Slide(id) == nil {
		return false
	}
	if id != m.currentSlideID {
		m.currentSlideID = id
		m.ResetCursor()
	}
	return true
}

// AddSlide appends a new slide of the given kind after the current one.
func (m *Model) AddSlide(kind domain.SlideKind) *domain.Slide {
	if m.project == nil {
		return nil
	}
	s := domain.NewSlide(kind, fmt.Sprintf("Slide %d", len(m.project.Slides)+1))
	at := m.CurrentSlideIndex() + 1
	if at <= 0 {
		at = len(m.project.Slides)
	}
	m.project.Slides = slices.Insert(m.project.Slides, at, s)
	m.touch()
	return s
}

// DeleteSlide removes a slide. The last remaining slide cannot be
// deleted.
func (m *Model) DeleteSlide(id string) bool {
	if m.project == nil {
		return false
	}
	idx := m.project.SlideIndex(id)
	if idx < 0 {
		return false
	}
	if len(m.project.Slides) <= 1 {
		m.log.Warn("refusing to delete last slide", "slide", id)
		return false
	}
	m.project.Slides = slices.Delete(m.project.Slides, idx, idx+1)
	if id == m.currentSlideID {
		next := min(idx, len(m.project.Slides)-1)
		m.currentSlideID = m.project.Slides[next].ID
		m.ResetCursor()
	}
	m.touch()
	return true
}

// MoveSlide moves a slide to a new position, clamped to the valid range.
func (m *Model) MoveSlide(id string, to int) bool {
	if m.project == nil {
		return false
	}
	from := m.project.SlideIndex(id)
	if from < 0 {
		return false
	}
	to = max(0, min(to, len(m.project.Slides)-1))
	if from == to {
		return true
	}
	s := m.project.Slides[from]
	m.project.Slides = slices.Delete(m.project.Slides, from, from+1)
	m.project.Slides = slices.Insert(m.project.Slides, to, s)
	m.touch()
	return true
}

// UpdateSlideProperties deep-merges partial into the slide's JSON form.
// The slide id cannot change. Setting one background kind clears the
// other.
func (m *Model) UpdateSlideProperties(id string, partial map[string]any) bool {
	if m.project == nil {
		return false
	}
	idx := m.project.SlideIndex(id)
	if idx < 0 {
		return false
	}
	updated, err := mergeJSON(m.project.Slides[idx], partial)
	if err != nil {
		m.log.Warn("slide update rejected", "slide", id, "error", err)
		return false
	}
	updated.ID = id
	if bg, ok := partial["background"].(map[string]any); ok {
		switch {
		case nonEmpty(bg["assetId"]):
			updated.Background.Color = ""
		case nonEmpty(bg["color"]):
			updated.Background.AssetID = ""
			updated.Background.URL = ""
		}
	}
	updated.Normalize()
	*m.project.Slides[idx] = *updated
	m.touch()
	return true
}

// SetSlideBackground replaces the background outright.
func (m *Model) SetSlideBackground(id string, bg domain.Background) bool {
	s := m.slide(id)
	if s == nil {
		return false
	}
	if bg.AssetID != "" {
		bg.Color = ""
	}
	s.Background = bg
	m.touch()
	return true
}

// SetOverlayTimings replaces a slide's video overlay timings.
func (m *Model) SetOverlayTimings(slideID string, timings []domain.OverlayTiming) bool {
	s := m.slide(slideID)
	if s == nil {
		return false
	}
	s.OverlayTimings = append([]domain.OverlayTiming(nil), timings...)
	m.touch()
	return true
}

// OrphanedSequenceIDs lists sequence entries with no matching element.
func (m *Model) OrphanedSequenceIDs(slideID string) []string {
	s := m.slide(slideID)
	if s == nil {
		return nil
	}
	var out []string
	for _, id := range s.Sequence {
		if s.Element(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

func (m *Model) slide(id string) *domain.Slide {
	if m.project == nil {
		return nil
	}
	return m.project.Slide(id)
}

// --- elements (current slide) ---

// Element returns an element of the current slide, or nil.
func (m *Model) Element(id string) *domain.Element {
	s := m.CurrentSlide()
	if s == nil {
		return nil
	}
	return s.Element(id)
}

// AddElement appends el to the current slide, assigning an id when empty.
func (m *Model) AddElement(el *domain.Element) bool {
	s := m.CurrentSlide()
	if s == nil || el == nil || el.Shape == nil {
		return false
	}
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	if s.Element(el.ID) != nil {
		return false
	}
	el.Geometry = el.Geometry.Clamped()
	s.Elements = append(s.Elements, el)
	m.touch()
	return true
}

// UpdateElement deep-merges partial into the element's JSON form. Objects
// merge key by key; arrays and primitives replace.
func (m *Model) UpdateElement(id string, partial map[string]any) bool {
	s := m.CurrentSlide()
	if s == nil {
		return false
	}
	idx := slices.IndexFunc(s.Elements, func(e *domain.Element) bool { return e.ID == id })
	if idx < 0 {
		return false
	}
	updated, err := mergeJSON(s.Elements[idx], partial)
	if err != nil {
		m.log.Warn("element update rejected", "element", id, "error", err)
		return false
	}
	updated.ID = id
	updated.Geometry = updated.Geometry.Clamped()
	*s.Elements[idx] = *updated
	m.touch()
	return true
}

// SetGeometry writes geometry back from a scene edit.
func (m *Model) SetGeometry(id string, g domain.Geometry) bool {
	el := m.Element(id)
	if el == nil {
		return false
	}
	el.Geometry = g.Clamped()
	m.touch()
	return true
}

// RemoveElement deletes an element from the current slide and purges its
// id from the sequence and overlay timings. An id that only exists in the
// sequence is purged there without touching the element list.
func (m *Model) RemoveElement(id string) bool {
	s := m.CurrentSlide()
	if s == nil {
		return false
	}
	before := len(s.Elements) + len(s.Sequence) + len(s.OverlayTimings)
	s.Elements = slices.DeleteFunc(s.Elements, func(e *domain.Element) bool { return e.ID == id })
	s.Sequence = slices.DeleteFunc(s.Sequence, func(seqID string) bool { return seqID == id })
	s.OverlayTimings = slices.DeleteFunc(s.OverlayTimings, func(o domain.OverlayTiming) bool { return o.ElementID == id })
	if len(s.Elements)+len(s.Sequence)+len(s.OverlayTimings) == before {
		return false
	}
	m.touch()
	return true
}

// DuplicateElement copies an element with a new id, offset slightly.
func (m *Model) DuplicateElement(id string) *domain.Element {
	el := m.Element(id)
	if el == nil {
		return nil
	}
	cp := el.Clone()
	if cp == nil {
		return nil
	}
	cp.ID = uuid.NewString()
	cp.Geometry.X += 10
	cp.Geometry.Y += 10
	if cp.Nickname != "" {
		cp.Nickname += " copy"
	}
	if !m.AddElement(cp) {
		return nil
	}
	return cp
}

// SetSequence replaces the current slide's click order as given.
func (m *Model) SetSequence(ids []string) bool {
	s := m.CurrentSlide()
	if s == nil {
		return false
	}
	s.Sequence = append([]string{}, ids...)
	m.touch()
	return true
}

func nonEmpty(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
