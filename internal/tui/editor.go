package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/scene"
	"github.com/naveenspark/stepdeck/internal/store"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

const (
	nudgeStep     = 10.0
	bigNudgeStep  = 50.0
	resizeFactor  = 1.1
	importedWidth = 320.0
)

// backgroundColors cycles with the b key.
var backgroundColors = []string{domain.DefaultBackground, "#0f172a", "#f1f5f9", "#fef3c7", "#dcfce7"}

type editorInput int

const (
	inputNone editorInput = iota
	inputText
	inputImport
	inputBackground
)

type savedMsg struct {
	res domain.SaveResult
	err error
}

type assetImportedMsg struct {
	ref        domain.AssetRef
	name       string
	width      int
	height     int
	background bool
	err        error
}

// editorClosedMsg returns the app to the library.
type editorClosedMsg struct{}

// editorModel edits a project in editor context.
type editorModel struct {
	log      *logger.Logger
	doc      *document.Model
	ctrl     *scene.Controller
	cache    *assets.Cache
	projects store.ProjectStore
	assets   store.AssetStore

	projectID  string
	selected   string
	input      editorInput
	text       string
	confirming bool // unsaved-changes prompt
	saving     bool
	bgIndex    int
	loading    bool
	status     string
	failed     bool
	width      int
	height     int
	frame      int
}

type editorOptions struct {
	log      *logger.Logger
	cache    *assets.Cache
	projects store.ProjectStore
	assets   store.AssetStore
}

// newEditorModel opens data for editing, or a new project titled title
// when data is nil.
func newEditorModel(projectID string, data []byte, title string, o editorOptions) (editorModel, error) {
	if o.log == nil {
		o.log = logger.Nop()
	}
	doc := document.New(o.log, document.Editor)
	if data == nil {
		doc.CreateProject(title)
	} else if err := doc.LoadDocument(data); err != nil {
		return editorModel{}, err
	}
	return editorModel{
		log:       o.log,
		doc:       doc,
		ctrl:      scene.NewController(doc, o.cache, o.log),
		cache:     o.cache,
		projects:  o.projects,
		assets:    o.assets,
		projectID: projectID,
		loading:   true,
	}, nil
}

func (m editorModel) Init() tea.Cmd {
	return prepareSlideCmd(m.ctrl, m.doc.CurrentSlide())
}

// capturing reports whether keys go to a text field or prompt.
func (m editorModel) capturing() bool {
	return m.input != inputNone || m.confirming
}

func (m editorModel) Update(msg tea.Msg) (editorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case frameReadyMsg:
		if errors.Is(msg.err, scene.ErrSuperseded) {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.setStatus("slide failed to load: "+msg.err.Error(), true)
			return m, nil
		}
		if err := m.ctrl.Commit(msg.frame); err == nil {
			m.selected = ""
			if msg.frame.Failures > 0 {
				m.setStatus(fmt.Sprintf("%d element(s) shown as placeholders", msg.frame.Failures), true)
			}
		}

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.confirming = false
			m.setStatus("save failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.projectID = msg.res.ID
		m.doc.MarkSaved(msg.res.ID, msg.res.LastModified)
		m.setStatus("saved", false)
		if m.confirming {
			m.confirming = false
			return m, closeEditorCmd
		}

	case assetImportedMsg:
		return m.placeImported(msg)

	case copyResultMsg:
		if msg.err != nil {
			m.setStatus("copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus(msg.what+" copied", false)
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft || m.capturing() {
			return m, nil
		}
		grid := m.grid()
		col, row, ok := cellAt(grid, msg.X, msg.Y-1)
		if !ok {
			return m, nil
		}
		m.selected = ""
		if o := m.ctrl.Scene().ObjectAt(grid.CanvasPoint(col, row)); o != nil {
			m.selected = o.ElementID
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func closeEditorCmd() tea.Msg { return editorClosedMsg{} }

func (m *editorModel) setStatus(s string, failed bool) {
	m.status, m.failed = s, failed
}

func (m editorModel) handleKey(msg tea.KeyMsg) (editorModel, tea.Cmd) {
	key := msg.String()
	if m.confirming {
		switch key {
		case "y":
			return m.save()
		case "n":
			m.confirming = false
			return m, closeEditorCmd
		case "esc":
			m.confirming = false
		}
		return m, nil
	}
	if m.input != inputNone {
		return m.updateInput(key)
	}

	m.status = ""
	ctx := context.Background()
	switch key {
	case "tab":
		m.selected = m.cycle(1)
	case "shift+tab":
		m.selected = m.cycle(-1)
	case "left", "h":
		m.nudge(-nudgeStep, 0)
	case "right", "l":
		m.nudge(nudgeStep, 0)
	case "up", "k":
		m.nudge(0, -nudgeStep)
	case "down", "j":
		m.nudge(0, nudgeStep)
	case "shift+left", "H":
		m.nudge(-bigNudgeStep, 0)
	case "shift+right", "L":
		m.nudge(bigNudgeStep, 0)
	case "shift+up", "K":
		m.nudge(0, -bigNudgeStep)
	case "shift+down", "J":
		m.nudge(0, bigNudgeStep)
	case "+", "=":
		m.resize(resizeFactor)
	case "-":
		m.resize(1 / resizeFactor)
	case "a":
		m.add(ctx, domain.Rectangle{}, "#60a0e0")
	case "o":
		m.add(ctx, domain.Ellipse{}, "#b080d0")
	case "t":
		m.add(ctx, domain.TextBox{Content: "Text", Font: domain.Font{Size: domain.DefaultFontSize, Color: "#1f2937"}}, "")
	case "i", "enter":
		if el := m.doc.Element(m.selected); el != nil {
			if tb, ok := el.Shape.(domain.TextBox); ok {
				m.input, m.text = inputText, tb.Content
			}
		}
	case "I":
		m.input, m.text = inputImport, ""
	case "B":
		m.input, m.text = inputBackground, ""
	case "b":
		m.bgIndex = (m.bgIndex + 1) % len(backgroundColors)
		m.ctrl.SetBackgroundColor(backgroundColors[m.bgIndex])
	case "D":
		if cp := m.doc.DuplicateElement(m.selected); cp != nil {
			m.ctrl.AddElement(ctx, cp) //nolint:errcheck // failures render as placeholders
			m.selected = cp.ID
		}
	case "x", "delete", "backspace":
		if m.selected != "" && m.doc.RemoveElement(m.selected) {
			m.ctrl.RemoveElement(m.selected)
			m.selected = ""
		}
	case "s":
		m.toggleSequence()
	case "y":
		if el := m.doc.Element(m.selected); el != nil {
			data, err := json.MarshalIndent(el, "", "  ")
			if err != nil {
				m.setStatus("copy failed: "+err.Error(), true)
				return m, nil
			}
			return m, copyCmd("element", string(data))
		}
	case "N":
		if s := m.doc.AddSlide(domain.SlideImage); s != nil {
			m.doc.SetCurrentSlide(s.ID)
			m.loading = true
			return m, prepareSlideCmd(m.ctrl, s)
		}
	case "X":
		if s := m.doc.CurrentSlide(); s != nil && m.doc.DeleteSlide(s.ID) {
			m.loading = true
			return m, prepareSlideCmd(m.ctrl, m.doc.CurrentSlide())
		}
	case "]", "pgdown":
		return m.gotoSlide(1)
	case "[", "pgup":
		return m.gotoSlide(-1)
	case "ctrl+s":
		return m.save()
	case "esc":
		if m.doc.HasUnsavedChanges() {
			m.confirming = true
			return m, nil
		}
		return m, closeEditorCmd
	}
	return m, nil
}

func (m editorModel) updateInput(key string) (editorModel, tea.Cmd) {
	switch key {
	case "esc":
		m.input, m.text = inputNone, ""
		return m, nil
	case "enter":
	default:
		limit := maxPathLen
		if m.input == inputText {
			limit = maxTextLen
		}
		m.text = editRune(m.text, key, limit)
		return m, nil
	}

	mode, text := m.input, strings.TrimSpace(m.text)
	m.input, m.text = inputNone, ""
	switch mode {
	case inputText:
		ok := m.doc.UpdateElement(m.selected, map[string]any{"text": map[string]any{"content": text}})
		if ok {
			if err := m.ctrl.SyncModelToElement(context.Background(), m.selected); err != nil {
				m.setStatus(err.Error(), true)
			}
		}
	case inputImport, inputBackground:
		if text == "" {
			return m, nil
		}
		m.setStatus("uploading "+filepath.Base(text)+"...", false)
		return m, m.importAsset(text, mode == inputBackground)
	}
	return m, nil
}

// cycle returns the element id dir steps away from the selection.
func (m editorModel) cycle(dir int) string {
	s := m.doc.CurrentSlide()
	if s == nil || len(s.Elements) == 0 {
		return ""
	}
	i := slices.IndexFunc(s.Elements, func(e *domain.Element) bool { return e.ID == m.selected })
	if i < 0 {
		if dir < 0 {
			return s.Elements[len(s.Elements)-1].ID
		}
		return s.Elements[0].ID
	}
	n := len(s.Elements)
	return s.Elements[((i+dir)%n+n)%n].ID
}

func (m editorModel) nudge(dx, dy float64) {
	o := m.ctrl.Scene().Object(m.selected)
	if o == nil {
		return
	}
	o.X += dx
	o.Y += dy
	m.ctrl.SyncElementToModel(o)
}

func (m editorModel) resize(k float64) {
	o := m.ctrl.Scene().Object(m.selected)
	if o == nil {
		return
	}
	o.ScaleX *= k
	o.ScaleY *= k
	m.ctrl.SyncElementToModel(o)
}

func (m *editorModel) add(ctx context.Context, shape domain.Shape, fill string) {
	n := 0
	if s := m.doc.CurrentSlide(); s != nil {
		n = len(s.Elements)
	}
	offset := float64(n%8) * 20
	el := domain.NewElement(shape, domain.Geometry{X: 380 + offset, Y: 220 + offset, Width: 200, Height: 100})
	el.Style.Fill = fill
	if !m.doc.AddElement(el) {
		return
	}
	m.ctrl.AddElement(ctx, el) //nolint:errcheck // failures render as placeholders
	m.selected = el.ID
}

func (m *editorModel) toggleSequence() {
	s := m.doc.CurrentSlide()
	if s == nil || m.selected == "" {
		return
	}
	seq := slices.Clone(s.Sequence)
	if i := slices.Index(seq, m.selected); i >= 0 {
		seq = slices.Delete(seq, i, i+1)
		m.setStatus("removed from click sequence", false)
	} else {
		seq = append(seq, m.selected)
		m.setStatus(fmt.Sprintf("step %d in click sequence", len(seq)), false)
	}
	m.doc.SetSequence(seq)
}

func (m editorModel) gotoSlide(delta int) (editorModel, tea.Cmd) {
	p := m.doc.Project()
	i := m.doc.CurrentSlideIndex() + delta
	if p == nil || i < 0 || i >= len(p.Slides) {
		return m, nil
	}
	m.doc.SetCurrentSlide(p.Slides[i].ID)
	m.loading = true
	return m, prepareSlideCmd(m.ctrl, p.Slides[i])
}

// save serializes on the event loop and writes from a command. The model
// stays dirty until the store confirms.
func (m editorModel) save() (editorModel, tea.Cmd) {
	if m.saving || m.projects == nil {
		return m, nil
	}
	data, err := m.doc.Serialize()
	if err != nil {
		m.setStatus("save failed: "+err.Error(), true)
		return m, nil
	}
	m.saving = true
	m.setStatus("saving...", false)
	ps, id, title := m.projects, m.projectID, m.doc.Project().Title
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := ps.Save(ctx, data, id, title)
		return savedMsg{res: res, err: err}
	}
}

func (m editorModel) importAsset(path string, background bool) tea.Cmd {
	as, cache, projectID := m.assets, m.cache, m.projectID
	return func() tea.Msg {
		if as == nil {
			return assetImportedMsg{err: fmt.Errorf("no asset store configured")}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return assetImportedMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		name := filepath.Base(path)
		blob := domain.Blob{Data: data, MIMEType: store.MIMEFromName(name)}
		ref, err := as.UploadAsset(ctx, blob, name, projectID)
		if err != nil {
			return assetImportedMsg{err: err}
		}
		msg := assetImportedMsg{ref: ref, name: name, background: background}
		// Warm the cache so placing the element does not block the loop.
		if cache != nil {
			a, err := cache.Resolve(ctx, ref.AssetID)
			if err != nil {
				msg.err = err
				return msg
			}
			b := a.Image.Bounds()
			msg.width, msg.height = b.Dx(), b.Dy()
		}
		return msg
	}
}

func (m editorModel) placeImported(msg assetImportedMsg) (editorModel, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("import failed: "+msg.err.Error(), true)
		return m, nil
	}
	ctx := context.Background()
	if msg.background {
		if err := m.ctrl.SetBackgroundImage(ctx, msg.ref.AssetID, msg.ref.AssetURL); err != nil {
			m.setStatus("background failed: "+err.Error(), true)
			return m, nil
		}
		m.setStatus("background set to "+msg.name, false)
		return m, nil
	}
	w, h := importedWidth, importedWidth*0.75
	if msg.width > 0 && msg.height > 0 {
		h = importedWidth * float64(msg.height) / float64(msg.width)
	}
	el := domain.NewElement(domain.Image{AssetID: msg.ref.AssetID, URL: msg.ref.AssetURL},
		domain.Geometry{X: (domain.CanvasWidth - w) / 2, Y: (domain.CanvasHeight - h) / 2, Width: w, Height: h})
	el.Nickname = strings.TrimSuffix(msg.name, filepath.Ext(msg.name))
	if !m.doc.AddElement(el) {
		return m, nil
	}
	if err := m.ctrl.AddElement(ctx, el); err != nil {
		m.setStatus("image shown as placeholder: "+err.Error(), true)
	} else {
		m.setStatus("imported "+msg.name, false)
	}
	m.selected = el.ID
	return m, nil
}

func (m editorModel) grid() *scene.Grid {
	cols, rows := canvasSize(m.width, m.height-3)
	return m.ctrl.Scene().RenderGrid(cols, rows)
}

func (m editorModel) View() string {
	p := m.doc.Project()
	slide := m.doc.CurrentSlide()
	if p == nil || slide == nil {
		return dimStyle.Render("  nothing to edit")
	}

	title := selectedStyle.Render(truncStr(p.Title, 30))
	if m.doc.HasUnsavedChanges() {
		title += dirtyStyle.Render(" ●")
	}
	header := fmt.Sprintf("%s  %s  %s", title,
		metaStyle.Render(fmt.Sprintf("slide %d/%d", m.doc.CurrentSlideIndex()+1, len(p.Slides))),
		dimStyle.Render(truncStr(slide.Title, 30)))
	if m.loading {
		header += "  " + dimStyle.Render("loading...")
	}

	body := renderCanvas(m.grid(), m.selected, false)

	var info string
	if el := m.doc.Element(m.selected); el != nil {
		g := el.Geometry
		info = KindStyle(el.Kind()).Render(el.Label()) +
			metaStyle.Render(fmt.Sprintf("  %.0f,%.0f  %.0fx%.0f", g.X, g.Y, g.Width, g.Height))
		if i := slices.Index(slide.Sequence, el.ID); i >= 0 {
			info += "  " + accentStyle.Render(fmt.Sprintf("step %d", i+1))
		}
	} else {
		info = dimStyle.Render(fmt.Sprintf("%d elements  %d steps", len(slide.Elements), len(slide.Sequence)))
	}

	out := header + "\n" + body + "\n" + info
	switch {
	case m.confirming:
		out += "\n" + warnStyle.Render("unsaved changes. save before closing? y/n  esc cancels")
	case m.input == inputText:
		out += "\n" + renderInput("text: ", m.text, "", m.frame)
	case m.input == inputImport:
		out += "\n" + renderInput("image file: ", m.text, "/path/to/image.png", m.frame)
	case m.input == inputBackground:
		out += "\n" + renderInput("background file: ", m.text, "/path/to/image.png", m.frame)
	case m.status != "":
		style := okStyle
		if m.failed {
			style = errStyle
		}
		out += "\n" + style.Render(m.status)
	}
	return out
}

func (m editorModel) helpKeys() string {
	switch {
	case m.confirming:
		return helpEntry("y", "save") + "  " + helpEntry("n", "discard") + "  " + helpEntry("esc", "cancel")
	case m.input != inputNone:
		return helpEntry("enter", "ok") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("tab", "select") + "  " + helpEntry("hjkl", "move") + "  " + helpEntry("+/-", "size") + "  " +
		helpEntry("a/o/t", "add") + "  " + helpEntry("I", "image") + "  " + helpEntry("s", "step") + "  " +
		helpEntry("ctrl+s", "save") + "  " + helpEntry("?", "help") + "  " + helpEntry("esc", "close")
}
