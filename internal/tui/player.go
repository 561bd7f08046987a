package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/stepdeck/internal/anim"
	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/browser"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/playback"
	"github.com/naveenspark/stepdeck/internal/quiz"
	"github.com/naveenspark/stepdeck/internal/scene"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

const animFrameInterval = 33 * time.Millisecond

// animTickMsg drives the animation scheduler and the video clock.
type animTickMsg time.Time

func animTickCmd() tea.Cmd {
	return tea.Tick(animFrameInterval, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

type exportDoneMsg struct {
	path string
	err  error
}

// playerModel shows a project in viewer context.
type playerModel struct {
	log    *logger.Logger
	doc    *document.Model
	ctrl   *scene.Controller
	sched  *anim.Scheduler
	player *playback.Player

	projectID   string
	exportDir   string
	exportWidth int

	quiz      quizView
	loading   bool
	ticking   bool
	lastTick  time.Time
	videoTime float64
	playing   bool
	status    string
	failed    bool
	width     int
	height    int
	frame     int
}

type playerOptions struct {
	log         *logger.Logger
	cache       *assets.Cache
	mailer      quiz.Mailer
	exportDir   string
	exportWidth int
	now         func() time.Time
}

func newPlayerModel(projectID string, data []byte, o playerOptions) (playerModel, error) {
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	doc := document.New(o.log, document.Viewer)
	if err := doc.LoadDocument(data); err != nil {
		return playerModel{}, err
	}
	ctrl := scene.NewController(doc, o.cache, o.log)
	sched := anim.NewScheduler(o.log, o.now)
	p := playback.New(doc, ctrl, sched,
		playback.WithSpotlight(playback.EmphasisSpotlight),
		playback.WithMailer(o.mailer),
		playback.WithLogger(o.log),
	)
	return playerModel{
		log:         o.log,
		doc:         doc,
		ctrl:        ctrl,
		sched:       sched,
		player:      p,
		projectID:   projectID,
		exportDir:   o.exportDir,
		exportWidth: o.exportWidth,
		loading:     true,
		lastTick:    o.now(),
	}, nil
}

func (m playerModel) Init() tea.Cmd {
	slide := m.doc.CurrentSlide()
	if slide == nil {
		return nil
	}
	return prepareSlideCmd(m.ctrl, slide)
}

func (m playerModel) Update(msg tea.Msg) (playerModel, tea.Cmd) {
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
			m.status, m.failed = "slide failed to load: "+msg.err.Error(), true
			return m, nil
		}
		if err := m.ctrl.Commit(msg.frame); err != nil {
			return m, nil
		}
		m.videoTime, m.playing = 0, m.player.PollingOverlays()
		m.player.SetVideoTime(0)
		if msg.frame.Failures > 0 {
			m.status, m.failed = fmt.Sprintf("%d element(s) could not be loaded", msg.frame.Failures), true
		}
		return m.ensureTicking()

	case animTickMsg:
		now := time.Time(msg)
		if m.playing {
			m.videoTime += now.Sub(m.lastTick).Seconds()
			m.player.SetVideoTime(m.videoTime)
		}
		m.lastTick = now
		m.sched.Tick(now)
		if m.sched.Active() || m.playing {
			return m, animTickCmd()
		}
		m.ticking = false
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status, m.failed = "export failed: "+msg.err.Error(), true
		} else {
			m.status, m.failed = "exported "+msg.path, false
		}
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.status, m.failed = "copy failed: "+msg.err.Error(), true
		} else {
			m.status, m.failed = msg.what+" copied", false
		}
		return m, nil

	case tea.MouseMsg:
		if m.player.Quiz() != nil || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		// One title line sits above the canvas.
		grid := m.grid()
		col, row, ok := cellAt(grid, msg.X, msg.Y-1)
		if !ok {
			return m, nil
		}
		sx, sy := grid.CanvasPoint(col, row)
		m.player.ClickAt(context.Background(), sx, sy)
		return m.ensureTicking()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m playerModel) handleKey(msg tea.KeyMsg) (playerModel, tea.Cmd) {
	ctx := context.Background()
	key := msg.String()
	if m.player.Quiz() != nil {
		var cmd tea.Cmd
		m.quiz, cmd = m.quiz.update(ctx, m.player, key)
		next, tick := m.ensureTicking()
		return next, tea.Batch(cmd, tick)
	}
	m.status = ""
	switch key {
	case " ", "right", "l", "enter":
		m.player.Next(ctx)
	case "left", "h":
		m.player.Prev()
	case "]", "pgdown":
		return m.gotoSlide(1)
	case "[", "pgup":
		return m.gotoSlide(-1)
	case "p":
		if m.player.PollingOverlays() {
			m.playing = !m.playing
		}
	case "0":
		if m.player.PollingOverlays() {
			m.videoTime = 0
			m.player.SetVideoTime(0)
		}
	case "x":
		return m, m.export(false)
	case "X":
		return m, m.export(true)
	}
	return m.ensureTicking()
}

// ensureTicking starts the frame clock when something needs animating
// and it is not already running.
func (m playerModel) ensureTicking() (playerModel, tea.Cmd) {
	if m.ticking || !(m.sched.Active() || m.playing) {
		return m, nil
	}
	m.ticking = true
	m.lastTick = time.Now()
	return m, animTickCmd()
}

func (m playerModel) gotoSlide(delta int) (playerModel, tea.Cmd) {
	p := m.doc.Project()
	i := m.doc.CurrentSlideIndex() + delta
	if p == nil || i < 0 || i >= len(p.Slides) {
		return m, nil
	}
	m.player.Leave()
	m.doc.SetCurrentSlide(p.Slides[i].ID)
	m.quiz = quizView{}
	m.playing = false
	m.loading = true
	return m, prepareSlideCmd(m.ctrl, p.Slides[i])
}

func (m playerModel) export(open bool) tea.Cmd {
	slide := m.doc.CurrentSlide()
	if slide == nil {
		return nil
	}
	dir, width := m.exportDir, m.exportWidth
	if dir == "" {
		dir = os.TempDir()
	}
	if width <= 0 {
		width = domain.CanvasWidth
	}
	path := filepath.Join(dir, scene.ExportFileName(m.title(), m.doc.CurrentSlideIndex()+1))
	img := m.ctrl.Scene().Render(width)
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportDoneMsg{err: err}
		}
		if err := scene.SaveImagePNG(path, img); err != nil {
			return exportDoneMsg{err: err}
		}
		if open {
			browser.Open(path) //nolint:errcheck // best-effort viewer open
		}
		return exportDoneMsg{path: path}
	}
}

func (m playerModel) title() string {
	p := m.doc.Project()
	if p == nil {
		return ""
	}
	return p.Title
}

func (m playerModel) grid() *scene.Grid {
	cols, rows := canvasSize(m.width, m.height-2)
	return m.ctrl.Scene().RenderGrid(cols, rows)
}

func (m playerModel) View() string {
	p := m.doc.Project()
	slide := m.doc.CurrentSlide()
	if p == nil || slide == nil {
		return dimStyle.Render("  this project has no slides")
	}

	nav := m.player.Nav()
	prev, next := dimStyle.Render("◀"), dimStyle.Render("▶")
	if nav.PrevEnabled {
		prev = accentStyle.Render("◀")
	}
	if nav.NextEnabled {
		next = accentStyle.Render("▶")
	}
	header := fmt.Sprintf("%s  %s  %s %s %s",
		selectedStyle.Render(truncStr(slide.Title, 40)),
		metaStyle.Render(fmt.Sprintf("slide %d/%d", m.doc.CurrentSlideIndex()+1, len(p.Slides))),
		prev, normalStyle.Render(nav.Label()), next,
	)
	if m.player.PollingOverlays() {
		state := "paused"
		if m.playing {
			state = "playing"
		}
		header += "  " + metaStyle.Render(fmt.Sprintf("video %.1fs %s", m.videoTime, state))
	}
	if m.loading {
		header += "  " + dimStyle.Render("loading...")
	}

	sc := m.ctrl.Scene()
	body := renderCanvas(m.grid(), sc.Emphasis(), sc.Emphasis() != "")
	if s := m.player.Quiz(); s != nil {
		body = m.quiz.view(s, m.frame)
	}

	out := header + "\n" + body
	if m.status != "" {
		style := okStyle
		if m.failed {
			style = warnStyle
		}
		out += "\n" + style.Render(m.status)
	}
	return out
}

func (m playerModel) helpKeys() string {
	if s := m.player.Quiz(); s != nil {
		return quizHelp(s)
	}
	keys := helpEntry("space", "next") + "  " + helpEntry("←", "back") + "  " + helpEntry("[/]", "slide") + "  " + helpEntry("x", "export")
	if m.player.PollingOverlays() {
		keys += "  " + helpEntry("p", "play/pause")
	}
	return keys + "  " + helpEntry("esc", "library")
}
