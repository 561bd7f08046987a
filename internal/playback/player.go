// Package playback drives a slide in viewer context: click-through
// sequences, reveal and pan/zoom effects, undo of steps, quizzes and video
// overlay timings.
package playback

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/naveenspark/stepdeck/internal/anim"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/internal/platform/logger"
	"github.com/naveenspark/stepdeck/internal/quiz"
	"github.com/naveenspark/stepdeck/internal/scene"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// SpotlightFunc applies the spotlight feature to a clicked object.
type SpotlightFunc func(sc *scene.Scene, o *scene.Object)

// EmphasisSpotlight marks the object as the scene's emphasis so renderers
// dim everything around it.
func EmphasisSpotlight(sc *scene.Scene, o *scene.Object) {
	sc.SetEmphasis(o.ElementID)
}

// Nav is the state of the step controls.
type Nav struct {
	PrevEnabled bool
	NextEnabled bool
	Step        int // 1-based, 0 before the first step
	Total       int
}

// Label renders the step counter.
func (n Nav) Label() string {
	if n.Total == 0 {
		return "no steps"
	}
	return fmt.Sprintf("step %d/%d", n.Step, n.Total)
}

// Player is the viewer's interaction state machine. All methods run on
// the event loop.
type Player struct {
	log       *logger.Logger
	model     *document.Model
	ctrl      *scene.Controller
	sched     *anim.Scheduler
	mailer    quiz.Mailer
	rng       *rand.Rand
	spotlight SpotlightFunc

	session *quiz.Session
	pending int // cursor index applied when the quiz finishes, -2 for none

	overlays bool
	nav      Nav
}

// Option configures a Player.
type Option func(*Player)

// WithSpotlight replaces the spotlight behavior.
func WithSpotlight(fn SpotlightFunc) Option {
	return func(p *Player) { p.spotlight = fn }
}

// WithMailer sets the collaborator quizzes deliver reports through.
func WithMailer(m quiz.Mailer) Option {
	return func(p *Player) { p.mailer = m }
}

// WithRand fixes the quiz shuffling source.
func WithRand(r *rand.Rand) Option {
	return func(p *Player) { p.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Player) { p.log = l }
}

const noPending = -2

// New builds a player over a viewer model and registers it to set up
// every committed slide.
func New(model *document.Model, ctrl *scene.Controller, sched *anim.Scheduler, opts ...Option) *Player {
	p := &Player{model: model, ctrl: ctrl, sched: sched, pending: noPending}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	p.log = p.log.With("component", "playback")
	if p.spotlight == nil {
		p.spotlight = func(_ *scene.Scene, o *scene.Object) {
			p.log.Info("spotlight requested", "element", o.ElementID)
		}
	}
	ctrl.OnReady(p.ApplyInitialState)
	return p
}

func (p *Player) scene() *scene.Scene { return p.ctrl.Scene() }

// ApplyInitialState hides initially hidden elements, starts "always"
// animations and resets the cursor. It runs after each slide commit.
func (p *Player) ApplyInitialState(slide *domain.Slide) {
	p.sched.StopAll()
	p.session = nil
	p.pending = noPending
	p.model.ResetCursor()

	sc := p.scene()
	timed := map[string]bool{}
	if slide.Kind == domain.SlideVideo {
		for _, t := range slide.OverlayTimings {
			timed[t.ElementID] = true
		}
	}
	p.overlays = len(timed) > 0

	for _, el := range slide.Elements {
		if el.Hidden || timed[el.ID] {
			sc.SetVisible(el.ID, false)
			continue
		}
		if a := el.Style.Animation; a != nil && a.Trigger == domain.TriggerAlways {
			p.play(el.ID, a.Name)
		}
	}
	p.refreshNav()
}

func (p *Player) play(id, name string) {
	o := p.scene().Object(id)
	if o == nil {
		p.log.Warn("animation target missing", "element", id, "animation", name)
		return
	}
	if err := p.sched.Play(o, name); err != nil {
		p.log.Warn("animation failed", "element", id, "animation", name, "error", err)
	}
}

// Click handles a viewer click on an element. Elements without an on-click
// trigger ignore direct clicks. It reports whether a step was taken.
func (p *Player) Click(ctx context.Context, id string) bool {
	el := p.model.Element(id)
	if el == nil || !el.Interactions.Triggers.OnClick {
		return false
	}
	slide := p.model.CurrentSlide()
	return p.step(ctx, el, slide.SequenceIndex(id))
}

// ClickAt hit-tests a screen point and clicks the element under it.
func (p *Player) ClickAt(ctx context.Context, sx, sy float64) bool {
	o := p.scene().ObjectAt(sx, sy)
	if o == nil {
		return false
	}
	return p.Click(ctx, o.ElementID)
}

// step runs el's effects in order and moves the cursor to index, unless
// a quiz takes over. index -1 leaves the cursor alone.
func (p *Player) step(ctx context.Context, el *domain.Element, index int) bool {
	if p.model.Context() != document.Viewer || p.session != nil {
		return false
	}
	sc := p.scene()
	o := sc.Object(el.ID)
	if o == nil {
		p.log.Warn("click on element without scene object", "element", el.ID)
		return false
	}

	p.model.PushHistory(document.Action{
		Type:     document.ActionInteraction,
		TargetID: el.ID,
		Snapshot: document.Snapshot{Viewport: sc.Viewport(), Visibility: sc.Visibility()},
	})

	f := el.Interactions.Features
	if f.Reveal.Enabled {
		p.reveal(f.Reveal.Targets)
	}
	if f.Spotlight.Enabled {
		p.spotlight(sc, o)
	}
	if f.PanZoom.Enabled {
		vp := f.PanZoom.Viewport()
		err := p.sched.Tween(sc.ViewportTarget(), map[string]float64{
			anim.PropX:     vp.X,
			anim.PropY:     vp.Y,
			anim.PropScale: vp.Zoom,
		}, anim.DefaultTweenDuration)
		if err != nil {
			p.log.Warn("pan/zoom failed", "element", el.ID, "error", err)
		}
	}
	if a := el.Style.Animation; a != nil && a.Trigger == domain.TriggerOnClick {
		p.play(el.ID, a.Name)
	}

	if el.Interactions.HasQuiz() {
		s, err := quiz.Start(f.Quiz, el.ID, quiz.WithMailer(p.mailer), quiz.WithRand(p.rng), quiz.WithLogger(p.log))
		if err == nil {
			p.session = s
			p.pending = index
			p.refreshNav()
			return true
		}
		p.log.Warn("quiz not started", "element", el.ID, "error", err)
	}

	if index >= 0 {
		p.model.SetCursorIndex(index)
	}
	p.refreshNav()
	return true
}

func (p *Player) reveal(targets []string) {
	sc := p.scene()
	for _, id := range targets {
		o := sc.Object(id)
		if o == nil {
			p.log.Warn("reveal target missing", "element", id)
			continue
		}
		wasHidden := !o.Visible
		sc.SetVisible(id, true)
		if !wasHidden {
			continue
		}
		if el := p.model.Element(id); el != nil {
			if a := el.Style.Animation; a != nil && a.Trigger == domain.TriggerOnReveal {
				p.play(id, a.Name)
			}
		}
		p.startAlways(id)
	}
}

// startAlways starts id's "always" animation unless it is already running.
// Elements that begin hidden get it on their first reveal.
func (p *Player) startAlways(id string) {
	el := p.model.Element(id)
	if el == nil {
		return
	}
	a := el.Style.Animation
	if a == nil || a.Trigger != domain.TriggerAlways || p.sched.Running(id, a.Name) {
		return
	}
	p.play(id, a.Name)
}

// Next runs the next sequence entry as if it were clicked, whether or not
// it has an on-click trigger. Entries whose element is gone are skipped.
func (p *Player) Next(ctx context.Context) bool {
	if p.session != nil {
		return false
	}
	slide := p.model.CurrentSlide()
	if slide == nil {
		return false
	}
	for i := p.model.CursorIndex() + 1; i < len(slide.Sequence); i++ {
		id := slide.Sequence[i]
		el := p.model.Element(id)
		if el == nil || p.scene().Object(id) == nil {
			p.log.Warn("skipping orphaned sequence entry", "slide", slide.ID, "element", id, "index", i)
			continue
		}
		return p.step(ctx, el, i)
	}
	return false
}

// Prev undoes the newest step, restoring the viewport and every
// element's visibility.
func (p *Player) Prev() bool {
	if p.session != nil {
		return false
	}
	a, ok := p.model.PopHistory()
	if !ok {
		return false
	}
	sc := p.scene()
	p.sched.Stop(scene.ViewportID, anim.TweenName)
	sc.SetViewport(a.Snapshot.Viewport)
	sc.RestoreVisibility(a.Snapshot.Visibility)
	if sc.Emphasis() == a.TargetID {
		sc.SetEmphasis("")
	}
	p.model.SetCursorIndex(p.model.CursorIndex() - 1)
	p.refreshNav()
	return true
}

// Nav returns the step control state.
func (p *Player) Nav() Nav { return p.nav }

func (p *Player) refreshNav() {
	n := Nav{}
	if slide := p.model.CurrentSlide(); slide != nil {
		n.Total = len(slide.Sequence)
		n.NextEnabled = p.session == nil && p.model.CursorIndex() < n.Total-1
	}
	n.PrevEnabled = p.session == nil && p.model.HistoryLen() > 0
	n.Step = p.model.CursorIndex() + 1
	p.nav = n
}

// Quiz returns the running quiz session, or nil.
func (p *Player) Quiz() *quiz.Session { return p.session }

// QuizSubmit records the current answer.
func (p *Player) QuizSubmit(ctx context.Context) {
	if p.session == nil {
		return
	}
	p.session.Submit(ctx)
	p.resumeIfFinished()
}

// QuizContinue leaves feedback or results.
func (p *Player) QuizContinue(ctx context.Context) {
	if p.session == nil {
		return
	}
	p.session.Continue(ctx)
	p.resumeIfFinished()
}

// QuizPrev goes back one question.
func (p *Player) QuizPrev() bool {
	if p.session == nil {
		return false
	}
	return p.session.Prev()
}

// SubmitQuizEmail sends the results to a learner-supplied address.
func (p *Player) SubmitQuizEmail(ctx context.Context, address string) error {
	if p.session == nil {
		return fmt.Errorf("playback.SubmitQuizEmail: no quiz running")
	}
	return p.session.SubmitEmail(ctx, address)
}

func (p *Player) resumeIfFinished() {
	if p.session.State() != quiz.StateFinished {
		return
	}
	p.log.Debug("quiz done, resuming sequence", "element", p.session.Owner())
	p.session = nil
	if p.pending >= 0 {
		p.model.SetCursorIndex(p.pending)
	}
	p.pending = noPending
	p.refreshNav()
}

// PollingOverlays reports whether the slide has overlay timings that need
// SetVideoTime calls.
func (p *Player) PollingOverlays() bool { return p.overlays }

// SetVideoTime shows overlay elements whose window contains t and hides
// the rest, playing a timing's animation when its element appears.
func (p *Player) SetVideoTime(t float64) {
	if !p.overlays {
		return
	}
	slide := p.model.CurrentSlide()
	if slide == nil {
		return
	}
	sc := p.scene()
	// An element with several timings is shown if any window is active.
	shown := map[string]domain.OverlayTiming{}
	var order []string
	for _, ot := range slide.OverlayTimings {
		if _, seen := shown[ot.ElementID]; !seen {
			order = append(order, ot.ElementID)
		}
		if ot.Active(t) {
			shown[ot.ElementID] = ot
		} else if _, ok := shown[ot.ElementID]; !ok {
			shown[ot.ElementID] = domain.OverlayTiming{}
		}
	}
	for _, id := range order {
		o := sc.Object(id)
		if o == nil {
			continue
		}
		ot := shown[id]
		show := ot.ElementID != ""
		if show == o.Visible {
			continue
		}
		sc.SetVisible(id, show)
		if !show {
			continue
		}
		if ot.Animation != "" {
			p.play(id, ot.Animation)
		}
		p.startAlways(id)
	}
}

// Leave stops every animation and overlay poll of the current slide.
func (p *Player) Leave() {
	p.sched.StopAll()
	p.overlays = false
	p.session = nil
	p.pending = noPending
	p.scene().SetEmphasis("")
}
