package anim

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/naveenspark/stepdeck/internal/platform/logger"
)

// TweenName is the run name used by Tween. A new tween on the same target
// replaces the previous one.
const TweenName = "tween"

// DefaultTweenDuration is the pan/zoom transition length.
const DefaultTweenDuration = 800 * time.Millisecond

type runKey struct {
	target string
	name   string
}

type run struct {
	target   Target
	def      Definition
	base     map[string]float64
	from     map[string]float64
	seg      int
	segStart time.Time
}

// Scheduler drives keyframe animations. It keeps at most one run per
// (target, animation name) pair and is advanced by calling Tick. It is
// not safe for concurrent use.
type Scheduler struct {
	log   *logger.Logger
	now   func() time.Time
	runs  map[runKey]*run
	order []runKey
}

// NewScheduler returns an idle scheduler. now defaults to time.Now.
func NewScheduler(log *logger.Logger, now func() time.Time) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		log:  log.With("component", "anim"),
		now:  now,
		runs: make(map[runKey]*run),
	}
}

// Play starts a built-in animation on t, cancelling any run of the same
// name on t first.
func (s *Scheduler) Play(t Target, name string) error {
	def, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("anim.Play: unknown animation %q", name)
	}
	return s.PlayDefinition(t, def)
}

// PlayDefinition starts def on t.
func (s *Scheduler) PlayDefinition(t Target, def Definition) error {
	if t == nil {
		return fmt.Errorf("anim.Play %s: nil target", def.Name)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	s.Stop(t.ID(), def.Name)

	r := &run{
		target:   t,
		def:      def,
		base:     make(map[string]float64),
		from:     make(map[string]float64),
		segStart: s.now(),
	}
	for _, k := range def.Keyframes {
		for prop := range k.Props {
			if _, ok := r.base[prop]; !ok {
				r.base[prop] = t.Get(prop)
			}
		}
	}
	r.captureFrom()

	key := runKey{t.ID(), def.Name}
	s.runs[key] = r
	s.order = append(s.order, key)
	if !s.advance(r, r.segStart) {
		s.remove(key)
	}
	return nil
}

// Tween moves t's properties to the absolute values in to over d with an
// ease-in-out curve. It does not block.
func (s *Scheduler) Tween(t Target, to map[string]float64, d time.Duration) error {
	if d <= 0 {
		d = DefaultTweenDuration
	}
	props := make(map[string]string, len(to))
	for prop, v := range to {
		props[prop] = "=" + strconv.FormatFloat(v, 'f', -1, 64)
	}
	return s.PlayDefinition(t, Definition{
		Name:      TweenName,
		Easing:    EaseInOut,
		Keyframes: []Keyframe{{Props: props, At: d}},
	})
}

// Tick advances every run to now and drops finished one-shot runs. It
// returns the number of runs still active.
func (s *Scheduler) Tick(now time.Time) int {
	for _, key := range slices.Clone(s.order) {
		r, ok := s.runs[key]
		if !ok {
			continue
		}
		if !s.advance(r, now) {
			s.remove(key)
		}
	}
	return len(s.runs)
}

// advance applies r at time now and reports whether it is still running.
func (s *Scheduler) advance(r *run, now time.Time) bool {
	frames := r.def.Keyframes
	ease := r.def.Easing
	if ease == nil {
		ease = Linear
	}
	if r.def.Loop {
		r.skipCycles(now)
	}
	for range len(frames) + 1 {
		k := frames[r.seg]
		var prevAt time.Duration
		if r.seg > 0 {
			prevAt = frames[r.seg-1].At
		}
		dur := k.At - prevAt
		end := r.segStart.Add(dur)
		if now.Before(end) {
			p := ease(float64(now.Sub(r.segStart)) / float64(dur))
			for prop, v := range k.Props {
				to := resolve(v, r.base[prop])
				from := r.from[prop]
				r.target.Set(prop, from+(to-from)*p)
			}
			return true
		}
		for prop, v := range k.Props {
			r.target.Set(prop, resolve(v, r.base[prop]))
		}
		r.seg++
		r.segStart = end
		if r.seg == len(frames) {
			if !r.def.Loop {
				return false
			}
			r.seg = 0
		}
		r.captureFrom()
	}
	return true
}

// skipCycles jumps a looping run over every whole cycle that ended before
// now, leaving it at the start of the cycle that contains now.
func (r *run) skipCycles(now time.Time) {
	frames := r.def.Keyframes
	cycle := r.def.Duration()
	if cycle <= 0 {
		return
	}
	start := r.segStart
	if r.seg > 0 {
		start = start.Add(-frames[r.seg-1].At)
	}
	n := now.Sub(start) / cycle
	if n < 1 {
		return
	}
	for _, k := range frames[r.seg:] {
		for prop, v := range k.Props {
			r.target.Set(prop, resolve(v, r.base[prop]))
		}
	}
	r.seg = 0
	r.segStart = start.Add(n * cycle)
	r.captureFrom()
}

func (r *run) captureFrom() {
	for prop := range r.def.Keyframes[r.seg].Props {
		r.from[prop] = r.target.Get(prop)
	}
}

// Stop cancels one run and puts its properties back to their starting
// values.
func (s *Scheduler) Stop(targetID, name string) bool {
	key := runKey{targetID, name}
	r, ok := s.runs[key]
	if !ok {
		return false
	}
	if name != TweenName {
		for prop, v := range r.base {
			r.target.Set(prop, v)
		}
	}
	s.remove(key)
	return true
}

// StopTarget cancels every run on one target.
func (s *Scheduler) StopTarget(targetID string) int {
	n := 0
	for _, key := range slices.Clone(s.order) {
		if key.target == targetID && s.Stop(key.target, key.name) {
			n++
		}
	}
	return n
}

// StopAll cancels every run.
func (s *Scheduler) StopAll() {
	for _, key := range slices.Clone(s.order) {
		s.Stop(key.target, key.name)
	}
	if len(s.runs) > 0 {
		s.log.Warn("runs left after StopAll", "count", len(s.runs))
	}
}

// Running reports whether name is active on the target.
func (s *Scheduler) Running(targetID, name string) bool {
	_, ok := s.runs[runKey{targetID, name}]
	return ok
}

// Len returns the number of active runs.
func (s *Scheduler) Len() int { return len(s.runs) }

// Active reports whether anything needs ticking.
func (s *Scheduler) Active() bool { return len(s.runs) > 0 }

func (s *Scheduler) remove(key runKey) {
	delete(s.runs, key)
	s.order = slices.DeleteFunc(s.order, func(k runKey) bool { return k == key })
}
