// Package anim interpolates scene object properties over time.
package anim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Animatable property names.
const (
	PropX       = "x"
	PropY       = "y"
	PropAngle   = "angle"
	PropScale   = "scale"
	PropOpacity = "opacity"
)

// Target is anything with named numeric properties.
type Target interface {
	ID() string
	Get(prop string) float64
	Set(prop string, v float64)
}

// Keyframe is one stop of an animation. Props map a property to a target
// value: "+n" and "-n" are relative to the value when the animation
// started, "=n" and plain numbers are absolute. At is the cumulative offset from
// the start of the cycle.
type Keyframe struct {
	Props map[string]string
	At    time.Duration
}

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// EaseInOut is a smooth quadratic in-out curve.
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// EaseOutQuad decelerates toward the end.
func EaseOutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// Definition is a named keyframe animation.
type Definition struct {
	Name      string
	Keyframes []Keyframe
	Loop      bool
	Easing    Easing
}

// Validate checks that offsets never decrease.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("anim: definition has no name")
	}
	if len(d.Keyframes) == 0 {
		return fmt.Errorf("anim %s: no keyframes", d.Name)
	}
	var prev time.Duration
	for i, kf := range d.Keyframes {
		if kf.At < prev {
			return fmt.Errorf("anim %s: keyframe %d goes back in time", d.Name, i)
		}
		for prop, v := range kf.Props {
			if _, _, err := parseValue(v); err != nil {
				return fmt.Errorf("anim %s: keyframe %d %s: %w", d.Name, i, prop, err)
			}
		}
		prev = kf.At
	}
	if d.Loop && prev == 0 {
		return fmt.Errorf("anim %s: looping definition has zero length", d.Name)
	}
	return nil
}

// Duration is the length of one cycle.
func (d Definition) Duration() time.Duration {
	if len(d.Keyframes) == 0 {
		return 0
	}
	return d.Keyframes[len(d.Keyframes)-1].At
}

// parseValue reads "+n", "-n", "=n" or "n". relative is +1 or -1 for relative
// values and 0 for absolute ones.
func parseValue(s string) (v float64, relative int, err error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "+"):
		relative, s = 1, s[1:]
	case strings.HasPrefix(s, "-"):
		relative, s = -1, s[1:]
	case strings.HasPrefix(s, "="):
		s = s[1:]
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value %q", s)
	}
	return v, relative, nil
}

// resolve turns a keyframe value into an absolute target given the
// property's value at the start of the animation.
func resolve(s string, base float64) float64 {
	v, rel, err := parseValue(s)
	if err != nil {
		return base
	}
	switch rel {
	case 1:
		return base + v
	case -1:
		return base - v
	default:
		return v
	}
}
