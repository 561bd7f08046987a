package anim

import (
	"sort"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func kf(at int, prop, value string) Keyframe {
	return Keyframe{Props: map[string]string{prop: value}, At: ms(at)}
}

var library = map[string]Definition{
	"wiggle": {
		Name: "wiggle",
		Loop: true,
		Keyframes: []Keyframe{
			kf(100, PropAngle, "+6"),
			kf(300, PropAngle, "-6"),
			kf(400, PropAngle, "+0"),
			kf(1200, PropAngle, "+0"),
		},
	},
	"shake": {
		Name: "shake",
		Loop: true,
		Keyframes: []Keyframe{
			kf(50, PropX, "+8"),
			kf(150, PropX, "-8"),
			kf(250, PropX, "+8"),
			kf(300, PropX, "+0"),
			kf(1000, PropX, "+0"),
		},
	},
	"float": {
		Name: "float",
		Loop: true,
		Keyframes: []Keyframe{
			kf(900, PropY, "-10"),
			kf(1800, PropY, "+0"),
		},
	},
	"pulse": {
		Name: "pulse",
		Loop: true,
		Keyframes: []Keyframe{
			kf(400, PropScale, "1.08"),
			kf(800, PropScale, "1"),
		},
	},
	"fadeIn": {
		Name:   "fadeIn",
		Easing: EaseInOut,
		Keyframes: []Keyframe{
			{Props: map[string]string{PropOpacity: "0"}},
			kf(600, PropOpacity, "1"),
		},
	},
	"fadeOut": {
		Name:   "fadeOut",
		Easing: EaseInOut,
		Keyframes: []Keyframe{
			kf(600, PropOpacity, "0"),
		},
	},
}

// Lookup returns the built-in definition with the given name.
func Lookup(name string) (Definition, bool) {
	d, ok := library[name]
	return d, ok
}

// Names lists the built-in animations, sorted.
func Names() []string {
	out := make([]string, 0, len(library))
	for name := range library {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
