package domain

// Interactions configures what happens when an element is clicked.
type Interactions struct {
	Triggers Triggers `json:"triggers"`
	Features Features `json:"features"`
}

// Triggers holds the element's own click behavior.
type Triggers struct {
	OnClick bool `json:"onClick,omitempty"`
}

// Features are the effects a click applies, in a fixed order.
type Features struct {
	Reveal    Reveal    `json:"reveal"`
	Spotlight Spotlight `json:"spotlight"`
	PanZoom   PanZoom   `json:"panZoom"`
	Quiz      Quiz      `json:"quiz"`
}

// Reveal shows other elements of the same slide.
type Reveal struct {
	Enabled bool     `json:"enabled,omitempty"`
	Targets []string `json:"targets,omitempty"`
}

// Spotlight dims everything except the clicked element.
type Spotlight struct {
	Enabled bool `json:"enabled,omitempty"`
}

// PanZoom moves the viewport to a target transform.
type PanZoom struct {
	Enabled bool    `json:"enabled,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Zoom    float64 `json:"zoom,omitempty"`
}

// Viewport returns the target transform, treating a zero zoom as 1.
func (p PanZoom) Viewport() Viewport {
	z := p.Zoom
	if z <= 0 {
		z = 1
	}
	return Viewport{X: p.X, Y: p.Y, Zoom: z}
}

// IsZero reports whether no trigger or feature is configured.
func (in Interactions) IsZero() bool {
	f := in.Features
	return !in.Triggers.OnClick &&
		!f.Reveal.Enabled && len(f.Reveal.Targets) == 0 &&
		!f.Spotlight.Enabled &&
		!f.PanZoom.Enabled &&
		!f.Quiz.Enabled && len(f.Quiz.Questions) == 0
}

// Interactive reports whether a click on the element does anything.
func (in Interactions) Interactive() bool {
	f := in.Features
	return in.Triggers.OnClick || f.Reveal.Enabled || f.Spotlight.Enabled ||
		f.PanZoom.Enabled || f.Quiz.Enabled
}

// HasQuiz reports whether a click opens a quiz with at least one question.
func (in Interactions) HasQuiz() bool {
	return in.Features.Quiz.Enabled && len(in.Features.Quiz.Questions) > 0
}
