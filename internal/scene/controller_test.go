package scene

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/naveenspark/stepdeck/internal/assets"
	"github.com/naveenspark/stepdeck/internal/document"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

type stubAssets struct {
	mu      sync.Mutex
	blobs   map[string]domain.Blob
	gate    chan struct{}
	started chan string
}

func (s *stubAssets) ResolveAsset(ctx context.Context, id string) (domain.Blob, error) {
	if s.started != nil {
		s.started <- id
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return domain.Blob{}, domain.NotFound("stub.ResolveAsset", id)
	}
	return b, nil
}

func solidPNG(t *testing.T, c color.Color) domain.Blob {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return domain.Blob{Data: buf.Bytes(), MIMEType: "image/png"}
}

type fixture struct {
	model *document.Model
	src   *stubAssets
	ctrl  *Controller
}

func newFixture(t *testing.T, c document.Context) *fixture {
	t.Helper()
	m := document.New(nil, c)
	m.CreateProject("scene test")
	src := &stubAssets{blobs: map[string]domain.Blob{"red": solidPNG(t, color.RGBA{R: 255, A: 255})}}
	return &fixture{model: m, src: src, ctrl: NewController(m, assets.New(src, nil), nil)}
}

func (f *fixture) add(t *testing.T, shape domain.Shape, g domain.Geometry) *domain.Element {
	t.Helper()
	el := domain.NewElement(shape, g)
	if !f.model.AddElement(el) {
		t.Fatal("AddElement failed")
	}
	return el
}

func TestLoadSlideInstantiatesElements(t *testing.T) {
	f := newFixture(t, document.Editor)
	rect := f.add(t, domain.Rectangle{}, domain.Geometry{X: 10, Y: 10, Width: 50, Height: 50})
	img := f.add(t, domain.Image{AssetID: "red"}, domain.Geometry{X: 100, Y: 10, Width: 80, Height: 80})
	txt := f.add(t, domain.TextBox{Content: "Hello", Font: domain.Font{Size: 10}}, domain.Geometry{Width: 200, Height: 500})

	if err := f.ctrl.LoadSlide(context.Background(), f.model.CurrentSlide()); err != nil {
		t.Fatalf("LoadSlide: %v", err)
	}
	sc := f.ctrl.Scene()
	if sc.Len() != 3 {
		t.Fatalf("Len = %d, want 3", sc.Len())
	}
	objs := sc.Objects()
	if objs[0].ElementID != rect.ID || objs[1].ElementID != img.ID || objs[2].ElementID != txt.ID {
		t.Error("objects not in element order")
	}
	if sc.Object(img.ID).Image == nil {
		t.Error("image asset not resolved")
	}
	if h := sc.Object(txt.ID).Height; h != 12 {
		t.Errorf("text height = %v, want derived 12", h)
	}
}

func TestLoadSlidePlaceholders(t *testing.T) {
	f := newFixture(t, document.Editor)
	missing := f.add(t, domain.Image{AssetID: "gone"}, domain.Geometry{Width: 10, Height: 10})
	noAsset := f.add(t, domain.Image{}, domain.Geometry{Width: 10, Height: 10})
	ok := f.add(t, domain.Ellipse{}, domain.Geometry{Width: 10, Height: 10})

	frame, err := f.ctrl.Prepare(context.Background(), f.model.CurrentSlide())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if frame.Failures != 2 {
		t.Errorf("Failures = %d, want 2", frame.Failures)
	}
	if err := f.ctrl.Commit(frame); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sc := f.ctrl.Scene()
	for _, id := range []string{missing.ID, noAsset.ID} {
		o := sc.Object(id)
		if o == nil || !o.Placeholder || o.Fill != PlaceholderFill {
			t.Fatalf("object %s is not a placeholder: %+v", id, o)
		}
		if !strings.Contains(o.Text, id) {
			t.Errorf("placeholder text %q lacks element id", o.Text)
		}
	}
	if !strings.Contains(sc.Object(noAsset.ID).Error, ErrMissingAsset.Error()) {
		t.Errorf("missing-asset error = %q", sc.Object(noAsset.ID).Error)
	}
	if sc.Object(ok.ID).Placeholder {
		t.Error("healthy element became a placeholder")
	}
}

func TestLoadDocumentImageWithoutPayload(t *testing.T) {
	m := document.New(nil, document.Viewer)
	data := `{"title":"t","slides":[{"id":"s1","elements":[
		{"id":"box","type":"rectangle","geometry":{"width":20,"height":20}},
		{"id":"img","type":"image","geometry":{"x":40,"width":20,"height":20}}]}]}`
	if err := m.LoadDocument([]byte(data)); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	ctrl := NewController(m, nil, nil)
	if err := ctrl.LoadSlide(context.Background(), m.CurrentSlide()); err != nil {
		t.Fatalf("LoadSlide: %v", err)
	}
	sc := ctrl.Scene()
	if sc.Len() != 2 {
		t.Fatalf("Len = %d, want 2", sc.Len())
	}
	if sc.Object("box").Placeholder {
		t.Error("rectangle became a placeholder")
	}
	img := sc.Object("img")
	if img == nil || !img.Placeholder {
		t.Fatalf("image without payload is not a placeholder: %+v", img)
	}
	if !strings.Contains(img.Error, ErrMissingAsset.Error()) {
		t.Errorf("placeholder error = %q", img.Error)
	}
}

func TestBackgroundResolution(t *testing.T) {
	f := newFixture(t, document.Editor)
	s := f.model.CurrentSlide()

	f.model.SetSlideBackground(s.ID, domain.Background{AssetID: "red"})
	if err := f.ctrl.LoadSlide(context.Background(), s); err != nil {
		t.Fatalf("LoadSlide: %v", err)
	}
	if bg := f.ctrl.Scene().Background(); bg.Image == nil || bg.Color != "" {
		t.Errorf("background = %+v, want image", bg)
	}

	f.model.SetSlideBackground(s.ID, domain.Background{AssetID: "broken"})
	f.ctrl.LoadSlide(context.Background(), s) //nolint:errcheck
	bg := f.ctrl.Scene().Background()
	if bg.Color != domain.DefaultBackground || bg.Error == "" {
		t.Errorf("background = %+v, want white with error", bg)
	}
}

func TestBackgroundSwitchingIsExclusive(t *testing.T) {
	f := newFixture(t, document.Editor)
	if err := f.ctrl.SetBackgroundImage(context.Background(), "red", "file:///red.png"); err != nil {
		t.Fatalf("SetBackgroundImage: %v", err)
	}
	s := f.model.CurrentSlide()
	if s.Background.Color != "" || s.Background.AssetID != "red" {
		t.Errorf("model background = %+v", s.Background)
	}

	if !f.ctrl.SetBackgroundColor("#112233") {
		t.Fatal("SetBackgroundColor failed")
	}
	if s.Background.AssetID != "" || s.Background.URL != "" {
		t.Errorf("model background kept image: %+v", s.Background)
	}
	if bg := f.ctrl.Scene().Background(); bg.Image != nil || bg.Color != "#112233" {
		t.Errorf("scene background = %+v", bg)
	}
}

func TestPrepareSupersedes(t *testing.T) {
	f := newFixture(t, document.Editor)
	slow := f.model.CurrentSlide()
	f.add(t, domain.Image{AssetID: "red"}, domain.Geometry{Width: 10, Height: 10})
	fast := f.model.AddSlide(domain.SlideImage)

	f.src.gate = make(chan struct{})
	f.src.started = make(chan string, 1)

	type result struct {
		frame *Frame
		err   error
	}
	done := make(chan result, 1)
	go func() {
		fr, err := f.ctrl.Prepare(context.Background(), slow)
		done <- result{fr, err}
	}()
	<-f.src.started

	fastFrame, err := f.ctrl.Prepare(context.Background(), fast)
	if err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	first := <-done
	if !errors.Is(first.err, ErrSuperseded) {
		t.Errorf("first Prepare err = %v, want ErrSuperseded", first.err)
	}
	close(f.src.gate)

	if err := f.ctrl.Commit(fastFrame); err != nil {
		t.Errorf("Commit(latest): %v", err)
	}
}

func TestCommitRejectsStaleFrame(t *testing.T) {
	f := newFixture(t, document.Editor)
	s := f.model.CurrentSlide()
	older, _ := f.ctrl.Prepare(context.Background(), s) //nolint:errcheck
	newer, _ := f.ctrl.Prepare(context.Background(), s) //nolint:errcheck

	if err := f.ctrl.Commit(older); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Commit(older) = %v, want ErrSuperseded", err)
	}
	if err := f.ctrl.Commit(newer); err != nil {
		t.Errorf("Commit(newer) = %v", err)
	}
	if err := f.ctrl.Commit(nil); !errors.Is(err, ErrSuperseded) {
		t.Errorf("Commit(nil) = %v", err)
	}
}

func TestReadyHookViewerOnly(t *testing.T) {
	for _, c := range []document.Context{document.Editor, document.Viewer} {
		t.Run(c.String(), func(t *testing.T) {
			f := newFixture(t, c)
			called := 0
			f.ctrl.OnReady(func(*domain.Slide) { called++ })
			f.ctrl.LoadSlide(context.Background(), f.model.CurrentSlide()) //nolint:errcheck
			want := 0
			if c == document.Viewer {
				want = 1
			}
			if called != want {
				t.Errorf("hook called %d times, want %d", called, want)
			}
		})
	}
}

func TestSyncElementToModel(t *testing.T) {
	f := newFixture(t, document.Editor)
	el := f.add(t, domain.Rectangle{}, domain.Geometry{X: 0, Y: 0, Width: 40, Height: 20})
	f.ctrl.LoadSlide(context.Background(), f.model.CurrentSlide()) //nolint:errcheck

	o := f.ctrl.Scene().Object(el.ID)
	o.X, o.Y, o.Angle = 30, 40, 15
	o.ScaleX, o.ScaleY = 2, 1.5
	f.model.MarkSaved("p", f.model.LastSavedAt())
	if !f.ctrl.SyncElementToModel(o) {
		t.Fatal("SyncElementToModel failed")
	}
	want := domain.Geometry{X: 30, Y: 40, Width: 80, Height: 30, Angle: 15}
	if el.Geometry != want {
		t.Errorf("Geometry = %+v, want %+v", el.Geometry, want)
	}
	if o.ScaleX != 1 || o.Width != 80 {
		t.Error("object scale not folded into size")
	}
	if !f.model.Dirty() {
		t.Error("sync should dirty the model")
	}
}

func TestSyncModelToElement(t *testing.T) {
	f := newFixture(t, document.Editor)
	txt := f.add(t, domain.TextBox{Content: "one", Font: domain.Font{Size: 10}}, domain.Geometry{Width: 300, Height: 10})
	f.ctrl.LoadSlide(context.Background(), f.model.CurrentSlide()) //nolint:errcheck
	before := f.ctrl.Scene().Object(txt.ID)

	f.model.UpdateElement(txt.ID, map[string]any{
		"style": map[string]any{"fill": "#abcdef"},
		"text":  map[string]any{"content": "one\ntwo"},
	})
	if err := f.ctrl.SyncModelToElement(context.Background(), txt.ID); err != nil {
		t.Fatalf("SyncModelToElement: %v", err)
	}
	o := f.ctrl.Scene().Object(txt.ID)
	if o != before {
		t.Error("object was re-instantiated")
	}
	if o.Fill != "#abcdef" || o.Text != "one\ntwo" {
		t.Errorf("object not updated: %+v", o)
	}
	if o.Height != 24 || txt.Geometry.Height != 24 {
		t.Errorf("height = %v / %v, want 24 derived from two lines", o.Height, txt.Geometry.Height)
	}

	if err := f.ctrl.SyncModelToElement(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing element err = %v", err)
	}
}

func TestSyncModelToElementImageChange(t *testing.T) {
	f := newFixture(t, document.Editor)
	f.src.blobs["blue"] = solidPNG(t, color.RGBA{B: 255, A: 255})
	img := f.add(t, domain.Image{AssetID: "red"}, domain.Geometry{Width: 8, Height: 8})
	f.ctrl.LoadSlide(context.Background(), f.model.CurrentSlide()) //nolint:errcheck
	redImg := f.ctrl.Scene().Object(img.ID).Image

	f.model.UpdateElement(img.ID, map[string]any{"image": map[string]any{"assetId": "blue"}})
	if err := f.ctrl.SyncModelToElement(context.Background(), img.ID); err != nil {
		t.Fatalf("SyncModelToElement: %v", err)
	}
	o := f.ctrl.Scene().Object(img.ID)
	if o.Image == nil || o.Image == redImg {
		t.Error("image not re-resolved after asset change")
	}

	f.model.UpdateElement(img.ID, map[string]any{"image": map[string]any{"assetId": "nope"}})
	if err := f.ctrl.SyncModelToElement(context.Background(), img.ID); err == nil {
		t.Error("expected error for unresolvable asset")
	}
	if !f.ctrl.Scene().Object(img.ID).Placeholder {
		t.Error("unresolvable asset should become a placeholder")
	}
}
