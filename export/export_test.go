package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap/zaptest"

	"sbadm/asset"
	"sbadm/common"
	"sbadm/config"
	"sbadm/entity"
	"sbadm/layout"
	"sbadm/render"
)

type fakePager struct {
	mu       sync.Mutex
	active   int
	history  []int
	failures map[int]error
	// blocks capture of these pages until context is done
	hang map[int]bool
	// time asset download of every page takes
	fetch time.Duration
}

func (p *fakePager) Prepare(ctx context.Context) error {
	if p.fetch == 0 {
		return nil
	}
	t := time.NewTimer(p.fetch)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *fakePager) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *fakePager) SetActive(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = i
	p.history = append(p.history, i)
}

func (p *fakePager) Capture(ctx context.Context) (image.Image, error) {
	i := p.Active()
	if p.hang[i] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := p.failures[i]; err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := range 24 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{uint8(40 * i), 100, 200, 255})
		}
	}
	return img, nil
}

func testConfig() *config.ExportConfig {
	return &config.ExportConfig{
		SettleDelay:        time.Second,
		FetchTimeout:       time.Second,
		Format:             common.FrameFormatJpeg,
		JPEGQuality:        85,
		OutputNameTemplate: "{{ .Title }}",
	}
}

func testBook(n int) *entity.Storybook {
	return &entity.Storybook{ID: "sb1", Title: "The Moon", ReaderName: "Sam", Pages: make([]entity.Page, n)}
}

func pdfPages(t *testing.T, data []byte) int {
	t.Helper()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ctx.PageCount
}

func TestExport(t *testing.T) {
	pager := &fakePager{active: 2}
	var statuses []PageStatus
	e := New(testConfig(), pager, func(st PageStatus) { statuses = append(statuses, st) }, nil, zaptest.NewLogger(t))

	res, err := e.Export(context.Background(), testBook(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Captured != 3 || len(res.Failures) != 0 || res.Err() != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Name != "The Moon.pdf" {
		t.Errorf("name = %q", res.Name)
	}
	if n := pdfPages(t, res.PDF); n != 3 {
		t.Errorf("PDF has %d pages, want 3", n)
	}
	if pager.Active() != 2 {
		t.Errorf("active page %d was not restored", pager.Active())
	}
	if got := pager.history; len(got) != 4 || got[0] != 0 || got[1] != 1 || got[2] != 2 || got[3] != 2 {
		t.Errorf("unexpected page switches %v", got)
	}
	if len(statuses) != 3 || statuses[2].Index != 2 || statuses[2].Total != 3 {
		t.Errorf("unexpected progress %+v", statuses)
	}
}

func TestExport_PageFailureContinues(t *testing.T) {
	boom := errors.New("image load failed")
	pager := &fakePager{failures: map[int]error{1: boom}}
	var failed []int
	e := New(testConfig(), pager, func(st PageStatus) {
		if st.Err != nil {
			failed = append(failed, st.Index)
		}
	}, nil, zaptest.NewLogger(t))

	res, err := e.Export(context.Background(), testBook(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Captured != 2 || len(res.Failures) != 1 || res.Failures[0].Index != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err(), boom) || !strings.Contains(res.Err().Error(), "page 2") {
		t.Errorf("unexpected combined error %v", res.Err())
	}
	if len(failed) != 1 || failed[0] != 1 {
		t.Errorf("failure was not reported: %v", failed)
	}
	if n := pdfPages(t, res.PDF); n != 2 {
		t.Errorf("PDF has %d pages, want 2", n)
	}
}

func TestExport_SettleTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.SettleDelay = 20 * time.Millisecond
	pager := &fakePager{hang: map[int]bool{0: true}}

	res, err := New(cfg, pager, nil, nil, zaptest.NewLogger(t)).Export(context.Background(), testBook(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, context.DeadlineExceeded) {
		t.Fatalf("unexpected failures %+v", res.Failures)
	}
	if res.Captured != 1 {
		t.Errorf("captured %d pages, want 1", res.Captured)
	}
}

func TestExport_FetchBudget(t *testing.T) {
	cfg := testConfig()
	cfg.SettleDelay = 20 * time.Millisecond
	cfg.FetchTimeout = 2 * time.Second

	// slow download does not eat into settle delay
	pager := &fakePager{fetch: 60 * time.Millisecond}
	res, err := New(cfg, pager, nil, nil, zaptest.NewLogger(t)).Export(context.Background(), testBook(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Captured != 2 || len(res.Failures) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	cfg.FetchTimeout = 20 * time.Millisecond
	pager = &fakePager{fetch: time.Second}
	res, err = New(cfg, pager, nil, nil, zaptest.NewLogger(t)).Export(context.Background(), testBook(1))
	if !errors.Is(err, ErrNoCaptures) || res == nil || len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected download timeout, got %v %+v", err, res)
	}
}

func TestExport_Errors(t *testing.T) {
	e := New(testConfig(), &fakePager{}, nil, nil, zaptest.NewLogger(t))
	if _, err := e.Export(context.Background(), testBook(0)); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
	if _, err := e.Export(context.Background(), nil); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}

	pager := &fakePager{active: 1, failures: map[int]error{0: errors.New("a"), 1: errors.New("b")}}
	res, err := New(testConfig(), pager, nil, nil, zaptest.NewLogger(t)).Export(context.Background(), testBook(2))
	if !errors.Is(err, ErrNoCaptures) || res == nil || len(res.Failures) != 2 || res.PDF != nil {
		t.Errorf("expected ErrNoCaptures, got %v %+v", err, res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pager = &fakePager{active: 1}
	if _, err := New(testConfig(), pager, nil, nil, zaptest.NewLogger(t)).Export(ctx, testBook(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if pager.Active() != 1 {
		t.Error("active page must be restored after cancellation")
	}
}

func TestEncodeFrame(t *testing.T) {
	gray := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}

	data, err := EncodeFrame(gray, common.FrameFormatPng, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("grayscale frame decoded as %T", img)
	}

	data, err = EncodeFrame(gray, common.FrameFormatJpeg, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF, 0xE0}) {
		t.Fatalf("JFIF header missing: % x", data[:4])
	}
	if data[13] != 1 || binary.BigEndian.Uint16(data[14:16]) != frameDPI || binary.BigEndian.Uint16(data[16:18]) != frameDPI {
		t.Errorf("unexpected density % x", data[13:18])
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name     string
		book     entity.Storybook
		template string
		translit bool
		want     string
	}{
		{"title", entity.Storybook{Title: "The Moon"}, "{{ .Title }}", false, "The Moon.pdf"},
		{"no template", entity.Storybook{Title: " The Moon "}, "", false, "The Moon.pdf"},
		{"sprig", entity.Storybook{Title: "Moon", ReaderName: "sam"}, "{{ .Title }} for {{ .Reader | upper }}", false, "Moon for SAM.pdf"},
		{"pages", entity.Storybook{Title: "Moon", Pages: make([]entity.Page, 12)}, "{{ .Title }} ({{ .Pages }})", false, "Moon (12).pdf"},
		{"transliterate", entity.Storybook{Title: "Война и мир"}, "{{ .Title }}", true, "voina-i-mir.pdf"},
		{"separators", entity.Storybook{Title: "a/b"}, "{{ .Title }}", false, "a b.pdf"},
		{"empty", entity.Storybook{ID: "sb9"}, "{{ .Title }}", false, "storybook-sb9.pdf"},
		{"bad template", entity.Storybook{Title: "Moon"}, "{{ .Title", false, "Moon.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ExportConfig{OutputNameTemplate: tt.template, FileNameTransliterate: tt.translit}
			if got := FileName(&tt.book, cfg, zaptest.NewLogger(t)); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

type mapBundle map[string][]byte

func (b mapBundle) Lookup(name string) ([]byte, bool) {
	data, ok := b[name]
	return data, ok
}

func TestBookPager(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fonts, err := layout.LoadFonts("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := zaptest.NewLogger(t)
	loader := asset.NewLoader(nil, mapBundle{"bg.png": buf.Bytes()}, nil, log)
	lctx := &layout.Context{
		ReaderName: "Sam",
		Measurer:   fonts,
		Render: &config.RenderConfig{
			Width: 120, Height: 80, Margin: 4, Padding: 4, PanelOpacity: 0.5, CoverMaxWidth: 100,
			Font: config.FontConfig{Size: 10, TitleSize: 14, QuoteSize: 12, LineHeight: 1.2},
			Blur: config.BlurConfig{Iterations: 1, Radius: 1, Downscale: 2},
		},
	}
	book := testBook(0)
	book.Pages = []entity.Page{
		{Text: "Hello {name}", Background: &entity.AssetRef{URL: "bg.png"}},
		{Text: "Broken", Background: &entity.AssetRef{URL: "nope.png"}},
	}
	canvas := render.NewCanvas(loader, fonts, render.CanvasOptions{Blur: lctx.Render.Blur, Strict: true}, log)
	pager := NewBookPager(book, lctx, nil, canvas, loader)

	img, err := pager.Capture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("unexpected frame size %v", b)
	}
	pager.SetActive(5)
	if _, err := pager.Capture(context.Background()); err == nil {
		t.Error("expected error for missing page")
	}

	pager = NewBookPager(book, lctx, nil, canvas, loader)
	res, err := New(testConfig(), pager, nil, nil, log).Export(context.Background(), book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Captured != 1 || len(res.Failures) != 1 || res.Failures[0].Index != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Err().Error(), "nope.png") {
		t.Errorf("failure must name missing asset: %v", res.Err())
	}
	if pdfPages(t, res.PDF) != 1 {
		t.Error("expected single page PDF")
	}
	if loader.Cached() != 0 {
		t.Errorf("images of captured pages must be released, %d cached", loader.Cached())
	}
}

func TestBookPager_SharedAssets(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fonts, err := layout.LoadFonts("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := zaptest.NewLogger(t)
	loader := asset.NewLoader(nil, mapBundle{"bg.png": buf.Bytes()}, nil, log)
	lctx := &layout.Context{
		Measurer: fonts,
		Render: &config.RenderConfig{
			Width: 60, Height: 40, Margin: 2, Padding: 2, PanelOpacity: 0.5, CoverMaxWidth: 50,
			Font: config.FontConfig{Size: 8, TitleSize: 10, QuoteSize: 8, LineHeight: 1.2},
			Blur: config.BlurConfig{Iterations: 1, Radius: 1, Downscale: 2},
		},
	}
	book := testBook(0)
	book.Pages = []entity.Page{
		{Text: "one", Background: &entity.AssetRef{URL: "bg.png"}},
		{Text: "two", Background: &entity.AssetRef{URL: "bg.png"}},
	}
	canvas := render.NewCanvas(loader, fonts, render.CanvasOptions{Blur: lctx.Render.Blur, Strict: true}, log)
	pager := NewBookPager(book, lctx, nil, canvas, loader)

	for i, want := range []int{1, 0} {
		pager.SetActive(i)
		if err := pager.Prepare(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := pager.Capture(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loader.Cached() != want {
			t.Errorf("after page %d cached = %d, want %d", i+1, loader.Cached(), want)
		}
	}
}
