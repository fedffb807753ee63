package layout

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sbadm/common"
	"sbadm/config"
	"sbadm/entity"
)

// fixedMeasurer gives every character half of the font size.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(text string, size float64, _ bool) float64 {
	return float64(len([]rune(text))) * size * 0.5
}

func testRender() *config.RenderConfig {
	return &config.RenderConfig{
		Width:         1000,
		Height:        800,
		Margin:        20,
		Padding:       10,
		PanelOpacity:  0.5,
		CoverMaxWidth: 600,
		UppercaseName: true,
		Font:          config.FontConfig{Size: 20, TitleSize: 40, QuoteSize: 30, LineHeight: 1.5},
		Blur:          config.BlurConfig{Iterations: 8, Radius: 4, Downscale: 4},
		Dedication:    config.DedicationConfig{Width: 40, Height: 20},
	}
}

func testContext() *Context {
	return &Context{ReaderName: "Sam", Gender: common.GenderBoth, Render: testRender(), Measurer: fixedMeasurer{}}
}

func TestBuild_StoryLinesPreserved(t *testing.T) {
	page := &entity.Page{Type: "story", Text: "Line one\n\nLine two"}
	m := Build(page, 0, testContext())
	if m == nil || len(m.Blocks) != 1 {
		t.Fatalf("unexpected model %+v", m)
	}
	lines := m.Blocks[0].Lines
	want := []string{"Line one", "", "Line two"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, l := range lines {
		if l.Text != want[i] {
			t.Errorf("line %d = %q, want %q", i, l.Text, want[i])
		}
	}
	if lines[2].Y <= lines[1].Y || lines[1].Y <= lines[0].Y {
		t.Error("lines must go top down")
	}

	// long line is never re-wrapped
	long := strings.Repeat("word ", 200)
	m = Build(&entity.Page{Text: long}, 0, testContext())
	if n := len(m.Blocks[0].Lines); n != 1 {
		t.Errorf("story text was re-wrapped into %d lines", n)
	}
	if !m.Panel.Box.Within(m.Width, m.Height) {
		t.Errorf("panel escapes page: %+v", m.Panel.Box)
	}
}

func TestBuild_StoryAnchor(t *testing.T) {
	char := &entity.AssetRef{URL: "c.png"}
	tests := []struct {
		name   string
		index  int
		pos    string
		anchor common.Anchor
	}{
		{"even auto", 0, "", common.AnchorLeft},
		{"odd auto", 1, "auto", common.AnchorRight},
		{"override", 2, "right", common.AnchorRight},
		{"override odd", 3, "left", common.AnchorLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Build(&entity.Page{Text: "x", Character: char, CharacterPosition: tt.pos}, tt.index, testContext())
			if m.Anchor != tt.anchor {
				t.Fatalf("anchor = %s, want %s", m.Anchor, tt.anchor)
			}
			text := m.Blocks[0].Box
			if tt.anchor == common.AnchorLeft {
				if m.Character.Box.X != 0 || text.X < m.Width/2 {
					t.Errorf("left anchor: character %+v, text %+v", m.Character.Box, text)
				}
			} else {
				if m.Character.Box.X != m.Width/2 || text.Right() > m.Width/2 {
					t.Errorf("right anchor: character %+v, text %+v", m.Character.Box, text)
				}
			}
		})
	}
}

func TestBuild_PanelClamped(t *testing.T) {
	ctx := testContext()
	text := strings.Repeat("very long line\n", 60)
	m := Build(&entity.Page{Text: text}, 0, ctx)
	b := m.Panel.Box
	if !b.Within(m.Width, m.Height) {
		t.Errorf("panel %+v does not fit %vx%v", b, m.Width, m.Height)
	}
}

func TestBuild_Quote(t *testing.T) {
	m := Build(&entity.Page{Text: "x", Quote: "abcdefghi"}, 0, testContext())
	q := m.Quote
	if q == nil || len(q.Glyphs) != 9 {
		t.Fatalf("unexpected quote %+v", q)
	}
	first, mid, last := q.Glyphs[0], q.Glyphs[4], q.Glyphs[8]
	if !(mid.Size > first.Size && mid.Size > last.Size) {
		t.Errorf("envelope must be fuller in the middle: %v %v %v", first.Size, mid.Size, last.Size)
	}
	if !(mid.Baseline < first.Baseline && mid.Baseline < last.Baseline) {
		t.Errorf("middle glyph must be lifted: %v %v %v", first.Baseline, mid.Baseline, last.Baseline)
	}
	if first.X >= last.X {
		t.Error("LTR quote must go left to right")
	}

	m = Build(&entity.Page{Quote: "שלום עולם"}, 0, testContext())
	q = m.Quote
	if !q.RTL || q.Glyphs[0].X <= q.Glyphs[len(q.Glyphs)-1].X {
		t.Errorf("RTL quote must go right to left: %+v", q.Glyphs)
	}
	if q.Ornament.Y < q.Box.Bottom() {
		t.Error("ornament must be below quote")
	}
}

func TestBuild_Cover(t *testing.T) {
	page := &entity.Page{
		Type:       "cover",
		Background: &entity.AssetRef{SignedURL: "bg-signed", URL: "bg"},
		Cover: &entity.CoverMeta{
			Headline: "Hi {name}",
			Body:     strings.Repeat("once upon a time ", 20),
			Footer:   "for {him}",
			QRCode:   &entity.AssetRef{URL: "qr.png"},
		},
	}
	ctx := testContext()
	m := Build(page, 0, ctx)
	if m.Kind != common.PageKindCover || m.Background.URL != "bg-signed" {
		t.Fatalf("unexpected model %+v", m)
	}
	if len(m.Blocks) != 3 || m.Blocks[0].Lines[0].Text != "Hi SAM" || m.Blocks[2].Lines[0].Text != "for them" {
		t.Fatalf("unexpected blocks %+v", m.Blocks)
	}
	panel := m.Panel.Box
	inner := panel.W - 2*ctx.Render.Padding
	if len(m.Blocks[1].Lines) < 2 {
		t.Error("cover body must be wrapped")
	}
	for _, b := range m.Blocks {
		for _, l := range b.Lines {
			if l.Width > inner {
				t.Errorf("line %q wider than panel: %v > %v", l.Text, l.Width, inner)
			}
		}
	}
	if !panel.Within(m.Width, m.Height) {
		t.Errorf("panel escapes page %+v", panel)
	}
	if m.QR == nil {
		t.Fatal("expected QR code")
	}
	if m.QR.Box.Y < m.Blocks[2].Box.Bottom() {
		t.Error("QR must be below text")
	}
	if d := m.QR.Box.CenterX() - panel.CenterX(); d > 0.001 || d < -0.001 {
		t.Errorf("QR not centered in panel: %v", d)
	}
	if m.QR.Box.Bottom() > panel.Bottom() {
		t.Error("QR must be inside panel")
	}

	off := false
	page.Cover.UppercaseName = &off
	m = Build(page, 0, ctx)
	if got := m.Blocks[0].Lines[0].Text; got != "Hi Sam" {
		t.Errorf("headline = %q, want Hi Sam", got)
	}
}

func TestBuild_CoverEmpty(t *testing.T) {
	m := Build(&entity.Page{Type: "cover"}, 0, testContext())
	if m.Panel != nil || len(m.Blocks) != 0 {
		t.Errorf("empty cover must have no panel: %+v", m)
	}
}

func TestBuild_Dedication(t *testing.T) {
	page := &entity.Page{
		Type:       "dedication",
		Background: &entity.AssetRef{URL: "bg.png"},
		Dedication: &entity.DedicationMeta{Title: "For {name}", Subtitle: "with love", Portrait: &entity.AssetRef{DownloadURL: "p.png"}},
	}
	m := Build(page, 3, testContext())
	if len(m.Blocks) != 2 || m.Blocks[0].Lines[0].Text != "For SAM" {
		t.Fatalf("unexpected blocks %+v", m.Blocks)
	}
	if m.Blocks[0].Box.Y != testRender().Margin || m.Blocks[1].Box.Y <= m.Blocks[0].Box.Bottom() {
		t.Error("titles must be stacked top aligned")
	}
	if m.Portrait == nil || !m.Portrait.Round || m.Portrait.URL != "p.png" {
		t.Errorf("unexpected portrait %+v", m.Portrait)
	}
	if m.Panel != nil {
		t.Error("dedication has no panel")
	}
}

func TestBuild_Nil(t *testing.T) {
	if Build(nil, 0, testContext()) != nil {
		t.Error("nil page must produce nil model")
	}
	if Build(&entity.Page{}, 0, nil) != nil {
		t.Error("nil context must produce nil model")
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		text   string
		name   string
		gender common.Gender
		upper  bool
		want   string
	}{
		{"Hi {name}", "Sam", common.GenderBoth, true, "Hi SAM"},
		{"Hi {name}", "Sam", common.GenderBoth, false, "Hi Sam"},
		{"Hi {NAME}!", "Sam", common.GenderMale, false, "Hi Sam!"},
		{"{He} took {his} hat, we saw {him}", "", common.GenderMale, false, "He took his hat, we saw him"},
		{"{He} took {his} hat, we saw {him}", "", common.GenderFemale, false, "She took hers hat, we saw her"},
		{"{he} took {HIS} hat, we saw {Him}", "", common.GenderBoth, false, "they took Their hat, we saw Them"},
		{"Hi {name}", "", common.GenderBoth, true, "Hi {name}"},
		{"{names} {nam}", "Sam", common.GenderBoth, false, "{names} {nam}"},
		{"שלום {name}", "דנה", common.GenderFemale, true, "שלום דנה"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Substitute(tt.text, tt.name, tt.gender, tt.upper); got != tt.want {
				t.Errorf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveCoverText(t *testing.T) {
	meta := &entity.CoverMeta{Headline: "Hi {name}"}
	if got := ResolveCoverText(meta, "Sam", common.GenderBoth, true).Headline; got != "Hi SAM" {
		t.Errorf("upper: %q", got)
	}
	if got := ResolveCoverText(meta, "Sam", common.GenderBoth, false).Headline; got != "Hi Sam" {
		t.Errorf("lower: %q", got)
	}
	if got := ResolveCoverText(nil, "Sam", common.GenderBoth, true); got != (CoverText{}) {
		t.Errorf("nil meta: %+v", got)
	}
}

func TestWrap(t *testing.T) {
	m := fixedMeasurer{}
	// every character is 5 pixels wide at size 10
	tests := []struct {
		name string
		text string
		max  float64
		want []string
	}{
		{"fits", "one two", 100, []string{"one two"}},
		{"breaks", "one two three", 40, []string{"one two", "three"}},
		{"newlines kept", "a\n\nb", 100, []string{"a", "", "b"}},
		{"long word", "abcdefghij", 20, []string{"abcd", "efgh", "ij"}},
		{"collapses blanks", "  a   b  ", 100, []string{"a b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.max, 10, false, m)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Wrap() = %q, want %q", got, tt.want)
			}
			for _, l := range got {
				if w := m.Measure(l, 10, false); w > tt.max {
					t.Errorf("line %q is %v wide, max %v", l, w, tt.max)
				}
			}
		})
	}
}

func TestIsRTL(t *testing.T) {
	tests := map[string]bool{
		"hello":        false,
		"שלום":         true,
		"123 שלום":     true,
		"hello שלום":   false,
		"":             false,
		"مرحبا":        true,
		"«שלום» world": true,
	}
	for in, want := range tests {
		if got := IsRTL(in); got != want {
			t.Errorf("IsRTL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestVisual(t *testing.T) {
	tests := []struct {
		name string
		in   string
		rtl  bool
		want string
	}{
		{"latin", "abc", false, "abc"},
		{"latin in rtl paragraph", "abc", true, "abc"},
		{"hebrew", "שלום", true, "םולש"},
		// shin with qamats and shin dot, vav with holam
		{"points stay with letters", "\u05e9\u05b8\u05c1\u05dc\u05d5\u05b9\u05dd", true, "\u05dd\u05d5\u05b9\u05dc\u05e9\u05b8\u05c1"},
		{"embedded name and number", "שלום Sam 12", true, "Sam 12 םולש"},
		{"hebrew inside latin", "hi שלום there", false, "hi םולש there"},
		{"number after hebrew in latin", "go שלום 12 עולם", false, "go םלוע 12 םולש"},
		{"empty", "", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visual(tt.in, tt.rtl); got != tt.want {
				t.Errorf("Visual(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuild_QuoteClusters(t *testing.T) {
	m := Build(&entity.Page{Quote: "\u05e9\u05b8\u05c1\u05dc\u05d5\u05b9\u05dd Sam"}, 0, testContext())
	q := m.Quote
	if q == nil || len(q.Glyphs) != 8 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if q.Glyphs[0].Char != "\u05e9\u05b8\u05c1" || q.Glyphs[2].Char != "\u05d5\u05b9" {
		t.Errorf("marks split from letters: %q %q", q.Glyphs[0].Char, q.Glyphs[2].Char)
	}
	// hebrew word goes right to left, name keeps its order on the left
	shin, mem, s, m2 := q.Glyphs[0], q.Glyphs[3], q.Glyphs[5], q.Glyphs[7]
	if !(shin.X > mem.X && mem.X > m2.X && s.X < m2.X) {
		t.Errorf("unexpected glyph order: %+v", q.Glyphs)
	}
}

func TestRectClamp(t *testing.T) {
	tests := []struct {
		in, want Rect
	}{
		{Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}},
		{Rect{-5, -5, 20, 20}, Rect{0, 0, 20, 20}},
		{Rect{90, 90, 20, 20}, Rect{80, 80, 20, 20}},
		{Rect{-10, 10, 300, 20}, Rect{0, 10, 100, 20}},
		{Rect{10, 10, -3, 5}, Rect{10, 10, 0, 5}},
	}
	for _, tt := range tests {
		got := tt.in.Clamp(100, 100)
		if got != tt.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
		if !got.Within(100, 100) {
			t.Errorf("Clamp(%+v) escapes bounds", tt.in)
		}
	}
}

func TestEllipseAlpha(t *testing.T) {
	e := MaskFor(Rect{0, 0, 100, 50})
	if e.Alpha(50, 25) != 1 {
		t.Error("center must be opaque")
	}
	if e.Alpha(0, 0) != 0 || e.Alpha(100, 25) != 0 {
		t.Error("edge must be transparent")
	}
	if a := e.Alpha(90, 25); a <= 0 || a >= 1 {
		t.Errorf("feather zone alpha %v", a)
	}
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestValidateDedicationBackground(t *testing.T) {
	if _, err := ValidateDedicationBackground(pngOf(t, 40, 20), 40, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := ValidateDedicationBackground(pngOf(t, 41, 20), 40, 20)
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if !strings.Contains(ve.Message, "40x20") || !strings.Contains(ve.Message, "41x20") {
		t.Errorf("unexpected message %q", ve.Message)
	}

	_, err = ValidateDedicationBackground([]byte("garbage"), 40, 20)
	if !errors.As(err, &ve) || errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected decode validation error, got %v", err)
	}
	if _, err := ValidateDedicationBackground(nil, 40, 20); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestAcceptDedicationBackground(t *testing.T) {
	page := &entity.Page{Type: "dedication", Background: &entity.AssetRef{URL: "old.png"}}
	if err := AcceptDedicationBackground(page, pngOf(t, 20, 20), 40, 20); err == nil {
		t.Fatal("expected rejection")
	}
	if page.Background.URL != "old.png" {
		t.Error("rejected image must not reach the page")
	}
	if err := AcceptDedicationBackground(page, pngOf(t, 40, 20), 40, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(page.Background.URL, "data:image/png;base64,") {
		t.Errorf("unexpected background %.40s", page.Background.URL)
	}
	m := Build(page, 0, testContext())
	if m.Background == nil || m.Background.URL != page.Background.URL {
		t.Error("accepted background not in model")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(2)
	ctx := testContext()
	page := &entity.Page{ID: "p1", Text: "hello", Background: &entity.AssetRef{URL: "bg.png"}}

	m1, hit := c.Get(page, 0, ctx)
	if hit || m1 == nil || m1.Key == "" {
		t.Fatalf("first get must build: %v %v", m1, hit)
	}
	m2, hit := c.Get(page, 0, ctx)
	if !hit || m2 != m1 {
		t.Error("second get must hit")
	}

	// unrelated change keeps the model
	page.ID = "renamed"
	page.Candidates = []entity.Candidate{{Index: 0, Notes: "meh"}}
	if _, hit := c.Get(page, 0, ctx); !hit {
		t.Error("unrelated change must not rebuild")
	}

	changes := []struct {
		name  string
		apply func()
	}{
		{"text", func() { page.Text = "bye" }},
		{"background", func() { page.Background = &entity.AssetRef{SignedURL: "bg2.png"} }},
		{"character", func() { page.Character = &entity.AssetRef{URL: "c.png"} }},
		{"reader", func() { ctx.ReaderName = "Dana" }},
		{"gender", func() { ctx.Gender = common.GenderFemale }},
		{"selected candidate", func() {
			sel := 0
			page.Candidates[0].Asset = &entity.AssetRef{URL: "cand.png"}
			page.SelectedCandidate = &sel
		}},
	}
	for _, ch := range changes {
		ch.apply()
		if _, hit := c.Get(page, 0, ctx); hit {
			t.Errorf("change of %s must rebuild", ch.name)
		}
	}
	if _, hit := c.Get(page, 1, ctx); hit {
		t.Error("different index must rebuild")
	}
	if c.Len() != 2 {
		t.Errorf("cache size %d exceeds limit", c.Len())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 8 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}
}

func TestFonts(t *testing.T) {
	f, err := LoadFonts("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	short, long := f.Measure("ab", 20, false), f.Measure("abcd", 20, false)
	if short <= 0 || long <= short {
		t.Errorf("unexpected widths %v %v", short, long)
	}
	if f.Measure("abcd", 40, false) <= long {
		t.Error("bigger size must be wider")
	}
	if f.Measure("abcd", 20, true) < long {
		t.Error("bold must not be narrower")
	}
	if a, d := f.Metrics(20); a <= 0 || d <= 0 {
		t.Errorf("unexpected metrics %v %v", a, d)
	}

	if _, err := LoadFonts(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("expected error for missing font")
	}
	notFont := filepath.Join(t.TempDir(), "x.ttf")
	if err := os.WriteFile(notFont, []byte("not a font at all"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := LoadFonts(notFont); err == nil {
		t.Error("expected error for non-font file")
	}
}

func TestModelDump(t *testing.T) {
	m := Build(&entity.Page{Text: "a\nb", Background: &entity.AssetRef{URL: "bg.png"}}, 1, testContext())
	out := m.Dump()
	for _, want := range []string{"page 1: story 1000x800 anchor=right", "background: 0.0,0.0 1000.0x800.0", `url: "bg.png"`, `line 1: "b"`} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
}
