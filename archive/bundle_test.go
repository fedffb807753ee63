package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"sbadm/asset"
	"sbadm/entity"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestBundleRoundTrip(t *testing.T) {
	book := &entity.Storybook{
		ID:    "sb1",
		Title: "The Moon",
		Pages: []entity.Page{{Text: "Hi", Background: &entity.AssetRef{URL: "assets/page10.png"}}},
	}
	img := pngBytes(t)
	assets := map[string][]byte{"assets/page10.png": img, "assets/page2.png": img}

	var buf bytes.Buffer
	if err := WriteBundle(&buf, book, assets); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ReadBundle(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Book.Title != "The Moon" || len(b.Book.Pages) != 1 || b.Book.Pages[0].Background.URL != "assets/page10.png" {
		t.Errorf("unexpected book %+v", b.Book)
	}
	want := []string{"assets/page2.png", "assets/page10.png", "storybook.json"}
	if got := b.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	for _, name := range []string{"assets/page2.png", "./assets/page2.png"} {
		if data, ok := b.Lookup(name); !ok || !bytes.Equal(data, img) {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
	if _, ok := b.Lookup("assets/none.png"); ok {
		t.Error("unexpected lookup success")
	}

	loader := asset.NewLoader(nil, b, nil, zaptest.NewLogger(t))
	if _, err := loader.Load(context.Background(), b.Book.Pages[0].Background.URL); err != nil {
		t.Errorf("bundle asset does not load: %v", err)
	}
}

func TestOpenBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteBundle(f, &entity.Storybook{ID: "x", Title: "T"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()

	b, err := OpenBundle(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Book.ID != "x" {
		t.Errorf("unexpected book %+v", b.Book)
	}
}

func TestReadBundle_Errors(t *testing.T) {
	if _, err := ReadBundle(writeZip(t, map[string]string{"assets/a.png": "x"})); !errors.Is(err, ErrNoManifest) {
		t.Errorf("expected ErrNoManifest, got %v", err)
	}
	if _, err := ReadBundle(writeZip(t, map[string]string{ManifestName: "{"})); err == nil {
		t.Error("expected manifest decode error")
	}
	if _, err := ReadBundle([]byte("garbage")); err == nil {
		t.Error("expected error for non zip data")
	}
	if err := WriteBundle(&bytes.Buffer{}, &entity.Storybook{}, map[string][]byte{"../x.png": nil}); err == nil {
		t.Error("expected error for unsafe asset name")
	}
}

type mapSource struct {
	data  map[string][]byte
	calls map[string]int
}

func (s *mapSource) Bytes(_ context.Context, loc string) ([]byte, error) {
	s.calls[loc]++
	if d, ok := s.data[loc]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("not found")
}

func TestPack(t *testing.T) {
	img := pngBytes(t)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"/>`)
	src := &mapSource{
		data: map[string][]byte{
			"https://cdn/bg.png": img,
			"https://cdn/qr.svg": svg,
		},
		calls: make(map[string]int),
	}
	sel := 0
	book := &entity.Storybook{
		ID: "sb1",
		Pages: []entity.Page{
			{
				Background: &entity.AssetRef{URL: "https://cdn/bg-small.png", DownloadURL: "https://cdn/bg.png"},
				Character:  &entity.AssetRef{URL: "https://cdn/missing.png"},
			},
			{
				Type:              "cover",
				Background:        &entity.AssetRef{DownloadURL: "https://cdn/bg.png"},
				Cover:             &entity.CoverMeta{QRCode: &entity.AssetRef{SignedURL: "https://cdn/qr.svg"}},
				Candidates:        []entity.Candidate{{Index: 0, Asset: &entity.AssetRef{URL: "https://cdn/bg.png"}}},
				SelectedCandidate: &sel,
			},
		},
	}

	out, assets, err := Pack(context.Background(), book, src, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "missing.png") {
		t.Errorf("expected download error, got %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(assets))
	}
	if src.calls["https://cdn/bg.png"] != 1 {
		t.Errorf("shared asset downloaded %d times", src.calls["https://cdn/bg.png"])
	}
	p0, p1 := out.Pages[0], out.Pages[1]
	if p0.Background.URL != "assets/001.png" || p1.Background.URL != "assets/001.png" || p1.Candidates[0].Asset.URL != "assets/001.png" {
		t.Errorf("background references were not rewritten: %+v %+v", p0.Background, p1.Background)
	}
	if p1.Cover.QRCode.URL != "assets/002.svg" {
		t.Errorf("qr code = %+v", p1.Cover.QRCode)
	}
	if p0.Character.URL != "https://cdn/missing.png" {
		t.Errorf("failed asset must keep its reference: %+v", p0.Character)
	}
	if book.Pages[0].Background.URL != "https://cdn/bg-small.png" {
		t.Error("source book must not be modified")
	}
	if *out.Pages[1].SelectedCandidate != 0 {
		t.Error("selection lost")
	}
}
