package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sbadm/asset"
	"sbadm/entity"
	imgutil "sbadm/utils/images"
)

const (
	// ManifestName is storybook document inside of bundle.
	ManifestName = "storybook.json"
	// AssetsDir holds images referenced from manifest.
	AssetsDir = "assets/"

	maxEntrySize = 64 << 20
)

var ErrNoManifest = errors.New("bundle has no " + ManifestName)

// Bundle is fully loaded offline storybook. It satisfies asset.Bundle, so
// relative locations in the manifest are served from the archive.
type Bundle struct {
	Book  *entity.Storybook
	files map[string][]byte
	names []string
}

// OpenBundle reads bundle from file.
func OpenBundle(path string) (*Bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open bundle: %w", err)
	}
	defer r.Close()
	return readBundle(&r.Reader)
}

// ReadBundle reads bundle from memory.
func ReadBundle(data []byte) (*Bundle, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to open bundle: %w", err)
	}
	return readBundle(r)
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, fmt.Errorf("zip entry %q is too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}

func readBundle(r *zip.Reader) (*Bundle, error) {
	b := &Bundle{files: make(map[string][]byte)}
	err := Walk(r, "", func(f *zip.File) error {
		data, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", f.Name, err)
		}
		b.files[f.Name] = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	manifest, ok := b.files[ManifestName]
	if !ok {
		return nil, ErrNoManifest
	}
	b.Book = &entity.Storybook{}
	if err := json.Unmarshal(manifest, b.Book); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", ManifestName, err)
	}

	for name := range b.files {
		b.names = append(b.names, name)
	}
	sort.Sort(natural.StringSlice(b.names))
	return b, nil
}

// Lookup returns content of the entry, "./" prefixed names are accepted.
func (b *Bundle) Lookup(name string) ([]byte, bool) {
	if b == nil || name == "" {
		return nil, false
	}
	data, ok := b.files[strings.TrimPrefix(path.Clean(name), "./")]
	return data, ok
}

// Names lists entries in natural order.
func (b *Bundle) Names() []string {
	return b.names
}

// WriteBundle writes book manifest and assets into zip archive. Assets are
// stored in natural order of their names.
func WriteBundle(w io.Writer, book *entity.Storybook, assets map[string][]byte) error {
	manifest, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", ManifestName, err)
	}

	arc := zip.NewWriter(w)
	now := time.Now()
	if err := writeEntry(arc, ManifestName, now, zip.Deflate, manifest); err != nil {
		return err
	}

	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		if !isSafePath(name) {
			return fmt.Errorf("asset name %q: unsafe path", name)
		}
		// images are compressed already
		if err := writeEntry(arc, name, now, zip.Store, assets[name]); err != nil {
			return err
		}
	}
	return arc.Close()
}

func writeEntry(arc *zip.Writer, name string, t time.Time, method uint16, data []byte) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: t})
	if err != nil {
		return fmt.Errorf("unable to add %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

// Source gives raw asset content, asset.Loader satisfies it.
type Source interface {
	Bytes(ctx context.Context, location string) ([]byte, error)
}

// refs returns every asset reference of the book.
func refs(book *entity.Storybook) []**entity.AssetRef {
	var out []**entity.AssetRef
	for i := range book.Pages {
		p := &book.Pages[i]
		out = append(out, &p.Background, &p.Character)
		if p.Cover != nil {
			out = append(out, &p.Cover.QRCode)
		}
		if p.Dedication != nil {
			out = append(out, &p.Dedication.Portrait)
		}
		for j := range p.Candidates {
			out = append(out, &p.Candidates[j].Asset)
		}
	}
	return out
}

func extension(data []byte) string {
	if imgutil.IsSVG(data) {
		return ".svg"
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return "." + kind.Extension
	}
	return ".bin"
}

// Pack downloads every asset the book refers to and returns book copy with
// references pointing into bundle together with asset content, ready for
// WriteBundle. Assets which could not be downloaded keep original
// references, their errors are combined into returned error.
func Pack(ctx context.Context, book *entity.Storybook, src Source, log *zap.Logger) (*entity.Storybook, map[string][]byte, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out, err := cloneBook(book)
	if err != nil {
		return nil, nil, err
	}

	assets := make(map[string][]byte)
	names := make(map[string]string)
	var errs error
	for _, ref := range refs(out) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		loc := asset.ResolveWith(*ref, asset.DownloadOrder...)
		if loc == "" {
			continue
		}
		name, ok := names[loc]
		if !ok {
			data, err := src.Bytes(ctx, loc)
			if err != nil {
				log.Warn("Unable to download asset", zap.String("location", loc), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", loc, err))
				names[loc] = ""
				continue
			}
			name = fmt.Sprintf("%s%03d%s", AssetsDir, len(assets)+1, extension(data))
			assets[name] = data
			names[loc] = name
		}
		if name != "" {
			*ref = &entity.AssetRef{URL: name}
		}
	}
	return out, assets, errs
}

func cloneBook(book *entity.Storybook) (*entity.Storybook, error) {
	data, err := json.Marshal(book)
	if err != nil {
		return nil, fmt.Errorf("unable to copy storybook: %w", err)
	}
	out := &entity.Storybook{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("unable to copy storybook: %w", err)
	}
	return out, nil
}
