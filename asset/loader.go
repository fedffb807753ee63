package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	imgutil "sbadm/utils/images"
)

// ErrNoLocation is returned when asked to load empty reference.
var ErrNoLocation = errors.New("asset has no usable location")

// Fetcher retrieves remote content, api.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Bundle gives access to images packed together with offline storybook.
type Bundle interface {
	Lookup(name string) ([]byte, bool)
}

// entry keeps decoded image together with its source, SVG documents embed
// the latter.
type entry struct {
	img  image.Image
	data []byte
}

// Loader fetches and decodes assets, remembering decoded images by location
// until told to forget them.
type Loader struct {
	fetcher     Fetcher
	bundle      Bundle
	placeholder []byte
	log         *zap.Logger

	mu     sync.Mutex
	cache  map[string]entry
	broken image.Image
}

func NewLoader(fetcher Fetcher, bundle Bundle, placeholder []byte, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		fetcher:     fetcher,
		bundle:      bundle,
		placeholder: placeholder,
		log:         log.Named("asset"),
		cache:       make(map[string]entry),
	}
}

// Bytes returns raw asset content.
func (l *Loader) Bytes(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, ErrNoLocation
	}
	switch {
	case strings.HasPrefix(location, "data:"):
		return decodeDataURI(location)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if l.fetcher == nil {
			return nil, fmt.Errorf("unable to fetch %s: no remote access configured", location)
		}
		return l.fetcher.Fetch(ctx, location)
	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("bad file url %s: %w", location, err)
		}
		return os.ReadFile(u.Path)
	}
	if l.bundle != nil {
		if data, ok := l.bundle.Lookup(location); ok {
			return data, nil
		}
	}
	return os.ReadFile(location)
}

// Load returns decoded image. Successful results are cached, failures are
// not, so next render retries.
func (l *Loader) Load(ctx context.Context, location string) (image.Image, error) {
	e, err := l.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return e.img, nil
}

// Data returns source of decodable image, sharing cache with Load.
func (l *Loader) Data(ctx context.Context, location string) ([]byte, error) {
	e, err := l.load(ctx, location)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

func (l *Loader) load(ctx context.Context, location string) (entry, error) {
	l.mu.Lock()
	e, ok := l.cache[location]
	l.mu.Unlock()
	if ok {
		return e, nil
	}

	data, err := l.Bytes(ctx, location)
	if err != nil {
		return entry{}, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return entry{}, fmt.Errorf("unable to decode %s: %w", location, err)
	}
	e = entry{img: img, data: data}

	l.mu.Lock()
	l.cache[location] = e
	l.mu.Unlock()
	return e, nil
}

// LoadOrPlaceholder never fails: broken or missing assets are replaced with
// placeholder image (or nil if there is no placeholder either).
func (l *Loader) LoadOrPlaceholder(ctx context.Context, location string) image.Image {
	if location == "" {
		return nil
	}
	img, err := l.Load(ctx, location)
	if err == nil {
		return img
	}
	l.log.Warn("Unable to load asset, using placeholder", zap.String("location", location), zap.Error(err))
	return l.Placeholder()
}

// Placeholder returns rasterized placeholder image.
func (l *Loader) Placeholder() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.broken == nil && len(l.placeholder) > 0 {
		img, _, err := Decode(l.placeholder)
		if err != nil {
			l.log.Error("Unable to decode placeholder image", zap.Error(err))
			return nil
		}
		l.broken = img
	}
	return l.broken
}

// PlaceholderData returns placeholder source as given to NewLoader.
func (l *Loader) PlaceholderData() []byte {
	return l.placeholder
}

// Forget drops cached image, it will be loaded again on next use.
// Locations nobody is going to draw any more should be forgotten, decoded
// images are large.
func (l *Loader) Forget(location string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, location)
}

// Cached returns number of decoded images held.
func (l *Loader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Decode sniffs data and decodes it, SVG included. Returned format is MIME
// type of the source.
func Decode(data []byte) (image.Image, string, error) {
	if imgutil.IsSVG(data) {
		img, err := imgutil.RasterizeSVG(data, 0, 0, 1.0, nil)
		if err != nil {
			return nil, "", err
		}
		return img, "image/svg+xml", nil
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return nil, "", fmt.Errorf("unrecognized image content (%d bytes)", len(data))
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return img, kind.MIME.Value, nil
}

func decodeDataURI(location string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(location, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
