package export

import (
	"context"
	"fmt"
	"image"
	"sync"

	"sbadm/asset"
	"sbadm/entity"
	"sbadm/layout"
	"sbadm/render"
)

// BookPager renders pages of a storybook with raster renderer. When given
// loader it downloads page assets in Prepare and releases decoded images as
// soon as no page left to capture uses them.
type BookPager struct {
	book   *entity.Storybook
	lctx   *layout.Context
	cache  *layout.Cache
	canvas *render.Canvas
	loader *asset.Loader

	mu     sync.Mutex
	active int
	// pages yet to be captured per asset location, nil until first use
	uses     map[string]int
	released map[int]bool
}

func NewBookPager(book *entity.Storybook, lctx *layout.Context, cache *layout.Cache, canvas *render.Canvas, loader *asset.Loader) *BookPager {
	if cache == nil {
		cache = layout.NewCache(0)
	}
	return &BookPager{book: book, lctx: lctx, cache: cache, canvas: canvas, loader: loader}
}

func (p *BookPager) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *BookPager) SetActive(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = index
}

func (p *BookPager) model(index int) (*layout.Model, error) {
	if p.book == nil || index < 0 || index >= len(p.book.Pages) {
		return nil, fmt.Errorf("no page %d to capture", index+1)
	}
	m, _ := p.cache.Get(&p.book.Pages[index], index, p.lctx)
	if m == nil {
		return nil, fmt.Errorf("page %d has nothing to render", index+1)
	}
	return m, nil
}

// locations returns distinct asset locations of the page.
func (p *BookPager) locations(index int) []string {
	m, err := p.model(index)
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, img := range m.Images() {
		if !seen[img.URL] {
			seen[img.URL] = true
			out = append(out, img.URL)
		}
	}
	return out
}

// Prepare downloads and decodes assets of active page. Any failure fails the
// page, document must not get placeholders.
func (p *BookPager) Prepare(ctx context.Context) error {
	if p.loader == nil {
		return nil
	}
	index := p.Active()
	for _, loc := range p.locations(index) {
		if _, err := p.loader.Load(ctx, loc); err != nil {
			return fmt.Errorf("unable to load page %d asset: %w", index+1, err)
		}
	}
	return nil
}

// Capture draws active page.
func (p *BookPager) Capture(ctx context.Context) (image.Image, error) {
	index := p.Active()
	m, err := p.model(index)
	if err != nil {
		return nil, err
	}
	defer p.release(index)

	img, err := p.canvas.Draw(ctx, m)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// release forgets assets of captured page nobody else is going to draw.
func (p *BookPager) release(index int) {
	if p.loader == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.uses == nil {
		p.uses = make(map[string]int)
		p.released = make(map[int]bool)
		for i := range p.book.Pages {
			for _, loc := range p.locations(i) {
				p.uses[loc]++
			}
		}
	}
	if p.released[index] {
		return
	}
	p.released[index] = true
	for _, loc := range p.locations(index) {
		if p.uses[loc]--; p.uses[loc] <= 0 {
			p.loader.Forget(loc)
		}
	}
}
