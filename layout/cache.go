package layout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"sbadm/asset"
	"sbadm/entity"
)

// Key derives cache key from everything model depends on: resolved asset
// locations, texts, reader name and gender, effective upper-casing and
// render settings.
func Key(page *entity.Page, index int, ctx *Context) string {
	h := sha256.New()
	field := func(name string, v any) {
		fmt.Fprintf(h, "%s=%v\x00", name, v)
	}
	field("kind", page.Kind())
	field("index", index)
	field("anchor", page.Anchor())
	field("background", asset.Resolve(page.Background))
	field("character", asset.Resolve(page.CharacterAsset()))
	field("text", page.Text)
	field("quote", page.Quote)
	if c := page.Cover; c != nil {
		field("headline", c.Headline)
		field("body", c.Body)
		field("footer", c.Footer)
		field("qr", asset.Resolve(c.QRCode))
		if c.UppercaseName != nil {
			field("upper", *c.UppercaseName)
		}
	}
	if d := page.Dedication; d != nil {
		field("title", d.Title)
		field("subtitle", d.Subtitle)
		field("portrait", asset.Resolve(d.Portrait))
	}
	field("reader", ctx.ReaderName)
	field("gender", ctx.Gender)
	if ctx.Render != nil {
		// nested structs print as {..} with all values
		field("render", *ctx.Render)
	}
	if f, ok := ctx.Measurer.(*Fonts); ok {
		io.WriteString(h, f.Family)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache memoizes built models, the same content is never laid out twice.
// When cache grows over its limit oldest entries are dropped.
type Cache struct {
	limit int

	mu     sync.Mutex
	models map[string]*Model
	order  []string
	hits   int
	misses int
}

func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = 256
	}
	return &Cache{limit: limit, models: make(map[string]*Model)}
}

// Get returns cached model or builds a new one. Second result reports cache
// hit. Models are shared and must not be modified.
func (c *Cache) Get(page *entity.Page, index int, ctx *Context) (*Model, bool) {
	if page == nil || ctx == nil {
		return nil, false
	}
	key := Key(page, index, ctx)

	c.mu.Lock()
	if m, ok := c.models[key]; ok {
		c.hits++
		c.mu.Unlock()
		return m, true
	}
	c.misses++
	c.mu.Unlock()

	m := Build(page, index, ctx)
	if m == nil {
		return nil, false
	}
	m.Key = key

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.models[key]; !ok {
		c.models[key] = m
		c.order = append(c.order, key)
		for len(c.order) > c.limit {
			delete(c.models, c.order[0])
			c.order = c.order[1:]
		}
	}
	return m, false
}

// Stats returns number of hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}
