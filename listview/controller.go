// Package listview keeps pagination and filter state of a list screen and
// the reconciled page of records it shows.
package listview

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"sbadm/entity"
	"sbadm/utils/timing"
)

// AllValue is filter sentinel meaning "do not filter".
const AllValue = "all"

// Token identifies issued fetch, only response to the latest one is applied.
type Token uint64

type Settings struct {
	AllowedLimits  []int
	DefaultLimit   int
	SearchDebounce time.Duration
	Clock          timing.Clock
}

// Display is derived pagination information ready to be shown.
type Display struct {
	Page       int
	TotalPages int
	Total      int
	Start      int
	End        int
	CanPrev    bool
	CanNext    bool
}

// Controller owns page, page size, search and filter state. OnChange is
// called (outside of internal lock) every time state changes in a way that
// requires new fetch.
type Controller struct {
	allowed      []int
	defaultLimit int
	debouncer    *timing.Debouncer

	mu        sync.Mutex
	page      int
	limit     int
	search    string
	debounced string
	status    string
	facets    map[string]string
	envelope  entity.Envelope
	fetching  bool
	issued    Token
	onChange  func()
}

func NewController(s Settings) (*Controller, error) {
	if len(s.AllowedLimits) == 0 {
		return nil, fmt.Errorf("no allowed page sizes")
	}
	if !slices.Contains(s.AllowedLimits, s.DefaultLimit) {
		return nil, fmt.Errorf("default page size %d is not one of allowed %v", s.DefaultLimit, s.AllowedLimits)
	}
	return &Controller{
		allowed:      slices.Clone(s.AllowedLimits),
		defaultLimit: s.DefaultLimit,
		debouncer:    timing.NewDebouncer(s.Clock, s.SearchDebounce),
		page:         1,
		limit:        s.DefaultLimit,
		status:       AllValue,
		facets:       make(map[string]string),
	}, nil
}

// OnChange sets change callback.
func (c *Controller) OnChange(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = f
}

// update runs f under lock and fires change callback if f reports change.
func (c *Controller) update(f func() bool) {
	c.mu.Lock()
	changed := f()
	cb := c.onChange
	c.mu.Unlock()

	if changed && cb != nil {
		cb()
	}
}

// SetSearch records raw search input. Filtering follows only after input
// was quiet for debounce period, each call restarts it.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	c.search = term
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		c.update(func() bool {
			if c.debounced == term {
				return false
			}
			c.debounced = term
			c.page = 1
			return true
		})
	})
}

func (c *Controller) SetStatus(status string) {
	if status == "" {
		status = AllValue
	}
	c.update(func() bool {
		if c.status == status {
			return false
		}
		c.status = status
		c.page = 1
		return true
	})
}

// SetFacet sets named filter, AllValue or "" removes it.
func (c *Controller) SetFacet(name, value string) {
	c.update(func() bool {
		old, ok := c.facets[name]
		if value == "" || value == AllValue {
			if !ok {
				return false
			}
			delete(c.facets, name)
		} else {
			if ok && old == value {
				return false
			}
			c.facets[name] = value
		}
		c.page = 1
		return true
	})
}

func (c *Controller) SetLimit(limit int) error {
	if !slices.Contains(c.allowed, limit) {
		return fmt.Errorf("page size %d is not one of allowed %v", limit, c.allowed)
	}
	c.update(func() bool {
		if c.limit == limit {
			return false
		}
		c.limit = limit
		c.page = 1
		return true
	})
	return nil
}

// SetPage navigates without touching filters, page is clamped to 1.
func (c *Controller) SetPage(page int) {
	page = max(page, 1)
	c.update(func() bool {
		if c.page == page {
			return false
		}
		c.page = page
		return true
	})
}

// Next moves one page forward if server said there is one and no fetch is
// in flight.
func (c *Controller) Next() bool {
	moved := false
	c.update(func() bool {
		if !c.envelope.HasNextPage || c.fetching {
			return false
		}
		c.page++
		moved = true
		return true
	})
	return moved
}

func (c *Controller) Prev() bool {
	moved := false
	c.update(func() bool {
		if !c.envelope.HasPrevPage || c.fetching || c.page <= 1 {
			return false
		}
		c.page--
		moved = true
		return true
	})
	return moved
}

// Reset returns all filters and page to defaults in a single change.
func (c *Controller) Reset() {
	c.debouncer.Cancel()
	c.update(func() bool {
		changed := c.page != 1 || c.limit != c.defaultLimit || c.debounced != "" || c.status != AllValue || len(c.facets) != 0
		c.page, c.limit = 1, c.defaultLimit
		c.search, c.debounced = "", ""
		c.status = AllValue
		clear(c.facets)
		return changed
	})
}

func (c *Controller) params() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(c.page))
	v.Set("limit", strconv.Itoa(c.limit))
	if c.debounced != "" {
		v.Set("search", c.debounced)
	}
	if c.status != AllValue {
		v.Set("status", c.status)
	}
	for k, f := range c.facets {
		v.Set(k, f)
	}
	return v
}

// RequestParams returns query for current state, filters at their "all"
// value are omitted.
func (c *Controller) RequestParams() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params()
}

// BeginFetch issues new token invalidating all previous ones and returns
// it with request parameters it was issued for.
func (c *Controller) BeginFetch() (Token, url.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.issued++
	c.fetching = true
	return c.issued, c.params()
}

// Accept reports whether response to fetch identified by token may be
// applied and adopts its envelope. When server clamped requested page, its
// page becomes local one, change is only reported if page actually differs.
func (c *Controller) Accept(token Token, env entity.Envelope) bool {
	accepted := false
	c.update(func() bool {
		if token != c.issued {
			return false
		}
		accepted = true
		c.fetching = false
		c.envelope = env
		if env.Page >= 1 && env.Page != c.page {
			c.page = env.Page
			return true
		}
		return false
	})
	return accepted
}

// Fail marks fetch identified by token finished without result.
func (c *Controller) Fail(token Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.issued {
		c.fetching = false
	}
}

func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// Search returns raw and debounced search terms.
func (c *Controller) Search() (raw, effective string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search, c.debounced
}

func (c *Controller) Facets() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.facets)
}

func (c *Controller) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetching
}

// Display computes values shown next to the list.
func (c *Controller) Display() Display {
	c.mu.Lock()
	defer c.mu.Unlock()

	env := c.envelope
	d := Display{
		Page:       c.page,
		TotalPages: max(env.TotalPages, 1),
		Total:      env.Total,
		CanPrev:    env.HasPrevPage && !c.fetching,
		CanNext:    env.HasNextPage && !c.fetching,
	}
	if env.Total > 0 {
		d.Start = (c.page-1)*c.limit + 1
		d.End = min(c.page*c.limit, env.Total)
	}
	return d
}

// Stop cancels pending search debounce.
func (c *Controller) Stop() {
	c.debouncer.Cancel()
}
