package listview

import (
	"testing"
	"time"

	"sbadm/entity"
	"sbadm/utils/timing"
)

func newTestController(t *testing.T) (*Controller, *timing.FakeClock, *int) {
	t.Helper()
	clock := timing.NewFakeClock(time.Unix(0, 0))
	c, err := NewController(Settings{
		AllowedLimits:  []int{10, 20, 50},
		DefaultLimit:   20,
		SearchDebounce: 400 * time.Millisecond,
		Clock:          clock,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changes := new(int)
	c.OnChange(func() { *changes++ })
	return c, clock, changes
}

func TestNewController_Errors(t *testing.T) {
	if _, err := NewController(Settings{}); err == nil {
		t.Error("expected error for empty limits")
	}
	if _, err := NewController(Settings{AllowedLimits: []int{10}, DefaultLimit: 20}); err == nil {
		t.Error("expected error for default limit outside allowed set")
	}
}

func TestController_SearchDebounce(t *testing.T) {
	c, clock, changes := newTestController(t)
	c.SetPage(3)
	*changes = 0

	for _, s := range []string{"a", "ab", "abc"} {
		c.SetSearch(s)
		clock.Advance(150 * time.Millisecond)
	}
	if *changes != 0 {
		t.Fatalf("search applied before quiet period: %d changes", *changes)
	}
	if raw, eff := c.Search(); raw != "abc" || eff != "" {
		t.Fatalf("Search() = %q, %q", raw, eff)
	}
	clock.Advance(400 * time.Millisecond)
	if *changes != 1 {
		t.Fatalf("expected exactly one downstream search, got %d", *changes)
	}
	p := c.RequestParams()
	if p.Get("search") != "abc" || p.Get("page") != "1" {
		t.Errorf("unexpected params %v", p)
	}

	// same effective term again does not refetch
	c.SetSearch("abc")
	clock.Advance(time.Second)
	if *changes != 1 {
		t.Errorf("unchanged search caused fetch, changes = %d", *changes)
	}
}

func TestController_FilterReset(t *testing.T) {
	tests := []struct {
		name   string
		change func(c *Controller)
	}{
		{"status", func(c *Controller) { c.SetStatus("failed") }},
		{"limit", func(c *Controller) {
			if err := c.SetLimit(50); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}},
		{"facet", func(c *Controller) { c.SetFacet("bookId", "b1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, changes := newTestController(t)
			c.SetPage(3)
			*changes = 0
			tt.change(c)
			if c.Page() != 1 {
				t.Errorf("page = %d, want 1", c.Page())
			}
			if *changes != 1 {
				t.Errorf("changes = %d, want 1", *changes)
			}
		})
	}
}

func TestController_PageKeepsFilters(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetStatus("done")
	c.SetFacet("bookId", "b1")
	c.SetPage(4)

	p := c.RequestParams()
	if p.Get("page") != "4" || p.Get("status") != "done" || p.Get("bookId") != "b1" {
		t.Errorf("unexpected params %v", p)
	}
	c.SetPage(-2)
	if c.Page() != 1 {
		t.Errorf("page must be clamped to 1, got %d", c.Page())
	}
}

func TestController_RequestParamsOmitSentinels(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetStatus(AllValue)
	c.SetFacet("bookId", AllValue)
	p := c.RequestParams()
	if len(p) != 2 || p.Get("page") != "1" || p.Get("limit") != "20" {
		t.Errorf("unexpected params %v", p)
	}
	c.SetFacet("bookId", "x")
	c.SetFacet("bookId", "")
	if p := c.RequestParams(); p.Has("bookId") {
		t.Errorf("facet not removed: %v", p)
	}
	if err := c.SetLimit(7); err == nil {
		t.Error("expected error for limit outside allowed set")
	}
}

func TestController_EnvelopeDivergence(t *testing.T) {
	c, _, changes := newTestController(t)
	c.SetPage(5)
	*changes = 0

	token, params := c.BeginFetch()
	if params.Get("page") != "5" {
		t.Fatalf("unexpected params %v", params)
	}
	if !c.Accept(token, entity.Envelope{Page: 3, TotalPages: 3, Total: 55, Limit: 20, HasPrevPage: true}) {
		t.Fatal("latest response must be accepted")
	}
	if c.Page() != 3 {
		t.Fatalf("page = %d, want 3", c.Page())
	}
	if *changes != 1 {
		t.Fatalf("expected one corrective change, got %d", *changes)
	}

	// corrective fetch returns the same page, nothing more happens
	token, params = c.BeginFetch()
	if params.Get("page") != "3" {
		t.Fatalf("unexpected params %v", params)
	}
	c.Accept(token, entity.Envelope{Page: 3, TotalPages: 3, Total: 55, Limit: 20, HasPrevPage: true})
	if *changes != 1 {
		t.Errorf("expected no further changes, got %d", *changes)
	}

	d := c.Display()
	if d.Start != 41 || d.End != 55 || d.TotalPages != 3 || !d.CanPrev || d.CanNext {
		t.Errorf("unexpected display %+v", d)
	}
}

func TestController_StaleTokens(t *testing.T) {
	c, _, _ := newTestController(t)
	first, _ := c.BeginFetch()
	second, _ := c.BeginFetch()

	if c.Accept(first, entity.Envelope{Page: 7}) {
		t.Error("stale response accepted")
	}
	if c.Page() != 1 {
		t.Errorf("stale response changed page to %d", c.Page())
	}
	if !c.Fetching() {
		t.Error("stale response must not end latest fetch")
	}
	c.Fail(first)
	if !c.Fetching() {
		t.Error("stale failure must not end latest fetch")
	}
	c.Fail(second)
	if c.Fetching() {
		t.Error("latest failure must end fetch")
	}
}

func TestController_Navigation(t *testing.T) {
	c, _, _ := newTestController(t)
	if c.Next() {
		t.Error("next must be disabled before envelope")
	}

	token, _ := c.BeginFetch()
	if c.Next() {
		t.Error("next must be disabled while fetching")
	}
	c.Accept(token, entity.Envelope{Page: 1, TotalPages: 2, Total: 30, HasNextPage: true})
	if !c.Next() || c.Page() != 2 {
		t.Fatalf("next failed, page = %d", c.Page())
	}

	token, _ = c.BeginFetch()
	c.Accept(token, entity.Envelope{Page: 2, TotalPages: 2, Total: 30, HasPrevPage: true})
	if c.Next() {
		t.Error("next must be disabled on last page")
	}
	if !c.Prev() || c.Page() != 1 {
		t.Errorf("prev failed, page = %d", c.Page())
	}
}

func TestController_Reset(t *testing.T) {
	c, clock, changes := newTestController(t)
	c.SetStatus("done")
	c.SetFacet("bookId", "b")
	if err := c.SetLimit(50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.SetSearch("pending")
	c.SetPage(2)
	*changes = 0

	c.Reset()
	if *changes != 1 {
		t.Errorf("reset must be a single change, got %d", *changes)
	}
	clock.Advance(time.Second)
	if *changes != 1 {
		t.Error("pending search fired after reset")
	}
	p := c.RequestParams()
	if len(p) != 2 || p.Get("page") != "1" || p.Get("limit") != "20" {
		t.Errorf("unexpected params after reset %v", p)
	}

	c.Reset()
	if *changes != 1 {
		t.Error("reset of default state must not cause fetch")
	}
}

func TestDisplay_Empty(t *testing.T) {
	c, _, _ := newTestController(t)
	token, _ := c.BeginFetch()
	c.Accept(token, entity.Envelope{Page: 1, TotalPages: 0, Total: 0})
	d := c.Display()
	if d.Start != 0 || d.End != 0 || d.TotalPages != 1 {
		t.Errorf("unexpected display %+v", d)
	}
}
