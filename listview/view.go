package listview

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/entity"
	"sbadm/reconcile"
)

// Client is the part of API client view needs.
type Client interface {
	List(ctx context.Context, resource common.Resource, params url.Values) (*entity.ListResponse, error)
	Create(ctx context.Context, resource common.Resource, body any) (entity.Record, error)
	Update(ctx context.Context, resource common.Resource, id string, body any) (entity.Record, error)
	Delete(ctx context.Context, resource common.Resource, id string) error
}

// View owns collection of a single list screen. Records arrive either from
// paginated fetch, which replaces the page, or one by one from live updates
// and user actions, which are reconciled into it.
type View struct {
	resource common.Resource
	ctrl     *Controller
	client   Client
	opts     reconcile.Options
	log      *zap.Logger

	mu    sync.Mutex
	items []entity.Record
	stats map[string]any
}

func NewView(resource common.Resource, ctrl *Controller, client Client, opts reconcile.Options, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{
		resource: resource,
		ctrl:     ctrl,
		client:   client,
		opts:     opts,
		log:      log.Named("view").With(zap.Stringer("resource", resource)),
	}
}

func (v *View) Controller() *Controller {
	return v.ctrl
}

// Refresh fetches page for current controller state. On failure previous
// collection is kept. Response to superseded fetch is dropped and reported
// as not applied.
func (v *View) Refresh(ctx context.Context) (bool, error) {
	token, params := v.ctrl.BeginFetch()

	resp, err := v.client.List(ctx, v.resource, params)
	if err != nil {
		v.ctrl.Fail(token)
		return false, fmt.Errorf("unable to list %s: %w", v.resource, err)
	}
	if !v.ctrl.Accept(token, resp.Pagination) {
		v.log.Debug("Dropping stale list response", zap.Uint64("token", uint64(token)), zap.String("params", params.Encode()))
		return false, nil
	}

	items := slices.Clone(resp.Data)
	items = slices.DeleteFunc(items, func(r entity.Record) bool { return r.ID() == "" })
	reconcile.Sort(items)

	v.mu.Lock()
	v.items = items
	v.stats = resp.Stats
	v.mu.Unlock()
	return true, nil
}

// Apply reconciles single record into collection.
func (v *View) Apply(rec entity.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = reconcile.Upsert(v.items, rec, v.opts)
}

// Save creates record (empty id) or updates existing one and reconciles
// server answer into collection.
func (v *View) Save(ctx context.Context, id string, body any) (entity.Record, error) {
	var (
		rec entity.Record
		err error
	)
	if id == "" {
		rec, err = v.client.Create(ctx, v.resource, body)
	} else {
		rec, err = v.client.Update(ctx, v.resource, id, body)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to save %s: %w", v.resource, err)
	}
	if rec.ID() == "" {
		v.log.Debug("Saved record has no id, not merging", zap.String("id", id))
		return rec, nil
	}
	v.Apply(rec)
	return rec, nil
}

// Delete removes record on server and then locally.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.client.Delete(ctx, v.resource, id); err != nil {
		return fmt.Errorf("unable to delete %s %s: %w", v.resource, id, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = reconcile.Remove(v.items, id)
	return nil
}

// Items returns snapshot of the collection.
func (v *View) Items() []entity.Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.items)
}

// Stats returns aggregate sent with the last accepted page and its keys in
// natural order.
func (v *View) Stats() (map[string]any, []string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	keys := make([]string, 0, len(v.stats))
	for k := range v.stats {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))
	return v.stats, keys
}
