// Package reconcile merges entity updates into ordered collections.
//
// Collection is a slice of records unique by id and sorted by creation time
// newest first. All functions return new slices and never modify records
// they were given.
package reconcile

import (
	"reflect"
	"slices"

	"sbadm/entity"
)

// DefaultArrayFields lists sub collections server always sends as complete
// snapshots.
var DefaultArrayFields = []string{"events", "logs", "pages", "imageAssets"}

type Options struct {
	// ArrayFields are replaced wholesale when incoming value is an array and
	// kept otherwise. Nil means DefaultArrayFields.
	ArrayFields []string
	// Retain caps collection size after insert, 0 means no cap.
	Retain int
}

func (o Options) arrayFields() []string {
	if o.ArrayFields == nil {
		return DefaultArrayFields
	}
	return o.ArrayFields
}

// Upsert inserts incoming record or merges it into existing one with the
// same id. Record without id is ignored and collection is returned as is.
func Upsert(collection []entity.Record, incoming entity.Record, opts Options) []entity.Record {
	id := incoming.ID()
	if id == "" {
		return collection
	}

	idx := slices.IndexFunc(collection, func(r entity.Record) bool { return r.ID() == id })

	var out []entity.Record
	if idx < 0 {
		out = make([]entity.Record, 0, len(collection)+1)
		out = append(out, Merge(nil, incoming, opts.arrayFields()))
		out = append(out, collection...)
	} else {
		out = slices.Clone(collection)
		out[idx] = Merge(collection[idx], incoming, opts.arrayFields())
	}
	Sort(out)

	if opts.Retain > 0 && len(out) > opts.Retain {
		out = slices.Clip(out[:opts.Retain])
	}
	return out
}

// Merge returns new record with incoming fields laid over current ones.
// Designated array fields are never merged element-wise.
func Merge(current, incoming entity.Record, arrayFields []string) entity.Record {
	out := current.Clone()
	if out == nil {
		out = make(entity.Record, len(incoming))
	}
	for k, v := range incoming {
		if slices.Contains(arrayFields, k) {
			if isArray(v) {
				out[k] = v
			}
			continue
		}
		out[k] = v
	}
	return out
}

// Remove drops record with given id.
func Remove(collection []entity.Record, id string) []entity.Record {
	if id == "" {
		return collection
	}
	return slices.DeleteFunc(slices.Clone(collection), func(r entity.Record) bool { return r.ID() == id })
}

// Sort orders collection by creation time, newest first. Sort is stable,
// records without usable time stamp go last.
func Sort(collection []entity.Record) {
	slices.SortStableFunc(collection, newestFirst)
}

// IsSorted reports whether collection satisfies Sort order.
func IsSorted(collection []entity.Record) bool {
	return slices.IsSortedFunc(collection, newestFirst)
}

func newestFirst(a, b entity.Record) int {
	ta, oka := a.CreatedAt()
	tb, okb := b.CreatedAt()
	switch {
	case oka && okb:
		return tb.Compare(ta)
	case oka:
		return -1
	case okb:
		return 1
	}
	return 0
}

func isArray(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}
