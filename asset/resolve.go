// Package asset picks usable locations out of asset references and loads
// the images they point to.
package asset

import (
	"strings"

	"sbadm/entity"
)

// Field names one location carried by entity.AssetRef.
type Field int

const (
	Signed Field = iota
	Direct
	Download
)

var (
	// DefaultOrder is used for rendering: signed urls are the only ones
	// guaranteed to be readable without credentials.
	DefaultOrder = []Field{Signed, Direct, Download}
	// DownloadOrder is used when saving originals.
	DownloadOrder = []Field{Download, Signed, Direct}
)

// Resolve returns first non empty location in default priority order or
// "" if reference is nil or empty.
func Resolve(ref *entity.AssetRef) string {
	return ResolveWith(ref, DefaultOrder...)
}

// ResolveWith is Resolve with caller supplied priority.
func ResolveWith(ref *entity.AssetRef, order ...Field) string {
	if ref == nil {
		return ""
	}
	for _, f := range order {
		var s string
		switch f {
		case Signed:
			s = ref.SignedURL
		case Direct:
			s = ref.URL
		case Download:
			s = ref.DownloadURL
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// ResolveAny accepts loosely typed value as found in entity.Record.
func ResolveAny(v any) string {
	return Resolve(entity.AssetFromValue(v))
}
