package asset

import (
	"testing"

	"sbadm/entity"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		ref  *entity.AssetRef
		want string
	}{
		{"signed wins", &entity.AssetRef{URL: "a", SignedURL: "b"}, "b"},
		{"direct only", &entity.AssetRef{URL: "a"}, "a"},
		{"empty", &entity.AssetRef{}, ""},
		{"nil", nil, ""},
		{"download last", &entity.AssetRef{DownloadURL: "d"}, "d"},
		{"direct before download", &entity.AssetRef{URL: "a", DownloadURL: "d"}, "a"},
		{"blank skipped", &entity.AssetRef{SignedURL: "   ", URL: " a "}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.ref); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveWith(t *testing.T) {
	ref := &entity.AssetRef{URL: "a", SignedURL: "b", DownloadURL: "c"}
	if got := ResolveWith(ref, DownloadOrder...); got != "c" {
		t.Errorf("ResolveWith(download) = %q, want c", got)
	}
	if got := ResolveWith(ref); got != "" {
		t.Errorf("ResolveWith() without order = %q, want empty", got)
	}
}

func TestResolveAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", " x.png ", "x.png"},
		{"map camel", map[string]any{"url": "a", "signedUrl": "b"}, "b"},
		{"map snake", map[string]any{"download_url": "d"}, "d"},
		{"struct", entity.AssetRef{URL: "a"}, "a"},
		{"number", 12, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAny(tt.in); got != tt.want {
				t.Errorf("ResolveAny() = %q, want %q", got, tt.want)
			}
		})
	}
}
