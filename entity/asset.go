package entity

import (
	"encoding/json"
	"fmt"
)

// AssetRef describes an image or file. Any subset of fields may be present.
type AssetRef struct {
	URL         string `json:"url,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	SignedURL   string `json:"signedUrl,omitempty"`
}

// IsZero reports whether reference carries no location at all.
func (a *AssetRef) IsZero() bool {
	return a == nil || (a.URL == "" && a.DownloadURL == "" && a.SignedURL == "")
}

// UnmarshalJSON accepts both camelCase and snake_case keys and a bare string,
// which is treated as direct url.
func (a *AssetRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = AssetRef{URL: s}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unable to decode asset reference: %w", err)
	}
	*a = assetFromMap(m)
	return nil
}

// AssetFromValue converts loosely typed value (as found in Record) into
// asset reference. Returns nil when value cannot describe an asset.
func AssetFromValue(v any) *AssetRef {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return &AssetRef{URL: v}
	case *AssetRef:
		return v
	case AssetRef:
		return &v
	case map[string]any:
		a := assetFromMap(v)
		return &a
	case Record:
		a := assetFromMap(v)
		return &a
	}
	return nil
}

func assetFromMap(m map[string]any) AssetRef {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return AssetRef{
		URL:         pick("url"),
		DownloadURL: pick("downloadUrl", "download_url"),
		SignedURL:   pick("signedUrl", "signed_url"),
	}
}
