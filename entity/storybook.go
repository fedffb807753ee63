package entity

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"sbadm/common"
)

type (
	// CoverMeta is cover page specific content. Strings may contain {name}
	// and pronoun placeholders.
	CoverMeta struct {
		Headline string    `json:"headline,omitempty"`
		Body     string    `json:"body,omitempty"`
		Footer   string    `json:"footer,omitempty"`
		QRCode   *AssetRef `json:"qrCode,omitempty"`
		// overrides configured upper-casing of reader name when set
		UppercaseName *bool `json:"uppercaseName,omitempty"`
	}

	DedicationMeta struct {
		Title    string    `json:"title,omitempty"`
		Subtitle string    `json:"subtitle,omitempty"`
		Portrait *AssetRef `json:"portrait,omitempty"`
	}

	// Candidate is one of several ranked alternative renders for a page.
	Candidate struct {
		Index   int       `json:"index"`
		Asset   *AssetRef `json:"asset,omitempty"`
		Score   *float64  `json:"score,omitempty"`
		Verdict string    `json:"verdict,omitempty"`
		Notes   string    `json:"notes,omitempty"`
	}

	Page struct {
		ID                string          `json:"id,omitempty"`
		Type              string          `json:"type,omitempty"`
		Text              string          `json:"text,omitempty"`
		Quote             string          `json:"quote,omitempty"`
		Background        *AssetRef       `json:"background,omitempty"`
		Character         *AssetRef       `json:"character,omitempty"`
		CharacterPosition string          `json:"characterPosition,omitempty"`
		Cover             *CoverMeta      `json:"cover,omitempty"`
		Dedication        *DedicationMeta `json:"dedication,omitempty"`
		Candidates        []Candidate     `json:"candidates,omitempty"`
		SelectedCandidate *int            `json:"selectedCandidate,omitempty"`
	}

	Storybook struct {
		ID           string    `json:"id"`
		Title        string    `json:"title"`
		Status       string    `json:"status,omitempty"`
		CreatedAt    Timestamp `json:"createdAt,omitzero"`
		ReaderName   string    `json:"readerName,omitempty"`
		ReaderGender string    `json:"readerGender,omitempty"`
		Pages        []Page    `json:"pages"`
	}
)

// Kind classifies page, unrecognized tags are story pages.
func (p *Page) Kind() common.PageKind {
	return common.ParsePageKindLoose(p.Type)
}

// Anchor returns explicit character position override, auto when absent.
func (p *Page) Anchor() common.Anchor {
	if a, err := common.ParseAnchor(p.CharacterPosition); err == nil {
		return a
	}
	return common.AnchorAuto
}

// IsSelected reports whether candidate is the one currently selected for
// the page.
func (c *Candidate) IsSelected(p *Page) bool {
	return p != nil && p.SelectedCandidate != nil && *p.SelectedCandidate == c.Index
}

// Candidate returns selected candidate or nil.
func (p *Page) Candidate() *Candidate {
	for i := range p.Candidates {
		if p.Candidates[i].IsSelected(p) {
			return &p.Candidates[i]
		}
	}
	return nil
}

// RankedCandidates returns copy of candidates ordered by score (unscored
// last) then by index.
func (p *Page) RankedCandidates() []Candidate {
	out := slices.Clone(p.Candidates)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score != nil && b.Score != nil:
			if c := cmp.Compare(*b.Score, *a.Score); c != 0 {
				return c
			}
		case a.Score != nil:
			return -1
		case b.Score != nil:
			return 1
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return out
}

// CharacterAsset returns selected candidate render if any, page character
// image otherwise.
func (p *Page) CharacterAsset() *AssetRef {
	if c := p.Candidate(); c != nil && !c.Asset.IsZero() {
		return c.Asset
	}
	return p.Character
}

func (s *Storybook) Gender() common.Gender {
	return common.ParseGenderLoose(s.ReaderGender)
}

// Decode converts loose record into typed view.
func Decode[T any](r Record) (*T, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("unable to encode record: %w", err)
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("unable to decode record as %T: %w", *v, err)
	}
	return v, nil
}
