// Package common keeps enums shared by configuration and processing packages
// so config does not have to depend on any of them.
package common

//go:generate go tool go-enum --names --marshal --nocomments=false

// Kind of the storybook page, unknown tags are treated as story pages.
// ENUM(story, cover, dedication)
type PageKind int

// ParsePageKindLoose never fails, anything unrecognized is a story page.
func ParsePageKindLoose(name string) PageKind {
	if k, err := ParsePageKind(name); err == nil {
		return k
	}
	return PageKindStory
}

// Reader gender used to pick pronouns, "both" is also used when unspecified.
// ENUM(both, male, female)
type Gender int

// ParseGenderLoose never fails, anything unrecognized is "both".
func ParseGenderLoose(name string) Gender {
	if g, err := ParseGender(name); err == nil {
		return g
	}
	return GenderBoth
}

// Side of the story page character image is anchored to.
// ENUM(auto, left, right)
type Anchor int

// Live update connection state.
// ENUM(disconnected, connecting, connected, error, reconnecting)
type ConnState int

// Resource collections exposed by admin API.
// ENUM(books, generations, storybooks)
type Resource int

// Path returns API path segment for the resource.
func (r Resource) Path() string {
	return "/" + r.String()
}

// Encoding of captured page frames.
// ENUM(jpeg, png)
type FrameFormat int

func (f FrameFormat) MimeType() string {
	switch f {
	case FrameFormatPng:
		return "image/png"
	default:
		return "image/jpeg"
	}
}
