package layout

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"

	"sbadm/entity"
)

// ErrDimensionMismatch is wrapped by ValidationError when image is not of
// required size.
var ErrDimensionMismatch = errors.New("image dimensions mismatch")

// ValidationError blocks submission, Message is meant for the user.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateDedicationBackground decodes image and checks that its natural
// size is exactly w x h. Decoded image is returned on success.
func ValidateDedicationBackground(data []byte, w, h int) (image.Image, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "background", Message: "dedication background image is required"}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ValidationError{Field: "background", Message: "unable to read dedication background image", Err: err}
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return nil, &ValidationError{
			Field:   "background",
			Message: fmt.Sprintf("dedication background must be exactly %dx%d pixels, got %dx%d", w, h, b.Dx(), b.Dy()),
			Err:     ErrDimensionMismatch,
		}
	}
	return img, nil
}

// AcceptDedicationBackground validates uploaded image and only then sets it
// as page background (as embedded data location, so model stays offline).
// Page is left untouched on failure.
func AcceptDedicationBackground(page *entity.Page, data []byte, w, h int) error {
	if page == nil {
		return errors.New("no page")
	}
	if _, err := ValidateDedicationBackground(data, w, h); err != nil {
		return err
	}
	mime := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	page.Background = &entity.AssetRef{URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)}
	return nil
}
