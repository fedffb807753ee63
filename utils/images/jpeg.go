package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

type DpiType uint8

const (
	DpiNoUnits DpiType = iota
	DpiPxPerInch
	DpiPxPerSm
)

var (
	app0Marker = []byte{0xFF, 0xE0}
	jfifHeader = []byte{0x4A, 0x46, 0x49, 0x46, 0x00, 0x01, 0x02} // "JFIF\0" + version 1.2
)

// EnsureJFIFAPP0 inserts JFIF APP0 segment right after SOI when it is
// missing. Go encoder never writes one and without it PDF viewers fall back
// to 72dpi which makes exported pages print at the wrong physical size.
func EnsureJFIFAPP0(jpegData []byte, dpit DpiType, xdensity, ydensity int16) ([]byte, bool, error) {
	if len(jpegData) < 4 {
		return nil, false, errors.New("jpeg too small")
	}
	if jpegData[0] != 0xFF || jpegData[1] != 0xD8 {
		return nil, false, errors.New("not a jpeg")
	}
	if bytes.Equal(jpegData[2:4], app0Marker) {
		return jpegData, false, nil
	}

	seg := new(bytes.Buffer)
	seg.Grow(len(jpegData) + 18)
	seg.Write(jpegData[:2])
	seg.Write(app0Marker)
	_ = binary.Write(seg, binary.BigEndian, struct {
		Length   uint16
		Header   [7]byte
		Units    uint8
		XDensity uint16
		YDensity uint16
		Thumb    uint16
	}{
		Length:   0x10,
		Header:   [7]byte(jfifHeader),
		Units:    uint8(dpit),
		XDensity: uint16(xdensity),
		YDensity: uint16(ydensity),
	})
	seg.Write(jpegData[2:])
	return seg.Bytes(), true, nil
}

// EncodeJPEGWithDPI encodes img and stamps requested density.
func EncodeJPEGWithDPI(img image.Image, quality int, dpit DpiType, xdensity, ydensity int16) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	out, _, err := EnsureJFIFAPP0(buf.Bytes(), dpit, xdensity, ydensity)
	if err != nil {
		return nil, err
	}
	return out, nil
}
