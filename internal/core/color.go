package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// colorFormatV1 tags the fixed-width RGBA encoding: [version, R, G, B, A].
const (
	colorFormatV1  byte = 0x01
	colorV1Length       = 5
)

// Color is a straight (non-premultiplied) RGBA display color.
type Color struct {
	R, G, B, A uint8
}

// DefaultColor is shown for cards without a stored or decodable color.
var DefaultColor = Color{R: 0x80, G: 0x00, B: 0x80, A: 0xFF}

var ErrInvalidColor = errors.New("invalid color")

// EncodeColor serializes c into the versioned byte blob stored with a card.
func EncodeColor(c Color) []byte {
	return []byte{colorFormatV1, c.R, c.G, c.B, c.A}
}

// DecodeColor returns the color encoded by EncodeColor. Any other input,
// including nil, yields ok=false.
func DecodeColor(b []byte) (Color, bool) {
	if len(b) != colorV1Length || b[0] != colorFormatV1 {
		return Color{}, false
	}
	return Color{R: b[1], G: b[2], B: b[3], A: b[4]}, true
}

// ParseHexColor accepts #RRGGBB or #RRGGBBAA (leading # optional).
func ParseHexColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("%w: %q must be #RRGGBB or #RRGGBBAA", ErrInvalidColor, s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %v", ErrInvalidColor, err)
	}
	c := Color{R: raw[0], G: raw[1], B: raw[2], A: 0xFF}
	if len(raw) == 4 {
		c.A = raw[3]
	}
	return c, nil
}

// Hex formats c as #RRGGBBAA.
func (c Color) Hex() string {
	return "#" + strings.ToUpper(hex.EncodeToString([]byte{c.R, c.G, c.B, c.A}))
}
