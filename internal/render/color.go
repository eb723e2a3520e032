package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Palette used by the scene.
var (
	White     = Color{255, 255, 255, 255}
	Red       = Color{230, 41, 55, 255}
	Green     = Color{0, 228, 48, 255}
	Blue      = Color{0, 121, 241, 255}
	Yellow    = Color{253, 249, 0, 255}
	SkyBlue   = Color{102, 191, 255, 255}
	Purple    = Color{200, 122, 255, 255}
	Brown     = Color{127, 106, 79, 255}
	Gray      = Color{130, 130, 130, 255}
	LightGray = Color{200, 200, 200, 255}
)

var named = map[string]Color{
	"white":     White,
	"red":       Red,
	"green":     Green,
	"blue":      Blue,
	"yellow":    Yellow,
	"skyblue":   SkyBlue,
	"purple":    Purple,
	"brown":     Brown,
	"gray":      Gray,
	"lightgray": LightGray,
}

// Named looks up a palette color by name. Unknown names are white.
func Named(name string) Color {
	if c, ok := named[strings.ToLower(name)]; ok {
		return c
	}
	return White
}

// Hex formats c as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// MarshalJSON encodes the color as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}
