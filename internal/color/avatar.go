// Package color derives fallback avatar colors for forum members without a photo.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	saturation = 0.45
	lightness  = 0.6
)

// ForUser returns a stable hex color for an email. Case and surrounding
// whitespace do not change the color. An empty email is neutral gray.
func ForUser(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		r, g, b := hslToRGB(0, 0, lightness)
		return fmt.Sprintf("#%02X%02X%02X", r, g, b)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, saturation, lightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// Initials returns up to two uppercase initials of name, for drawing on the
// fallback avatar.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// hslToRGB converts a hue in degrees and saturation and lightness in [0,1] to RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r1, g1, b1 float64
	switch {
	case h < 60:
		r1, g1, b1 = c, x, 0
	case h < 120:
		r1, g1, b1 = x, c, 0
	case h < 180:
		r1, g1, b1 = 0, c, x
	case h < 240:
		r1, g1, b1 = 0, x, c
	case h < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	return uint8(math.Round((r1 + m) * 255)), uint8(math.Round((g1 + m) * 255)), uint8(math.Round((b1 + m) * 255))
}
