package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

const iconSize = 32

var (
	iconMu    sync.Mutex
	iconCache = map[string][]byte{}
)

// GetIcon returns the PNG icon for the given state.
func GetIcon(state string) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()

	if b, ok := iconCache[state]; ok {
		return b
	}
	var b []byte
	switch state {
	case "active":
		b = GenerateOnionIcon(color.NRGBA{R: 125, G: 70, B: 152, A: 255}) // Tor purple
	case "busy":
		b = GenerateOnionIcon(color.NRGBA{R: 240, G: 190, B: 30, A: 255}) // Amber
	case "error":
		b = GenerateOnionIcon(color.NRGBA{R: 220, G: 55, B: 55, A: 255}) // Red
	default:
		b = GenerateOnionIcon(color.NRGBA{R: 160, G: 160, B: 160, A: 255}) // Gray (inactive)
	}
	iconCache[state] = b
	return b
}

// GenerateOnionIcon renders an onion (bulb with concentric layers and a
// sprout) at 32x32 on a transparent background.
func GenerateOnionIcon(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))

	// Dark variant for the layer lines
	dark := color.NRGBA{R: c.R / 3, G: c.G / 3, B: c.B / 3, A: 255}
	lum := int(c.R)*299 + int(c.G)*587 + int(c.B)*114
	if lum > 128000 {
		dark = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	}

	const cx, cy = 15.5, 18.5
	const radius = 12.0

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			// Narrow the top half into a bulb.
			if dy < 0 {
				dx *= 1 + (-dy/radius)*0.45
			}
			d := math.Hypot(dx, dy)
			if d > radius+0.5 {
				continue
			}

			px := c
			// Concentric layers every 4px and a hard outline
			if math.Abs(d-radius) < 1.0 || math.Abs(d-8) < 0.6 || math.Abs(d-4) < 0.6 {
				px = dark
			}
			// Anti-aliased rim
			if d > radius {
				px.A = uint8(255 * (radius + 0.5 - d) * 2)
			}
			img.SetNRGBA(x, y, px)
		}
	}

	// Sprout
	for y := 1; y <= 6; y++ {
		img.SetNRGBA(15, y, dark)
		img.SetNRGBA(16, y, dark)
	}
	img.SetNRGBA(17, 2, dark)
	img.SetNRGBA(18, 1, dark)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
