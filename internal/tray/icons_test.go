package tray

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOnionIcon(t *testing.T) {
	purple := color.NRGBA{R: 125, G: 70, B: 152, A: 255}
	img, err := png.Decode(bytes.NewReader(GenerateOnionIcon(purple)))
	require.NoError(t, err)

	assert.Equal(t, iconSize, img.Bounds().Dx())
	assert.Equal(t, iconSize, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "corner is transparent")

	r, g, b, _ := img.At(13, 20).RGBA()
	assert.Equal(t, purple, color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255})
}

func TestGetIconCachesPerState(t *testing.T) {
	active := GetIcon("active")
	require.NotEmpty(t, active)
	assert.Equal(t, active, GetIcon("active"))
	assert.NotEqual(t, active, GetIcon("inactive"))
	assert.Equal(t, GetIcon("inactive"), GetIcon("unknown-state"))
}
