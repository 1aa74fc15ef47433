package color_test

import (
	"testing"

	"oss.terrastruct.com/util-go/assert"

	"oss.terrastruct.com/mathtext/lib/color"
)

func TestHex(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  string
		exp string
	}{
		{"red", "#ff0000"},
		{"#0f0", "#00ff00"},
		{"rgb(0, 0, 255)", "#0000ff"},
		{"rgba(0, 0, 255, 0.5)", "#0000ff"},
	}
	for _, tc := range testCases {
		got, err := color.Hex(tc.in)
		assert.Success(t, err)
		assert.String(t, tc.exp, got)
	}

	_, err := color.Hex("notacolor")
	assert.True(t, err != nil)
}

func TestTint(t *testing.T) {
	t.Parallel()

	got, err := color.Tint("black", 1)
	assert.Success(t, err)
	assert.String(t, "#ffffff", got)

	got, err = color.Tint("#ff0000", 0)
	assert.Success(t, err)
	assert.String(t, "#ff0000", got)
}

func TestIsDark(t *testing.T) {
	t.Parallel()

	dark, err := color.IsDark("navy")
	assert.Success(t, err)
	assert.True(t, dark)

	dark, err = color.IsDark("white")
	assert.Success(t, err)
	assert.True(t, !dark)
}

func TestColorize(t *testing.T) {
	t.Parallel()

	svg := `<path fill="currentColor" stroke="currentColor"/>`
	got, err := color.Colorize(svg, "blue")
	assert.Success(t, err)
	assert.String(t, `<path fill="#0000ff" stroke="#0000ff"/>`, got)

	got, err = color.Colorize(svg, "")
	assert.Success(t, err)
	assert.String(t, svg, got)

	_, err = color.Colorize(svg, "bogus")
	assert.True(t, err != nil)
}
