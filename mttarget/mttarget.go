// Package mttarget holds render outputs: the engine's SVG markup and its font relative
// geometry.
package mttarget

import (
	"fmt"
)

// RenderResult is the output of rendering one equation.
//
// ErrorText is set when the engine reported a TeX error. SVG may still be present in that
// case since the engine can draw its own error graphic.
type RenderResult struct {
	SVG       string   `json:"svg,omitempty"`
	Geometry  Geometry `json:"geometry"`
	ErrorText string   `json:"errorText,omitempty"`
}

// Valid reports whether r is a usable terminal result.
func (r RenderResult) Valid() bool {
	return r.SVG != "" || r.ErrorText != ""
}

func (r RenderResult) HasError() bool {
	return r.ErrorText != ""
}

// Geometry is measured in ex, the x-height of the font the equation is displayed with.
// Multiply by the x-height in points to get absolute sizes.
type Geometry struct {
	VerticalAlignment float64 `json:"verticalAlignment"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	ViewBox           Rect    `json:"viewBox"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%g %g %g %g", r.X, r.Y, r.Width, r.Height)
}

// Size returns the width and height in points for a font with the given x-height.
func (g Geometry) Size(xHeight float64) (width, height float64) {
	return g.Width * xHeight, g.Height * xHeight
}

// Baseline returns the vertical offset in points to align the image with surrounding text.
// It is negative when the equation descends below the baseline.
func (g Geometry) Baseline(xHeight float64) float64 {
	return g.VerticalAlignment * xHeight
}
