package mttarget

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrMissingSVGElement = errors.New("missing svg element")
	ErrMissingGeometry   = errors.New("missing svg geometry")
)

// ParsingError is returned when engine output does not carry the expected SVG root tag.
type ParsingError struct {
	// Err is ErrMissingSVGElement or ErrMissingGeometry.
	Err  error
	Attr string
}

func (e *ParsingError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Attr)
	}
	return e.Err.Error()
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// Matches this
// <svg style="vertical-align: -1.602ex;" xmlns="http://www.w3.org/2000/svg" width="2.127ex" height="4.638ex" role="img" focusable="false" viewBox="0 -1342 940 2050">
var (
	svgTagRe   = regexp.MustCompile(`<svg(?:\s[^>]*)?>`)
	styleRe    = regexp.MustCompile(`\sstyle="([^"]*)"`)
	valignRe   = regexp.MustCompile(`vertical-align:\s*(-?[0-9.]+)ex\s*;?`)
	widthAttr  = regexp.MustCompile(`\swidth="(-?[0-9.]+)ex"`)
	heightAttr = regexp.MustCompile(`\sheight="(-?[0-9.]+)ex"`)
	viewBoxRe  = regexp.MustCompile(`\sviewBox="([^"]*)"`)
)

// ParseGeometry extracts the geometry from the first <svg> tag in markup.
func ParseGeometry(markup string) (Geometry, error) {
	tag := svgTagRe.FindString(markup)
	if tag == "" {
		return Geometry{}, &ParsingError{Err: ErrMissingSVGElement}
	}

	var g Geometry
	var err error

	style := styleRe.FindStringSubmatch(tag)
	if style == nil {
		return Geometry{}, &ParsingError{Err: ErrMissingGeometry, Attr: "style"}
	}
	g.VerticalAlignment, err = submatchFloat(valignRe, style[1], "vertical-align")
	if err != nil {
		return Geometry{}, err
	}
	g.Width, err = submatchFloat(widthAttr, tag, "width")
	if err != nil {
		return Geometry{}, err
	}
	g.Height, err = submatchFloat(heightAttr, tag, "height")
	if err != nil {
		return Geometry{}, err
	}

	vb := viewBoxRe.FindStringSubmatch(tag)
	if vb == nil {
		return Geometry{}, &ParsingError{Err: ErrMissingGeometry, Attr: "viewBox"}
	}
	g.ViewBox, err = parseViewBox(vb[1])
	if err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func submatchFloat(re *regexp.Regexp, s, attr string) (float64, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParsingError{Err: ErrMissingGeometry, Attr: attr}
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, &ParsingError{Err: ErrMissingGeometry, Attr: attr}
	}
	return f, nil
}

func parseViewBox(s string) (Rect, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Rect{}, &ParsingError{Err: ErrMissingGeometry, Attr: "viewBox"}
	}
	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Rect{}, &ParsingError{Err: ErrMissingGeometry, Attr: "viewBox"}
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
