package mtlatex

import (
	"sort"

	"oss.terrastruct.com/util-go/go2"
)

// Packages that turn TeX errors into silently rendered output.
const (
	PackageNoErrors    = "noerrors"
	PackageNoUndefined = "noundefined"
)

// DefaultPackages are the TeX input packages loaded when none are configured.
var DefaultPackages = []string{"base", "ams", "newcommand", "noundefined", "noerrors", "require", "autoload", "configmacros"}

// EngineOptions configure the MathJax TeX input and SVG output.
//
// Options are part of the SVG cache key. Normalize them before comparing.
type EngineOptions struct {
	ProcessEscapes bool     `json:"processEscapes"`
	Packages       []string `json:"packages"`
	// InlineDelimiters is always $ $ since inline math is segmented before it reaches the
	// engine.
	InlineDelimiters [2]string `json:"inlineDelimiters"`
	// EM and EX are the pixel sizes MathJax assumes for one em and one ex.
	EM int `json:"em"`
	EX int `json:"ex"`
}

func DefaultOptions() EngineOptions {
	return EngineOptions{
		ProcessEscapes: true,
		Packages:       append([]string(nil), DefaultPackages...),
	}.Normalize()
}

// Normalize returns o with defaults filled in, packages sorted and deduplicated and the
// inline delimiters forced.
func (o EngineOptions) Normalize() EngineOptions {
	o.InlineDelimiters = [2]string{"$", "$"}
	if o.EX <= 0 {
		o.EX = 8
	}
	if o.EM <= 0 {
		o.EM = o.EX * 2
	}
	if o.Packages == nil {
		o.Packages = append([]string(nil), DefaultPackages...)
	}
	pkgs := make([]string, 0, len(o.Packages))
	for _, p := range o.Packages {
		if p != "" && !go2.Contains(pkgs, p) {
			pkgs = append(pkgs, p)
		}
	}
	sort.Strings(pkgs)
	o.Packages = pkgs
	return o
}

// SuppressErrors returns o with the error suppressing packages loaded or removed.
// With them loaded MathJax renders bad input as best it can instead of reporting an error.
func (o EngineOptions) SuppressErrors(suppress bool) EngineOptions {
	var pkgs []string
	for _, p := range o.Packages {
		if p != PackageNoErrors && p != PackageNoUndefined {
			pkgs = append(pkgs, p)
		}
	}
	if suppress {
		pkgs = append(pkgs, PackageNoErrors, PackageNoUndefined)
	}
	if pkgs == nil {
		pkgs = []string{}
	}
	o.Packages = pkgs
	return o.Normalize()
}

// ErrorsSuppressed reports whether both error suppressing packages are loaded.
func (o EngineOptions) ErrorsSuppressed() bool {
	return go2.Contains(o.Packages, PackageNoErrors) && go2.Contains(o.Packages, PackageNoUndefined)
}

func (o EngineOptions) equal(o2 EngineOptions) bool {
	if o.ProcessEscapes != o2.ProcessEscapes || o.InlineDelimiters != o2.InlineDelimiters ||
		o.EM != o2.EM || o.EX != o2.EX || len(o.Packages) != len(o2.Packages) {
		return false
	}
	for i := range o.Packages {
		if o.Packages[i] != o2.Packages[i] {
			return false
		}
	}
	return true
}
