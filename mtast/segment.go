package mtast

import (
	"strings"

	"oss.terrastruct.com/mathtext/mttarget"
)

// Segment is a contiguous run of the input. Equation segments hold their inner text with
// the delimiters stripped.
//
// Segments are values. Rendering produces new segments with WithResult.
type Segment struct {
	Text  string `json:"text"`
	Kind  Kind   `json:"kind"`
	Range Range  `json:"range"`

	// Result is nil until the segment has been rendered. Always nil for PlainText.
	Result *mttarget.RenderResult `json:"result,omitempty"`
}

func Plain(s string) Segment {
	return Segment{Text: s, Kind: PlainText}
}

func Equation(k Kind, tex string) Segment {
	return Segment{Text: tex, Kind: k}
}

// Source returns the segment as it appeared in the input.
func (s Segment) Source() string {
	if !s.Kind.IsEquation() {
		return s.Text
	}
	l, r := s.Kind.Delimiters()
	var b strings.Builder
	b.Grow(len(l) + len(s.Text) + len(r))
	b.WriteString(l)
	b.WriteString(s.Text)
	b.WriteString(r)
	return b.String()
}

func (s Segment) WithResult(r mttarget.RenderResult) Segment {
	s.Result = &r
	return s
}

func (s Segment) IsInline() bool {
	return s.Kind.IsInline()
}

func (s Segment) IsEquation() bool {
	return s.Kind.IsEquation()
}

type State int

const (
	Unrendered State = iota
	Rendered
	Errored
)

func (st State) String() string {
	switch st {
	case Rendered:
		return "rendered"
	case Errored:
		return "errored"
	default:
		return "unrendered"
	}
}

func (s Segment) State() State {
	switch {
	case s.Result == nil:
		return Unrendered
	case s.Result.HasError():
		return Errored
	default:
		return Rendered
	}
}

// Block is a unit of layout: either a single display equation or a run of inline segments.
type Block struct {
	Segments []Segment `json:"segments"`
}

// IsEquation reports whether b holds a single display equation.
func (b Block) IsEquation() bool {
	return len(b.Segments) == 1 && !b.Segments[0].IsInline()
}

func (b Block) Source() string {
	var sb strings.Builder
	for _, s := range b.Segments {
		sb.WriteString(s.Source())
	}
	return sb.String()
}

// Rendered reports whether every equation segment of b carries a result.
func (b Block) Rendered() bool {
	for _, s := range b.Segments {
		if s.IsEquation() && s.Result == nil {
			return false
		}
	}
	return true
}

// Equations returns the number of equation segments in b.
func (b Block) Equations() int {
	n := 0
	for _, s := range b.Segments {
		if s.IsEquation() {
			n++
		}
	}
	return n
}
