// Package mtast defines the segment and block model produced by mtparser and mtblock and
// consumed by the renderer.
package mtast

import (
	"encoding"
	"fmt"
)

// Kind classifies a segment.
type Kind int

const (
	PlainText Kind = iota
	// $...$
	InlineEquation
	// \(...\)
	InlineParenEquation
	// $$...$$
	TexBlockEquation
	// \[...\]
	BlockEquation
	// \begin{equation}...\end{equation}
	NamedEquation
	// \begin{equation*}...\end{equation*}
	NamedEquationUnnumbered
)

var kindNames = [...]string{
	PlainText:               "plain_text",
	InlineEquation:          "inline_equation",
	InlineParenEquation:     "inline_paren_equation",
	TexBlockEquation:        "tex_block_equation",
	BlockEquation:           "block_equation",
	NamedEquation:           "named_equation",
	NamedEquationUnnumbered: "named_equation_unnumbered",
}

var _ fmt.Stringer = PlainText
var _ encoding.TextMarshaler = PlainText
var _ encoding.TextUnmarshaler = new(Kind)

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown segment kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown segment kind %q", b)
}

// IsInline reports whether segments of kind k flow within a line of text.
func (k Kind) IsInline() bool {
	switch k {
	case PlainText, InlineEquation, InlineParenEquation:
		return true
	}
	return false
}

func (k Kind) IsEquation() bool {
	return k != PlainText
}

// Delimiters returns the left and right delimiters of an equation kind. Both are empty for
// PlainText.
func (k Kind) Delimiters() (left, right string) {
	for _, d := range Grammar {
		if d.Kind == k {
			return d.Left, d.Right
		}
	}
	return "", ""
}
