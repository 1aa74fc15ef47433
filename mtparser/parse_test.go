package mtparser_test

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	tassert "github.com/stretchr/testify/assert"

	"oss.terrastruct.com/util-go/assert"

	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtparser"
)

type seg struct {
	Kind mtast.Kind
	Text string
}

func plain(s string) seg {
	return seg{mtast.PlainText, s}
}

func simplify(segs []mtast.Segment) []seg {
	out := make([]seg, 0, len(segs))
	for _, s := range segs {
		out = append(out, seg{s.Kind, s.Text})
	}
	return out
}

func TestSegment(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		exp  []seg
	}{
		{
			name: "empty",
			in:   "",
			exp:  []seg{},
		},
		{
			name: "plain",
			in:   "no math here",
			exp:  []seg{plain("no math here")},
		},
		{
			name: "escaped_dollars",
			in:   `\$x\$`,
			exp:  []seg{plain(`\$x\$`)},
		},
		{
			name: "offset_precedence",
			in:   `a $x$ b \[y\] c`,
			exp: []seg{
				plain("a "),
				{mtast.InlineEquation, "x"},
				plain(" b "),
				{mtast.BlockEquation, "y"},
				plain(" c"),
			},
		},
		{
			name: "empty_tex_block",
			in:   "$$",
			exp:  []seg{plain("$$")},
		},
		{
			name: "empty_inline",
			in:   "a $$ b",
			exp:  []seg{plain("a $$ b")},
		},
		{
			name: "consecutive_named",
			in:   `\begin{equation}a\end{equation}\begin{equation}b\end{equation}`,
			exp: []seg{
				{mtast.NamedEquation, "a"},
				{mtast.NamedEquation, "b"},
			},
		},
		{
			name: "nested_inline_suppressed",
			in:   `\begin{equation} $a-b=c$ \end{equation}`,
			exp: []seg{
				{mtast.NamedEquation, " $a-b=c$ "},
			},
		},
		{
			name: "named_inside_inline_suppressed",
			in:   `$\begin{equation}a\end{equation}$`,
			exp: []seg{
				{mtast.InlineEquation, `\begin{equation}a\end{equation}`},
			},
		},
		{
			name: "unbalanced_outer_named",
			in:   `\begin{equation}x\begin{equation}y\end{equation}`,
			exp: []seg{
				plain(`\begin{equation}x`),
				{mtast.NamedEquation, "y"},
			},
		},
		{
			name: "nested_named",
			in:   `\begin{equation}a\begin{equation}b\end{equation}c\end{equation}!`,
			exp: []seg{
				{mtast.NamedEquation, `a\begin{equation}b\end{equation}c`},
				plain("!"),
			},
		},
		{
			name: "unnumbered",
			in:   "x \\begin{equation*}\n  e^{i\\pi}+1=0\n\\end{equation*}\ny",
			exp: []seg{
				plain("x "),
				{mtast.NamedEquationUnnumbered, "\n  e^{i\\pi}+1=0\n"},
				plain("\ny"),
			},
		},
		{
			name: "tex_block",
			in:   "see $$\\sum_i x_i$$ here",
			exp: []seg{
				plain("see "),
				{mtast.TexBlockEquation, `\sum_i x_i`},
				plain(" here"),
			},
		},
		{
			name: "paren",
			in:   `\(a\) and \(b\)`,
			exp: []seg{
				{mtast.InlineParenEquation, "a"},
				plain(" and "),
				{mtast.InlineParenEquation, "b"},
			},
		},
		{
			name: "escaped_closer_skipped",
			in:   `$5\$ + x$ after`,
			exp: []seg{
				{mtast.InlineEquation, `5\$ + x`},
				plain(" after"),
			},
		},
		{
			name: "escaped_opener_then_real",
			in:   `cost \$5 and $y$`,
			exp: []seg{
				plain(`cost \$5 and `),
				{mtast.InlineEquation, "y"},
			},
		},
		{
			name: "unterminated",
			in:   `$x and \[y and \begin{equation}z`,
			exp:  []seg{plain(`$x and \[y and \begin{equation}z`)},
		},
		{
			name: "unterminated_dollar_then_block",
			in:   `$x \[y\]`,
			exp: []seg{
				plain(`$x `),
				{mtast.BlockEquation, "y"},
			},
		},
		{
			name: "double_backslash_paren",
			in:   `a\\(b\)`,
			exp:  []seg{plain(`a\\(b\)`)},
		},
		{
			name: "earliest_wins_over_order",
			in:   `\[a\] $b$`,
			exp: []seg{
				{mtast.BlockEquation, "a"},
				plain(" "),
				{mtast.InlineEquation, "b"},
			},
		},
		{
			name: "dollar_inside_block",
			in:   `\[ f(x) = $y$ \]`,
			exp: []seg{
				{mtast.BlockEquation, " f(x) = $y$ "},
			},
		},
		{
			name: "only_delimiters",
			in:   `$$$$\[\]\(\)`,
			exp:  []seg{plain(`$$$$\[\]\(\)`)},
		},
		{
			name: "unicode",
			in:   "π ≈ $3.14$ 😀",
			exp: []seg{
				plain("π ≈ "),
				{mtast.InlineEquation, "3.14"},
				plain(" 😀"),
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			segs := mtparser.Segment(tc.in)
			tassert.Equal(t, tc.exp, simplify(segs))
			assert.String(t, tc.in, concat(segs))
		})
	}
}

func concat(segs []mtast.Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Source())
	}
	return b.String()
}

func TestSegmentDeepNesting(t *testing.T) {
	t.Parallel()

	const n = 2000
	in := strings.Repeat(`\begin{equation}$a$`, n) + `\end{equation}`

	start := time.Now()
	segs := mtparser.Segment(in)
	elapsed := time.Since(start)
	if elapsed > time.Second*5 {
		t.Fatalf("segmenting %d nested openers took %v", n, elapsed)
	}

	assert.String(t, in, concat(segs))
	// Only the innermost opener is balanced, so every earlier $a$ stays an inline equation.
	assert.Equal(t, 2*(n-1)+1, len(segs))
	tassert.Equal(t, plain(`\begin{equation}`), simplify(segs[:1])[0])
	tassert.Equal(t, seg{mtast.InlineEquation, "a"}, simplify(segs[1:2])[0])
	tassert.Equal(t, seg{mtast.NamedEquation, "$a$"}, simplify(segs[len(segs)-1:])[0])
}

func TestSegmentTotality(t *testing.T) {
	t.Parallel()

	for _, in := range totalitySeeds {
		segs := mtparser.Segment(in)
		assert.String(t, in, concat(segs))
		for _, s := range segs {
			if s.IsEquation() {
				assert.True(t, s.Text != "")
			}
		}
	}
}

var totalitySeeds = []string{
	"",
	"$",
	"$$$",
	`\`,
	`\\`,
	`\$`,
	`$\$`,
	`\(`,
	`\)`,
	`\[\]`,
	`\begin{equation}`,
	`\end{equation}`,
	`\end{equation}\begin{equation}`,
	`\begin{equation}\begin{equation}x\end{equation}`,
	`\begin{equation*}\end{equation*}`,
	`$a$$b$$c$`,
	`$$a$ b$$`,
	"\xff\xfe$x$",
	"$\x00$",
}

func FuzzSegment(f *testing.F) {
	for _, s := range totalitySeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, in string) {
		segs := mtparser.Segment(in)
		if got := concat(segs); got != in {
			t.Fatalf("segments do not reconstruct input: %q != %q", got, in)
		}
	})
}

func TestParseRanges(t *testing.T) {
	t.Parallel()

	segs, err := mtparser.Parse("doc.md", strings.NewReader("ab\n$x$ c"), nil)
	assert.Success(t, err)
	assert.Equal(t, 3, len(segs))

	assert.String(t, "doc.md,0:0:0-1:0:3", rangeText(t, segs[0].Range))
	assert.String(t, "doc.md,1:0:3-1:3:6", rangeText(t, segs[1].Range))
	assert.String(t, "doc.md,1:3:6-1:5:8", rangeText(t, segs[2].Range))
}

func TestParseUTF16(t *testing.T) {
	t.Parallel()

	in := "😀 $x$"

	segs, err := mtparser.Parse("", strings.NewReader(in), &mtparser.ParseOptions{UTF16Pos: true})
	assert.Success(t, err)
	assert.Equal(t, 2, len(segs))
	assert.String(t, ",0:3:3-0:6:6", rangeText(t, segs[1].Range))

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(in)) {
		buf.Write([]byte{byte(u), byte(u >> 8)})
	}
	segs, err = mtparser.Parse("", &buf, nil)
	assert.Success(t, err)
	assert.Equal(t, 2, len(segs))
	assert.String(t, "😀 ", segs[0].Text)
	assert.String(t, "x", segs[1].Text)
	assert.String(t, ",0:3:3-0:6:6", rangeText(t, segs[1].Range))
}

func rangeText(t *testing.T, r mtast.Range) string {
	b, err := r.MarshalText()
	assert.Success(t, err)
	return string(b)
}
