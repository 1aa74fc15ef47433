// Package mtparser splits text into plain text and math segments.
//
// Segmentation is total: every input yields a segment list whose sources concatenate back
// to the input. Malformed math is left in plain text.
package mtparser

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"

	tunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"oss.terrastruct.com/util-go/xdefer"

	"oss.terrastruct.com/mathtext/mtast"
)

type ParseOptions struct {
	// UTF16Pos records positions in UTF-16 code units for clients that index text that way,
	// browsers and most UI toolkits among them.
	UTF16Pos bool
}

// Segment splits s into segments using mtast.Grammar.
func Segment(s string) []mtast.Segment {
	p := &parser{s: s}
	return p.segments()
}

// Parse reads all of r and segments it. Ranges are recorded against path.
//
// Input starting with a UTF-16 little endian byte order mark is decoded to UTF-8 first and
// positions are then counted in UTF-16 code units.
//
// The only errors are read errors.
func Parse(path string, r io.Reader, opts *ParseOptions) (_ []mtast.Segment, err error) {
	defer xdefer.Errorf(&err, "failed to read %s", path)

	if opts == nil {
		opts = &ParseOptions{}
	}
	p := &parser{
		path:     path,
		utf16Pos: opts.UTF16Pos,
	}

	br := bufio.NewReader(r)
	var rd io.Reader = br
	bom, err := br.Peek(2)
	if err == nil {
		// 0xFFFE is invalid UTF-8 so this is safe.
		if bom[0] == 0xFF && bom[1] == 0xFE {
			p.utf16Pos = true
			rd = transform.NewReader(br, tunicode.UTF16(tunicode.LittleEndian, tunicode.UseBOM).NewDecoder())
		}
	}

	var buf bytes.Buffer
	_, err = buf.ReadFrom(rd)
	if err != nil {
		return nil, err
	}
	p.s = buf.String()
	return p.segments(), nil
}

type parser struct {
	path     string
	utf16Pos bool

	s   string
	pos mtast.Position

	// cands holds the last search result of each grammar entry.
	cands []candidate
	// pairs holds the opener/closer pairing of each recursive grammar entry.
	pairs [][]pair
}

type match struct {
	start int
	end   int
	// Index into mtast.Grammar.
	entry int
}

func (m match) contains(m2 match) bool {
	return m.start <= m2.start && m2.end <= m.end && m != m2
}

// candidate is the earliest match of an entry at or after the offset it was searched from.
// Whether an opener matches does not depend on that offset, so a match stays the earliest
// until the scan passes its start, and a miss stays a miss.
type candidate struct {
	m        match
	ok       bool
	searched bool
}

type pair struct {
	open int
	// -1 when nothing balances open.
	close int
}

func (p *parser) segments() []mtast.Segment {
	p.cands = make([]candidate, len(mtast.Grammar))
	p.pairs = make([][]pair, len(mtast.Grammar))

	var segs []mtast.Segment
	off := 0
	for off < len(p.s) {
		m, ok := p.next(off)
		if !ok {
			segs = append(segs, p.plain(off, len(p.s)))
			break
		}
		if m.start > off {
			segs = append(segs, p.plain(off, m.start))
		}
		segs = append(segs, p.equation(m))
		off = m.end
	}
	return segs
}

// next returns the match to consume at or after off.
func (p *parser) next(off int) (match, bool) {
	cands := make([]match, 0, len(mtast.Grammar))
	for i := range mtast.Grammar {
		c := &p.cands[i]
		if !c.searched || (c.ok && c.m.start < off) {
			c.m, c.ok = p.find(i, off)
			c.m.entry = i
			c.searched = true
		}
		if c.ok {
			cands = append(cands, c.m)
		}
	}

	var best match
	found := false
outer:
	for _, m := range cands {
		for _, m2 := range cands {
			if m2.contains(m) {
				continue outer
			}
		}
		if !found || m.start < best.start || (m.start == best.start && m.entry < best.entry) {
			best = m
			found = true
		}
	}
	return best, found
}

// find returns the earliest match of grammar entry i starting at or after off.
func (p *parser) find(i, off int) (match, bool) {
	d := mtast.Grammar[i]
	if d.Recursive {
		return p.findBalanced(i, off)
	}
	for {
		l := indexUnescaped(p.s, d.Left, off)
		if l == -1 {
			return match{}, false
		}
		inner := l + len(d.Left)
		r := indexUnescaped(p.s, d.Right, inner)
		if r == -1 {
			// Later openers can only see the same or fewer closers.
			return match{}, false
		}
		if r > inner {
			return match{start: l, end: r + len(d.Right)}, true
		}
		off = l + 1
	}
}

func (p *parser) findBalanced(i, off int) (match, bool) {
	d := mtast.Grammar[i]
	if p.pairs[i] == nil {
		p.pairs[i] = p.balance(d)
	}
	pairs := p.pairs[i]
	k := sort.Search(len(pairs), func(k int) bool {
		return pairs[k].open >= off
	})
	for ; k < len(pairs); k++ {
		pr := pairs[k]
		if pr.close > pr.open+len(d.Left) {
			return match{start: pr.open, end: pr.close + len(d.Right)}, true
		}
	}
	return match{}, false
}

// balance pairs every opener of d with the nearest closer that balances the openers nested
// after it, in one pass over the input.
func (p *parser) balance(d mtast.Delimiter) []pair {
	pairs := []pair{}
	var stack []int
	l := indexUnescaped(p.s, d.Left, 0)
	r := indexUnescaped(p.s, d.Right, 0)
	for l != -1 || r != -1 {
		if l != -1 && (r == -1 || l < r) {
			stack = append(stack, len(pairs))
			pairs = append(pairs, pair{open: l, close: -1})
			l = indexUnescaped(p.s, d.Left, l+len(d.Left))
			continue
		}
		if len(stack) > 0 {
			pairs[stack[len(stack)-1]].close = r
			stack = stack[:len(stack)-1]
		}
		r = indexUnescaped(p.s, d.Right, r+len(d.Right))
	}
	return pairs
}

// indexUnescaped returns the index of the first occurrence of sub in s at or after off that
// is not preceded by a backslash, or -1.
func indexUnescaped(s, sub string, off int) int {
	for off <= len(s) {
		i := indexFrom(s, sub, off)
		if i == -1 {
			return -1
		}
		if i == 0 || s[i-1] != '\\' {
			return i
		}
		off = i + 1
	}
	return -1
}

func indexFrom(s, sub string, off int) int {
	if off > len(s) {
		return -1
	}
	i := strings.Index(s[off:], sub)
	if i == -1 {
		return -1
	}
	return off + i
}

func (p *parser) plain(start, end int) mtast.Segment {
	text := p.s[start:end]
	return mtast.Segment{
		Text:  text,
		Kind:  mtast.PlainText,
		Range: p.advance(text),
	}
}

func (p *parser) equation(m match) mtast.Segment {
	d := mtast.Grammar[m.entry]
	return mtast.Segment{
		Text:  p.s[m.start+len(d.Left) : m.end-len(d.Right)],
		Kind:  d.Kind,
		Range: p.advance(p.s[m.start:m.end]),
	}
}

func (p *parser) advance(src string) mtast.Range {
	r := mtast.Range{
		Path:  p.path,
		Start: p.pos,
	}
	p.pos = p.pos.AdvanceString(src, p.utf16Pos)
	r.End = p.pos
	return r
}
