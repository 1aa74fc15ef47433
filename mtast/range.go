package mtast

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"oss.terrastruct.com/util-go/xdefer"
)

// Range is the span of a segment in its source, delimiters included.
//
// It has a compact text encoding to keep JSON output readable. It looks like path,start-end
type Range struct {
	Path  string
	Start Position
	End   Position
}

var _ fmt.Stringer = Range{}
var _ encoding.TextMarshaler = Range{}
var _ encoding.TextUnmarshaler = &Range{}

func MakeRange(s string) Range {
	var r Range
	_ = r.UnmarshalText([]byte(s))
	return r
}

// String returns path:start, suitable for log messages. An empty path is omitted.
func (r Range) String() string {
	var s strings.Builder
	if r.Path != "" {
		s.WriteString(r.Path)
		s.WriteByte(':')
	}
	s.WriteString(r.Start.String())
	return s.String()
}

func (r Range) OneLine() bool {
	return r.Start.Line == r.End.Line
}

// Len returns the length of the range in the units it was counted in.
func (r Range) Len() int {
	return r.End.Byte - r.Start.Byte
}

func (r Range) MarshalText() ([]byte, error) {
	start, _ := r.Start.MarshalText()
	end, _ := r.End.MarshalText()
	return []byte(fmt.Sprintf("%s,%s-%s", r.Path, start, end)), nil
}

func (r *Range) UnmarshalText(b []byte) (err error) {
	defer xdefer.Errorf(&err, "failed to unmarshal Range from %q", b)

	i := bytes.LastIndexByte(b, '-')
	if i == -1 {
		return errors.New("missing End field")
	}
	end := b[i+1:]
	b = b[:i]

	i = bytes.LastIndexByte(b, ',')
	if i == -1 {
		return errors.New("missing Start field")
	}
	start := b[i+1:]
	b = b[:i]

	r.Path = string(b)
	err = r.Start.UnmarshalText(start)
	if err != nil {
		return err
	}
	return r.End.UnmarshalText(end)
}

// Position is a line:column and offset in a source.
//
// note: Line and Column are zero indexed.
// note: Column and Byte count UTF-8 bytes unless the source was parsed with UTF16Pos, in
// .     which case they count UTF-16 code units, matching what text widgets index by.
type Position struct {
	Line   int
	Column int
	Byte   int
}

var _ fmt.Stringer = Position{}
var _ encoding.TextMarshaler = Position{}
var _ encoding.TextUnmarshaler = &Position{}

// String returns a one indexed line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d:%d", p.Line, p.Column, p.Byte)), nil
}

func (p *Position) UnmarshalText(b []byte) (err error) {
	defer xdefer.Errorf(&err, "failed to unmarshal Position from %q", b)

	fields := bytes.Split(b, []byte{':'})
	if len(fields) != 3 {
		return errors.New("expected three fields")
	}

	p.Line, err = strconv.Atoi(string(fields[0]))
	if err != nil {
		return err
	}
	p.Column, err = strconv.Atoi(string(fields[1]))
	if err != nil {
		return err
	}
	p.Byte, err = strconv.Atoi(string(fields[2]))
	return err
}

// Advance moves p past r.
func (p Position) Advance(r rune, byUTF16 bool) Position {
	return p.advance(r, utf8.RuneLen(r), byUTF16)
}

// AdvanceString moves p past s. Invalid UTF-8 bytes count as one byte each.
func (p Position) AdvanceString(s string, byUTF16 bool) Position {
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		p = p.advance(r, w, byUTF16)
		i += w
	}
	return p
}

func (p Position) advance(r rune, size int, byUTF16 bool) Position {
	if byUTF16 {
		size = 1
		r1, r2 := utf16.EncodeRune(r)
		if r1 != '\uFFFD' && r2 != '\uFFFD' {
			size = 2
		}
	}

	if r == '\n' {
		p.Line++
		p.Column = 0
	} else {
		p.Column += size
	}
	p.Byte += size

	return p
}

func (p Position) Before(p2 Position) bool {
	if p.Byte != p2.Byte {
		return p.Byte < p2.Byte
	}
	if p.Line != p2.Line {
		return p.Line < p2.Line
	}
	return p.Column < p2.Column
}
