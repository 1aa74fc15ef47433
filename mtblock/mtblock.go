// Package mtblock groups segments into layout blocks.
package mtblock

import (
	"oss.terrastruct.com/mathtext/mtast"
)

// Group partitions segs into blocks. Runs of inline segments share a block and every display
// equation gets a block of its own. Order is preserved.
func Group(segs []mtast.Segment) []mtast.Block {
	var blocks []mtast.Block
	var run []mtast.Segment
	flush := func() {
		if len(run) > 0 {
			blocks = append(blocks, mtast.Block{Segments: run})
			run = nil
		}
	}
	for _, s := range segs {
		if s.IsInline() {
			run = append(run, s)
			continue
		}
		flush()
		blocks = append(blocks, mtast.Block{Segments: []mtast.Segment{s}})
	}
	flush()
	return blocks
}

// Flatten returns the segments of blocks in order. It is the inverse of Group.
func Flatten(blocks []mtast.Block) []mtast.Segment {
	n := 0
	for _, b := range blocks {
		n += len(b.Segments)
	}
	segs := make([]mtast.Segment, 0, n)
	for _, b := range blocks {
		segs = append(segs, b.Segments...)
	}
	return segs
}

// Equations returns the number of equation segments across blocks.
func Equations(blocks []mtast.Block) int {
	n := 0
	for _, b := range blocks {
		n += b.Equations()
	}
	return n
}
