package mtlib

import (
	"context"
	"strings"

	"oss.terrastruct.com/util-go/xdefer"

	"oss.terrastruct.com/mathtext/mtast"
	"oss.terrastruct.com/mathtext/mtblock"
	"oss.terrastruct.com/mathtext/mtparser"
	"oss.terrastruct.com/mathtext/mtrender"
)

type CompileOptions struct {
	// Path is recorded in segment ranges.
	Path  string
	UTF16 bool
	// Renderer is optional. Without one the blocks come back unrendered.
	Renderer *mtrender.Renderer
}

// Compile segments input, groups the segments into blocks and renders them.
//
// The blocks are returned even when rendering fails. The error then describes the blocks
// left unrendered.
func Compile(ctx context.Context, input string, opts *CompileOptions) (_ []mtast.Block, err error) {
	if opts == nil {
		opts = &CompileOptions{}
	}

	segs, err := mtparser.Parse(opts.Path, strings.NewReader(input), &mtparser.ParseOptions{
		UTF16Pos: opts.UTF16,
	})
	if err != nil {
		return nil, err
	}
	blocks := mtblock.Group(segs)
	if opts.Renderer == nil {
		return blocks, nil
	}

	defer xdefer.Errorf(&err, "failed to render")
	return opts.Renderer.Render(ctx, blocks)
}
