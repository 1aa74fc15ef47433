package mtcli

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/util-go/xmain"

	"oss.terrastruct.com/mathtext/lib/version"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s [--watch=false] [--mathjax=tex-svg.js] file.md [file.html | file.json]
  %[1]s segments file.md [file.json]
  %[1]s version

%[1]s finds the TeX math in file.md, renders each equation with MathJax and writes
the text with its equations to file.html. With a .json output path, or --format=json, the
rendered blocks are written as JSON instead.

Inline math is written $...$ or \(...\). Display math is written $$...$$, \[...\],
\begin{equation}...\end{equation} or \begin{equation*}...\end{equation*}.
Delimiters preceded by a backslash are literal.

Without a MathJax bundle equations are left as written.

Use - to have %[1]s read from stdin or write to stdout.

Flags:
%[3]s

Subcommands:
  %[1]s segments file.md - Prints the blocks and segments found in file.md as JSON without rendering
  %[1]s version - Prints the version
`, filepath.Base(ms.Name), version.Version, ms.Opts.Defaults())
}
