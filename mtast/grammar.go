package mtast

// Delimiter is one entry of the grammar.
type Delimiter struct {
	Left  string
	Right string
	Kind  Kind
	// Inline is false for display equations.
	Inline bool
	// Recursive delimiters balance nested occurrences of themselves.
	Recursive bool
}

// Grammar lists the recognized math delimiters. Its order breaks ties between matches
// starting at the same offset.
var Grammar = []Delimiter{
	{Left: `$`, Right: `$`, Kind: InlineEquation, Inline: true},
	{Left: `\(`, Right: `\)`, Kind: InlineParenEquation, Inline: true},
	{Left: `$$`, Right: `$$`, Kind: TexBlockEquation},
	{Left: `\[`, Right: `\]`, Kind: BlockEquation},
	{Left: `\begin{equation}`, Right: `\end{equation}`, Kind: NamedEquation, Recursive: true},
	{Left: `\begin{equation*}`, Right: `\end{equation*}`, Kind: NamedEquationUnnumbered, Recursive: true},
}
