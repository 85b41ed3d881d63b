package syntax

import "context"

// LineColumnParser wraps a parser so the trees it produces report
// LineColumn positions. It models grammar collaborators that only record a
// start line/column per declaration, and is how the token-balance span
// strategy gets exercised against a real grammar.
type LineColumnParser struct {
	Parser Parser
}

// Parse parses source with the wrapped parser.
func (p LineColumnParser) Parse(ctx context.Context, source []byte) (Tree, error) {
	tree, err := p.Parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	return lineColumnTree{Tree: tree}, nil
}

type lineColumnTree struct {
	Tree
}

func (lineColumnTree) Positions() Positions {
	return LineColumn
}
