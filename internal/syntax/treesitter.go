package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// ErrNoTree is returned when the grammar parser produces no tree at all.
var ErrNoTree = errors.New("parser produced no syntax tree")

// JavaParser parses Java source with the tree-sitter Java grammar.
// It is safe for concurrent use: every Parse call owns its own
// tree-sitter parser.
type JavaParser struct {
	language *sitter.Language
}

// NewJavaParser creates a new Java parser.
func NewJavaParser() *JavaParser {
	return &JavaParser{
		language: sitter.NewLanguage(java.Language()),
	}
}

// Parse parses source into a syntax tree with byte-accurate node ranges.
func (p *JavaParser) Parse(ctx context.Context, source []byte) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set java language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, ErrNoTree
	}

	return &tsTree{tree: tree}, nil
}

type tsTree struct {
	tree *sitter.Tree
}

func (t *tsTree) Root() Node {
	return wrapNode(t.tree.RootNode())
}

func (t *tsTree) Positions() Positions {
	return ByteRanges
}

func (t *tsTree) HasErrors() bool {
	root := t.tree.RootNode()
	return root != nil && root.HasError()
}

func (t *tsTree) Close() {
	t.tree.Close()
}

// tsNode adapts a tree-sitter node to Node.
type tsNode struct {
	n *sitter.Node
}

func wrapNode(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return tsNode{n: n}
}

func (t tsNode) Kind() string   { return t.n.Kind() }
func (t tsNode) StartByte() int { return int(t.n.StartByte()) }
func (t tsNode) EndByte() int   { return int(t.n.EndByte()) }

func (t tsNode) StartPoint() Point {
	p := t.n.StartPosition()
	return Point{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (t tsNode) ChildCount() int {
	return int(t.n.ChildCount())
}

func (t tsNode) Child(i int) Node {
	if i < 0 {
		return nil
	}
	return wrapNode(t.n.Child(uint(i)))
}

func (t tsNode) ChildByFieldName(name string) Node {
	return wrapNode(t.n.ChildByFieldName(name))
}

func (t tsNode) PrevSibling() Node {
	return wrapNode(t.n.PrevSibling())
}

func (t tsNode) NextSibling() Node {
	return wrapNode(t.n.NextSibling())
}
