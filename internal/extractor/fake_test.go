package extractor

import (
	"context"
	"errors"

	"github.com/mvp-joe/jstruct/internal/syntax"
)

// fakeNode is a hand-built tree node for shapes the Java grammar never
// produces.
type fakeNode struct {
	kind       string
	start, end int
	children   []*fakeNode
	fields     map[string]*fakeNode
	parent     *fakeNode
	index      int
}

func node(kind string, start, end int, children ...*fakeNode) *fakeNode {
	n := &fakeNode{kind: kind, start: start, end: end, children: children, fields: map[string]*fakeNode{}}
	for i, c := range children {
		c.parent = n
		c.index = i
	}
	return n
}

func (n *fakeNode) field(name string, child *fakeNode) *fakeNode {
	n.fields[name] = child
	return n
}

func wrap(n *fakeNode) syntax.Node {
	if n == nil {
		return nil
	}
	return n
}

func (n *fakeNode) Kind() string             { return n.kind }
func (n *fakeNode) StartByte() int           { return n.start }
func (n *fakeNode) EndByte() int             { return n.end }
func (n *fakeNode) StartPoint() syntax.Point { return syntax.Point{Line: 1, Column: n.start + 1} }
func (n *fakeNode) ChildCount() int          { return len(n.children) }

func (n *fakeNode) Child(i int) syntax.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *fakeNode) ChildByFieldName(name string) syntax.Node {
	return wrap(n.fields[name])
}

func (n *fakeNode) PrevSibling() syntax.Node {
	if n.parent == nil || n.index == 0 {
		return nil
	}
	return n.parent.children[n.index-1]
}

func (n *fakeNode) NextSibling() syntax.Node {
	if n.parent == nil || n.index+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[n.index+1]
}

type fakeTree struct {
	root *fakeNode
}

func (t fakeTree) Root() syntax.Node          { return wrap(t.root) }
func (t fakeTree) Positions() syntax.Positions { return syntax.ByteRanges }
func (t fakeTree) HasErrors() bool             { return false }
func (t fakeTree) Close()                      {}

type fakeParser struct {
	tree syntax.Tree
	err  error
}

func (p fakeParser) Parse(context.Context, []byte) (syntax.Tree, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.tree, nil
}

var errGrammar = errors.New("grammar exploded")
