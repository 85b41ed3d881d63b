// Package syntax defines the concrete syntax tree contract the extractor
// consumes, and adapters that produce it.
//
// The extractor never mutates a tree. Trees and their nodes are only valid
// until Tree.Close is called.
package syntax

import "context"

// Point is a 1-based line and 1-based byte column.
type Point struct {
	Line   int
	Column int
}

// Node is one node of a concrete syntax tree.
//
// Methods returning a Node return a nil interface (never a typed nil) when
// there is no such node.
type Node interface {
	// Kind is the grammar's type tag, e.g. "class_declaration".
	Kind() string

	// StartByte and EndByte are offsets into the parsed byte buffer.
	StartByte() int
	EndByte() int

	// StartPoint is the line/column position of the first byte.
	StartPoint() Point

	ChildCount() int
	Child(i int) Node
	ChildByFieldName(name string) Node

	PrevSibling() Node
	NextSibling() Node
}

// Positions describes how far a tree's node positions can be trusted.
type Positions int

const (
	// ByteRanges means every node's [StartByte, EndByte) covers exactly the
	// text the node was parsed from.
	ByteRanges Positions = iota

	// LineColumn means only StartPoint is reliable for declaration nodes;
	// declaration spans must be recovered from the token stream.
	LineColumn
)

func (p Positions) String() string {
	switch p {
	case ByteRanges:
		return "byte-ranges"
	case LineColumn:
		return "line-column"
	default:
		return "unknown"
	}
}

// Tree is a parsed source unit.
type Tree interface {
	Root() Node
	Positions() Positions

	// HasErrors reports whether the parser had to recover from syntax errors.
	HasErrors() bool

	Close()
}

// Parser turns source bytes into a Tree.
type Parser interface {
	Parse(ctx context.Context, source []byte) (Tree, error)
}

// Children returns the ordered children of n.
func Children(n Node) []Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	children := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if child := n.Child(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// FindChildByKind returns the first direct child of the given kind.
func FindChildByKind(n Node, kind string) Node {
	if n == nil {
		return nil
	}
	for i := 0; i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// IsComment reports whether n is a line or block comment.
func IsComment(n Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// IsAnnotation reports whether n is a marker or normal annotation.
func IsAnnotation(n Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "marker_annotation", "annotation":
		return true
	}
	return false
}
