// Package span recovers the verbatim source text of a declaration.
//
// Two backends implement Resolver. Direct slices the buffer with the node's
// byte range. TokenBalance starts at the node's line/column, scans the Java
// token stream for the matching closing brace (or the terminating semicolon
// of a bodiless declaration) and converts token positions back to bytes.
// An empty result always means "unavailable", never an empty declaration.
package span

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

// Strategy names a span backend.
type Strategy string

const (
	// Auto picks Direct for byte-accurate trees and TokenBalance otherwise.
	Auto         Strategy = "auto"
	Direct       Strategy = "direct"
	TokenBalance Strategy = "token"
)

// ErrNeedsByteRanges is returned when Direct is forced on a tree that only
// carries line/column positions.
var ErrNeedsByteRanges = errors.New("direct span strategy requires byte-accurate node ranges")

// Resolver maps a declaration node to its span.
type Resolver interface {
	// Locate returns the declaration's byte range in the buffer.
	Locate(n syntax.Node) (start, end int, ok bool)

	// Resolve returns the declaration text, or "" when it cannot be located.
	Resolve(n syntax.Node) string
}

// ParseStrategy validates a strategy name. The empty string means Auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", Auto:
		return Auto, nil
	case Direct, TokenBalance:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown span strategy %q (want auto, direct or token)", s)
	}
}

// New selects a backend for a tree with the given position support.
func New(strategy Strategy, positions syntax.Positions, buf *source.Buffer, logger *slog.Logger) (Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strategy {
	case "", Auto:
		if positions == syntax.ByteRanges {
			return NewDirect(buf), nil
		}
		return NewTokenBalance(buf, logger), nil
	case Direct:
		if positions != syntax.ByteRanges {
			return nil, ErrNeedsByteRanges
		}
		return NewDirect(buf), nil
	case TokenBalance:
		return NewTokenBalance(buf, logger), nil
	default:
		return nil, fmt.Errorf("unknown span strategy %q", strategy)
	}
}

type locator interface {
	Locate(n syntax.Node) (start, end int, ok bool)
}

func resolve(l locator, buf *source.Buffer, n syntax.Node) string {
	start, end, ok := l.Locate(n)
	if !ok {
		return ""
	}
	return buf.Slice(start, end)
}

// DirectResolver slices node byte ranges.
type DirectResolver struct {
	buf *source.Buffer
}

// NewDirect creates a byte-range resolver.
func NewDirect(buf *source.Buffer) *DirectResolver {
	return &DirectResolver{buf: buf}
}

func (d *DirectResolver) Locate(n syntax.Node) (int, int, bool) {
	if n == nil {
		return 0, 0, false
	}
	start, end := n.StartByte(), n.EndByte()
	if start < 0 || end > d.buf.Len() || start >= end {
		return 0, 0, false
	}
	return start, end, true
}

func (d *DirectResolver) Resolve(n syntax.Node) string {
	return resolve(d, d.buf, n)
}
