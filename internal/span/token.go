package span

import (
	"log/slog"
	"sync"

	"github.com/mvp-joe/jstruct/internal/javalex"
	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

type position struct {
	line   int
	column int
}

// TokenBalanceResolver recovers spans from the token stream, using only the
// declaration's start position.
type TokenBalanceResolver struct {
	buf    *source.Buffer
	logger *slog.Logger

	once   sync.Once
	tokens []javalex.Token
	index  map[position]int
}

// NewTokenBalance creates a token-stream resolver. The buffer is tokenized
// on first use.
func NewTokenBalance(buf *source.Buffer, logger *slog.Logger) *TokenBalanceResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenBalanceResolver{buf: buf, logger: logger}
}

func (r *TokenBalanceResolver) tokenize() {
	tokens, err := javalex.Tokenize(r.buf.Bytes())
	if err != nil {
		// Keep what was scanned; declarations before the error still resolve.
		r.logger.Warn("tokenizer stopped early", "error", err, "tokens", len(tokens))
	}
	r.tokens = tokens
	r.index = make(map[position]int, len(tokens))
	for i, tok := range tokens {
		r.index[position{tok.Line, tok.Column}] = i
	}
}

func (r *TokenBalanceResolver) Locate(n syntax.Node) (int, int, bool) {
	if n == nil {
		return 0, 0, false
	}
	r.once.Do(r.tokenize)

	p := n.StartPoint()
	startIdx, ok := r.index[position{p.Line, p.Column}]
	if !ok {
		r.logger.Debug("no token at declaration start", "line", p.Line, "column", p.Column, "kind", n.Kind())
		return 0, 0, false
	}

	endIdx := r.findEnd(startIdx)
	if endIdx < 0 {
		r.logger.Debug("declaration has no terminator", "line", p.Line, "column", p.Column, "kind", n.Kind())
		return 0, 0, false
	}

	first, last := r.tokens[startIdx], r.tokens[endIdx]
	start := r.buf.LineColToByte(first.Line, first.Column)
	end := r.buf.LineColToByte(last.Line, last.Column) + len(last.Value)
	if end > r.buf.Len() || start >= end {
		return 0, 0, false
	}
	return start, end, true
}

func (r *TokenBalanceResolver) Resolve(n syntax.Node) string {
	return resolve(r, r.buf, n)
}

// findEnd returns the index of the token that closes the declaration
// starting at from, or -1.
//
// The declaration ends where the brace balance returns to zero after having
// been positive. A semicolon at balance zero before any brace ends a
// bodiless declaration. When no brace is ever opened, the first semicolon
// ends it.
func (r *TokenBalanceResolver) findEnd(from int) int {
	balance := 0
	opened := false

	for i := from; i < len(r.tokens); i++ {
		tok := r.tokens[i]
		switch {
		case tok.IsSeparator("{"):
			balance++
			opened = true
		case tok.IsSeparator("}"):
			balance--
		case tok.IsSeparator(";") && !opened && balance == 0:
			return i
		}
		if opened && balance == 0 {
			return i
		}
	}

	if !opened {
		for i := from; i < len(r.tokens); i++ {
			if r.tokens[i].IsSeparator(";") {
				return i
			}
		}
	}
	return -1
}
