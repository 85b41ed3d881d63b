// Package javalex splits Java source into a flat token stream with 1-based
// line and byte-column positions. Comments and whitespace are consumed but
// not emitted, so braces inside comments and literals never reach callers
// that balance separators.
package javalex

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

const (
	Identifier Kind = iota
	Keyword
	Number
	String
	Char
	TextBlock
	Separator
	Operator
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Keyword:
		return "keyword"
	case Number:
		return "number"
	case String:
		return "string"
	case Char:
		return "char"
	case TextBlock:
		return "text_block"
	case Separator:
		return "separator"
	case Operator:
		return "operator"
	default:
		return "unknown"
	}
}

// Token is one lexical token.
type Token struct {
	Kind   Kind
	Value  string
	Line   int
	Column int
}

// IsSeparator reports whether t is the separator s.
func (t Token) IsSeparator(s string) bool {
	return t.Kind == Separator && t.Value == s
}

// Error is returned for input the lexer cannot finish, such as an
// unterminated comment. Tokens scanned before the error are still returned.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true,
}

// Longest operators first so scanning is greedy.
var operators = []string{
	">>>=",
	"<<=", ">>=", ">>>",
	"->", "++", "--", "&&", "||", "==", "!=", "<=", ">=",
	"+=", "-=", "*=", "/=", "&=", "|=", "^=", "%=", "<<", ">>",
	"=", "<", ">", "!", "~", "?", ":", "+", "-", "*", "/", "&", "|", "^", "%",
}

// Tokenize scans the whole input.
func Tokenize(input []byte) ([]Token, error) {
	l := &lexer{input: input, line: 1, column: 1}
	var tokens []Token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return tokens, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

type lexer struct {
	input  []byte
	pos    int
	line   int
	column int
}

func (l *lexer) peek() byte {
	return l.peekN(0)
}

func (l *lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *lexer) hasPrefix(s string) bool {
	if l.pos+len(s) > len(l.input) {
		return false
	}
	return string(l.input[l.pos:l.pos+len(s)]) == s
}

func (l *lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *lexer) errorf(line, column int, format string, args ...any) *Error {
	return &Error{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// next returns the next significant token, skipping whitespace and comments.
func (l *lexer) next() (Token, bool, error) {
	for {
		if l.pos >= len(l.input) {
			return Token{}, false, nil
		}

		line, column := l.line, l.column
		ch := l.peek()

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f':
			l.advance()
			continue

		case ch == '/' && l.peekN(1) == '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
			continue

		case ch == '/' && l.peekN(1) == '*':
			l.advanceN(2)
			for {
				if l.pos >= len(l.input) {
					return Token{}, false, l.errorf(line, column, "unterminated block comment")
				}
				if l.hasPrefix("*/") {
					l.advanceN(2)
					break
				}
				l.advance()
			}
			continue
		}

		start := l.pos
		tok := Token{Line: line, Column: column}

		switch {
		case isIdentStart(l.input[l.pos:]):
			for l.pos < len(l.input) && isIdentPart(l.input[l.pos:]) {
				_, size := utf8.DecodeRune(l.input[l.pos:])
				l.advanceN(size)
			}
			tok.Kind = Identifier
			if keywords[string(l.input[start:l.pos])] {
				tok.Kind = Keyword
			}

		case isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))):
			l.scanNumber()
			tok.Kind = Number

		case l.hasPrefix(`"""`):
			l.advanceN(3)
			for {
				if l.pos >= len(l.input) {
					return Token{}, false, l.errorf(line, column, "unterminated text block")
				}
				if l.peek() == '\\' {
					l.advanceN(2)
					continue
				}
				if l.hasPrefix(`"""`) {
					l.advanceN(3)
					break
				}
				l.advance()
			}
			tok.Kind = TextBlock

		case ch == '"':
			if err := l.scanQuoted('"', line, column); err != nil {
				return Token{}, false, err
			}
			tok.Kind = String

		case ch == '\'':
			if err := l.scanQuoted('\'', line, column); err != nil {
				return Token{}, false, err
			}
			tok.Kind = Char

		default:
			tok.Kind = l.scanPunctuation()
		}

		tok.Value = string(l.input[start:l.pos])
		return tok, true, nil
	}
}

func (l *lexer) scanQuoted(quote byte, line, column int) error {
	l.advance()
	for {
		ch := l.peek()
		if l.pos >= len(l.input) || ch == '\n' {
			return l.errorf(line, column, "unterminated %s literal", quoteName(quote))
		}
		if ch == '\\' {
			l.advanceN(2)
			continue
		}
		l.advance()
		if ch == quote {
			return nil
		}
	}
}

func quoteName(quote byte) string {
	if quote == '\'' {
		return "character"
	}
	return "string"
}

func (l *lexer) scanNumber() {
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case isDigit(ch) || ch == '_' || ch == '.' || isASCIILetter(ch):
			exponent := ch == 'e' || ch == 'E' || ch == 'p' || ch == 'P'
			l.advance()
			if exponent && (l.peek() == '+' || l.peek() == '-') {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *lexer) scanPunctuation() Kind {
	switch {
	case l.hasPrefix("..."):
		l.advanceN(3)
		return Separator
	case l.hasPrefix("::"):
		l.advanceN(2)
		return Separator
	}

	switch l.peek() {
	case '(', ')', '{', '}', '[', ']', ';', ',', '.', '@':
		l.advance()
		return Separator
	}

	for _, op := range operators {
		if l.hasPrefix(op) {
			l.advanceN(len(op))
			return Operator
		}
	}

	// Unknown byte: emit it as a one-rune operator so scanning continues.
	_, size := utf8.DecodeRune(l.input[l.pos:])
	l.advanceN(size)
	return Operator
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if b[0] < utf8.RuneSelf {
		return isASCIILetter(b[0]) || b[0] == '_' || b[0] == '$'
	}
	r, _ := utf8.DecodeRune(b)
	return unicode.IsLetter(r)
}

func isIdentPart(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if b[0] < utf8.RuneSelf {
		return isIdentStart(b) || isDigit(b[0])
	}
	r, _ := utf8.DecodeRune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
