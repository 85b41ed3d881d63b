// Package source holds the byte-indexed text of a single source unit.
//
// Parser collaborators report node boundaries as byte offsets into the UTF-8
// encoding of the text, so every substring operation here works on bytes.
// Slicing by rune index would shift spans as soon as the text contains a
// non-ASCII character.
package source

import "sort"

// Buffer owns the raw bytes of one source unit.
type Buffer struct {
	data []byte

	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []int
}

// New creates a buffer from source text.
func New(text string) *Buffer {
	return FromBytes([]byte(text))
}

// FromBytes creates a buffer from raw UTF-8 bytes. The slice is copied.
func FromBytes(data []byte) *Buffer {
	b := &Buffer{data: append([]byte(nil), data...)}
	b.lineStarts = computeLineStarts(b.data)
	return b
}

func computeLineStarts(data []byte) []int {
	starts := []int{0}
	for i, c := range data {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Bytes returns the underlying bytes. Callers must not modify them.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// LineCount returns the number of lines. A trailing newline starts an empty
// final line, matching a split on "\n".
func (b *Buffer) LineCount() int {
	return len(b.lineStarts)
}

// Slice returns the text between two byte offsets as an independent string.
// Out-of-range offsets are clamped; an empty or inverted range yields "".
func (b *Buffer) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(b.data) {
		end = len(b.data)
	}
	if start >= end {
		return ""
	}
	return string(b.data[start:end])
}

// LineColToByte converts a 1-based line and 1-based byte column into a byte
// offset: the lengths of all preceding lines (each plus one separator byte)
// followed by column-1. A line past the end of the text maps to Len().
func (b *Buffer) LineColToByte(line, column int) int {
	if line > len(b.lineStarts) {
		return len(b.data)
	}
	offset := 0
	if line >= 1 {
		offset = b.lineStarts[line-1]
	}
	offset += column - 1
	if offset < 0 {
		return 0
	}
	if offset > len(b.data) {
		return len(b.data)
	}
	return offset
}

// ByteToLineCol is the inverse of LineColToByte.
func (b *Buffer) ByteToLineCol(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.data) {
		offset = len(b.data)
	}
	idx := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1
	return idx + 1, offset - b.lineStarts[idx] + 1
}
