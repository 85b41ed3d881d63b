package extractor

import (
	"strings"

	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

// CommentsFor returns the comments written directly above a declaration,
// joined with newlines in source order. Modifier and annotation siblings
// and whitespace-only siblings are stepped over; any other sibling ends
// the search.
func CommentsFor(decl syntax.Node, buf *source.Buffer) string {
	if decl == nil {
		return ""
	}

	var collected []string
	for prev := decl.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		switch {
		case syntax.IsComment(prev):
			collected = append(collected, buf.Slice(prev.StartByte(), prev.EndByte()))
		case prev.Kind() == "modifiers" || syntax.IsAnnotation(prev):
		case strings.TrimSpace(buf.Slice(prev.StartByte(), prev.EndByte())) == "":
		default:
			return joinReversed(collected)
		}
	}
	return joinReversed(collected)
}

func joinReversed(parts []string) string {
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "\n")
}
