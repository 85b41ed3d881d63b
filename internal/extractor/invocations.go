package extractor

import (
	"sort"

	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

// CollectInvocations returns the distinct simple names of every method
// invoked under body, sorted. Receivers and qualifiers are ignored.
// A nil body yields an empty, non-nil slice.
//
// The walk uses an explicit stack, so deeply nested expressions cannot
// exhaust the goroutine stack.
func CollectInvocations(body syntax.Node, buf *source.Buffer) []string {
	names := []string{}
	if body == nil {
		return names
	}

	seen := make(map[string]struct{})
	stack := []syntax.Node{body}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Kind() == "method_invocation" {
			if name := n.ChildByFieldName("name"); name != nil {
				text := buf.Slice(name.StartByte(), name.EndByte())
				if _, ok := seen[text]; !ok && text != "" {
					seen[text] = struct{}{}
					names = append(names, text)
				}
			}
		}

		for i := n.ChildCount() - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}

	sort.Strings(names)
	return names
}
