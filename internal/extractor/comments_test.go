package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/jstruct/internal/source"
)

// Test Plan for CommentsFor and CollectInvocations:
// - Contiguous comments above a declaration are joined oldest first
// - A modifiers sibling between comment and declaration is stepped over
// - Whitespace-only siblings are stepped over
// - Any other sibling stops the walk
// - No comments yields ""
// - Invocation names are deduplicated and sorted; qualifiers are ignored
// - A nil body yields an empty, non-nil slice

func TestCommentsFor_ModifiersBetweenCommentAndDeclaration(t *testing.T) {
	t.Parallel()

	//           0         1         2         3
	//           0123456789012345678901234567890123456
	src := "int x; // a\n/** doc */ public void m() {}"
	buf := source.New(src)

	field := node("field_declaration", 0, 6)
	lineComment := node("line_comment", 7, 11)
	doc := node("block_comment", 12, 22)
	mods := node("modifiers", 23, 29)
	method := node("method_declaration", 30, 41)
	node("class_body", 0, 41, field, lineComment, doc, mods, method)

	assert.Equal(t, "// a\n/** doc */", CommentsFor(method, buf))
	assert.Equal(t, "", CommentsFor(field, buf))
}

func TestCommentsFor_StopsAtCode(t *testing.T) {
	t.Parallel()

	src := "/* a */ int x; /* b */   void m() {}"
	buf := source.New(src)

	a := node("block_comment", 0, 7)
	field := node("field_declaration", 8, 14)
	b := node("block_comment", 15, 22)
	ws := node("text", 22, 25)
	method := node("method_declaration", 25, 36)
	node("class_body", 0, 36, a, field, b, ws, method)

	assert.Equal(t, "/* b */", CommentsFor(method, buf))
	assert.Equal(t, "/* a */", CommentsFor(field, buf))
	assert.Equal(t, "", CommentsFor(nil, buf))
}

func TestCommentsFor_AnnotationSibling(t *testing.T) {
	t.Parallel()

	src := "// doc\n@Deprecated\nclass A {}"
	buf := source.New(src)

	comment := node("line_comment", 0, 6)
	annotation := node("marker_annotation", 7, 18)
	class := node("class_declaration", 19, 29)
	node("program", 0, 29, comment, annotation, class)

	assert.Equal(t, "// doc", CommentsFor(class, buf))
}

func TestCollectInvocations(t *testing.T) {
	t.Parallel()

	an := newTestAnalyzer(t)
	result, err := an.Analyze(t.Context(), `class T {
    void m() {
        b();
        this.b();
        list.stream().map(x -> x.trim()).forEach(System.out::println);
        new Thread(() -> run()).start();
    }
}`)
	require.NoError(t, err)
	require.Len(t, result.Classes, 1)
	require.Len(t, result.Classes[0].Methods, 1)

	assert.Equal(t,
		[]string{"b", "forEach", "map", "run", "start", "stream", "trim"},
		result.Classes[0].Methods[0].CalledFunctions)

	names := CollectInvocations(nil, source.New(""))
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
