package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/jstruct/internal/batch"
	"github.com/mvp-joe/jstruct/internal/extractor"
)

// Test Plan for Store:
// - Open creates the schema once; reopening a file database keeps its rows
// - NewStore rejects a database with another schema version
// - Store writes files, classes, methods, parameters and calls
// - Nested classes carry their parent id, depth and qualified name
// - Storing the same path again replaces its rows
// - Remove cascades to every child table and ignores unknown paths
// - Callers finds invoking methods by simple name
// - Store satisfies the batch sink contract

var _ batch.Sink = (*Store)(nil)

const sampleSource = `class A {
    A(int x, String... rest) { init(); }
    void run() { helper(); helper(); log("x"); }
    void helper() {}
    class B {
        void go() { run(); }
    }
}`

func analyze(t *testing.T, src string) *extractor.AnalysisResult {
	t.Helper()
	result, err := extractor.New().Analyze(t.Context(), src)
	require.NoError(t, err)
	return result
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(NewTestDB(t))
	require.NoError(t, err)
	return s
}

func TestOpen_CreatesSchemaOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Store(t.Context(), "A.java", analyze(t, sampleSource)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := GetSchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	counts, err := s.Counts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Files)
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()

	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	counts, err := s.Counts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestNewStore_SchemaMismatch(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	_, err := db.Exec("UPDATE metadata SET value = '99' WHERE key = 'schema_version'")
	require.NoError(t, err)

	_, err = NewStore(db)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestStore_WritesRows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Store(t.Context(), "pkg/A.java", analyze(t, sampleSource)))

	counts, err := s.Counts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 1, Classes: 2, Methods: 4, Parameters: 2, Calls: 4}, counts)

	var classCount, methodCount int
	var analyzedAt string
	require.NoError(t, s.db.QueryRow(
		"SELECT class_count, method_count, analyzed_at FROM files WHERE file_path = ?", "pkg/A.java",
	).Scan(&classCount, &methodCount, &analyzedAt))
	assert.Equal(t, 2, classCount)
	assert.Equal(t, 4, methodCount)
	_, err = time.Parse(time.RFC3339, analyzedAt)
	assert.NoError(t, err)

	var isCtor bool
	var returnType string
	require.NoError(t, s.db.QueryRow(
		"SELECT is_constructor, return_type FROM methods WHERE qualified_name = 'A.A'",
	).Scan(&isCtor, &returnType))
	assert.True(t, isCtor)
	assert.Equal(t, "void", returnType)

	rows, err := s.db.Query(`
		SELECT p.name, p.param_type FROM parameters p
		JOIN methods m ON m.method_id = p.method_id
		WHERE m.qualified_name = 'A.A' ORDER BY p.position`)
	require.NoError(t, err)
	defer rows.Close()
	var params [][2]string
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		params = append(params, [2]string{name, typ})
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, [][2]string{{"x", "int"}, {"rest", "String..."}}, params)
}

func TestStore_NestedClasses(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Store(t.Context(), "A.java", analyze(t, sampleSource)))

	var outerID string
	require.NoError(t, s.db.QueryRow("SELECT class_id FROM classes WHERE qualified_name = 'A'").Scan(&outerID))

	var parentID sql.NullString
	var depth int
	var modifiers string
	require.NoError(t, s.db.QueryRow(
		"SELECT parent_id, depth, modifiers FROM classes WHERE qualified_name = 'A.B'",
	).Scan(&parentID, &depth, &modifiers))
	assert.Equal(t, outerID, parentID.String)
	assert.Equal(t, 1, depth)
	assert.Equal(t, "[]", modifiers)

	var method string
	require.NoError(t, s.db.QueryRow("SELECT qualified_name FROM methods WHERE name = 'go'").Scan(&method))
	assert.Equal(t, "A.B.go", method)
}

func TestStore_ReplacesAndRemoves(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Store(ctx, "A.java", analyze(t, sampleSource)))
	require.NoError(t, s.Store(ctx, "A.java", analyze(t, sampleSource)))
	require.NoError(t, s.Store(ctx, "C.java", analyze(t, "public class C { void c() { run(); } }")))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 2, Classes: 3, Methods: 5, Parameters: 2, Calls: 5}, counts)

	require.NoError(t, s.Remove(ctx, "A.java"))
	counts, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Files: 1, Classes: 1, Methods: 1, Parameters: 0, Calls: 1}, counts)

	require.NoError(t, s.Remove(ctx, "Missing.java"))
}

func TestStore_Callers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.Store(ctx, "A.java", analyze(t, sampleSource)))
	require.NoError(t, s.Store(ctx, "C.java", analyze(t, "class C { void c() { run(); run(); } }")))

	tests := []struct {
		callee string
		want   []Caller
	}{
		{"run", []Caller{{"A.java", "A.B.go"}, {"C.java", "C.c"}}},
		{"helper", []Caller{{"A.java", "A.run"}}},
		{"nobody", []Caller{}},
	}
	for _, tt := range tests {
		got, err := s.Callers(ctx, tt.callee)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.callee)
	}
}

func TestEncodeList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[]", encodeList(nil))
	assert.Equal(t, `["public","static"]`, encodeList([]string{"public", "static"}))
}
