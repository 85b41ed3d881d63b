// Package storage persists analysis results in SQLite so they can be
// queried across files.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/jstruct/internal/extractor"
)

// ErrSchemaMismatch is returned when an existing database was created by an
// incompatible schema version.
var ErrSchemaMismatch = errors.New("database schema version mismatch")

// Store writes analysis results to SQLite. Each file's rows are replaced as
// a whole, so a file is never observed half written.
type Store struct {
	db    *sql.DB
	owned bool
}

// Counts is the number of rows per table.
type Counts struct {
	Files      int
	Classes    int
	Methods    int
	Parameters int
	Calls      int
}

// Caller is a method that invokes a given name.
type Caller struct {
	FilePath string
	Method   string
}

// Open opens or creates the database at path and ensures the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// on one database.
	db.SetMaxOpenConns(1)

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewStore wraps an open database, creating the schema on first use.
// The caller keeps ownership of db; foreign keys must be enabled on it.
func NewStore(db *sql.DB) (*Store, error) {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return nil, err
	}

	switch version {
	case "0":
		if err := CreateSchema(db); err != nil {
			return nil, err
		}
	case SchemaVersion:
	default:
		return nil, fmt.Errorf("%w: have %s, want %s", ErrSchemaMismatch, version, SchemaVersion)
	}

	return &Store{db: db}, nil
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Store replaces every row of relPath with result in one transaction.
func (s *Store) Store(ctx context.Context, relPath string, result *extractor.AnalysisResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if err := deleteFile(ctx, tx, relPath); err != nil {
		return err
	}

	fileSQL, args, err := sq.Insert("files").
		Columns("file_path", "class_count", "method_count", "analyzed_at").
		Values(relPath, result.ClassCount(), result.MethodCount(), time.Now().UTC().Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build file SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fileSQL, args...); err != nil {
		return fmt.Errorf("failed to insert file %s: %w", relPath, err)
	}

	w, err := newResultWriter(ctx, tx, relPath)
	if err != nil {
		return err
	}
	defer w.close()

	for i := range result.Classes {
		if err := w.writeClass(&result.Classes[i], nil, nil, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", relPath, err)
	}
	return nil
}

// Remove deletes every row of relPath. Removing an unknown file is not an
// error.
func (s *Store) Remove(ctx context.Context, relPath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFile(ctx, tx, relPath); err != nil {
		return err
	}
	return tx.Commit()
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"files", &c.Files},
		{"classes", &c.Classes},
		{"methods", &c.Methods},
		{"parameters", &c.Parameters},
		{"calls", &c.Calls},
	}
	for _, target := range targets {
		query, args, err := sq.Select("COUNT(*)").From(target.table).ToSql()
		if err != nil {
			return Counts{}, err
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(target.dst); err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", target.table, err)
		}
	}
	return c, nil
}

// Callers returns every method that invokes callee, ordered by file and
// qualified method name.
func (s *Store) Callers(ctx context.Context, callee string) ([]Caller, error) {
	query, args, err := sq.Select("DISTINCT m.file_path", "m.qualified_name").
		From("calls c").
		Join("methods m ON m.method_id = c.method_id").
		Where(sq.Eq{"c.callee_name": callee}).
		OrderBy("m.file_path", "m.qualified_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build callers query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query callers of %s: %w", callee, err)
	}
	defer rows.Close()

	callers := []Caller{}
	for rows.Next() {
		var c Caller
		if err := rows.Scan(&c.FilePath, &c.Method); err != nil {
			return nil, fmt.Errorf("failed to scan caller: %w", err)
		}
		callers = append(callers, c)
	}
	return callers, rows.Err()
}

func deleteFile(ctx context.Context, tx *sql.Tx, relPath string) error {
	query, args, err := sq.Delete("files").Where(sq.Eq{"file_path": relPath}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete rows of %s: %w", relPath, err)
	}
	return nil
}

// resultWriter holds the prepared statements for one file's rows.
type resultWriter struct {
	ctx      context.Context
	filePath string
	class    *sql.Stmt
	method   *sql.Stmt
	param    *sql.Stmt
	call     *sql.Stmt
}

func newResultWriter(ctx context.Context, tx *sql.Tx, filePath string) (*resultWriter, error) {
	w := &resultWriter{ctx: ctx, filePath: filePath}

	statements := []struct {
		dst   **sql.Stmt
		table string
		cols  []string
	}{
		{&w.class, "classes", []string{
			"class_id", "file_path", "parent_id", "name", "qualified_name", "depth", "position",
			"modifiers", "annotations", "extends", "implements", "comments", "original_code",
		}},
		{&w.method, "methods", []string{
			"method_id", "class_id", "file_path", "name", "qualified_name", "is_constructor",
			"return_type", "position", "modifiers", "annotations", "comments", "original_code",
		}},
		{&w.param, "parameters", []string{"method_id", "position", "name", "param_type"}},
		{&w.call, "calls", []string{"method_id", "callee_name"}},
	}

	for _, st := range statements {
		placeholders := make([]any, len(st.cols))
		query, _, err := sq.Insert(st.table).Columns(st.cols...).Values(placeholders...).ToSql()
		if err != nil {
			w.close()
			return nil, fmt.Errorf("failed to build %s SQL: %w", st.table, err)
		}
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("failed to prepare %s statement: %w", st.table, err)
		}
		*st.dst = stmt
	}
	return w, nil
}

func (w *resultWriter) close() {
	for _, stmt := range []*sql.Stmt{w.class, w.method, w.param, w.call} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// writeClass inserts class, its methods and its inner classes. path holds
// the names of the enclosing classes.
func (w *resultWriter) writeClass(class *extractor.ClassInfo, parentID *string, path []string, position int) error {
	id := uuid.New().String()
	path = append(path[:len(path):len(path)], class.Name)
	qualified := strings.Join(path, ".")

	_, err := w.class.ExecContext(w.ctx,
		id,
		w.filePath,
		parentID,
		class.Name,
		qualified,
		len(path)-1,
		position,
		encodeList(class.Modifiers),
		encodeList(class.Annotations),
		encodeList(class.Extends),
		encodeList(class.Implements),
		class.Comments,
		class.OriginalCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert class %s: %w", qualified, err)
	}

	for i := range class.Methods {
		if err := w.writeMethod(&class.Methods[i], id, qualified, i); err != nil {
			return err
		}
	}

	for i := range class.InnerClasses {
		if err := w.writeClass(&class.InnerClasses[i], &id, path, i); err != nil {
			return err
		}
	}
	return nil
}

func (w *resultWriter) writeMethod(method *extractor.MethodInfo, classID, className string, position int) error {
	id := uuid.New().String()
	qualified := className + "." + method.Name

	_, err := w.method.ExecContext(w.ctx,
		id,
		classID,
		w.filePath,
		method.Name,
		qualified,
		method.IsConstructor,
		method.ReturnType,
		position,
		encodeList(method.Modifiers),
		encodeList(method.Annotations),
		method.Comments,
		method.OriginalCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert method %s: %w", qualified, err)
	}

	for i, p := range method.Parameters {
		if _, err := w.param.ExecContext(w.ctx, id, i, p.Name, p.Type); err != nil {
			return fmt.Errorf("failed to insert parameter %s of %s: %w", p.Name, qualified, err)
		}
	}

	for _, callee := range method.CalledFunctions {
		if _, err := w.call.ExecContext(w.ctx, id, callee); err != nil {
			return fmt.Errorf("failed to insert call %s from %s: %w", callee, qualified, err)
		}
	}
	return nil
}

// encodeList stores a string list as a JSON array; nil becomes "[]".
func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}
