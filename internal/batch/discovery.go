package batch

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// configDirName is never analyzed, whatever the ignore patterns say.
const configDirName = ".jstruct"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds source files under a root directory by extension
// allow-list and glob ignore patterns.
type Discovery struct {
	rootDir        string
	extensions     []string
	extensionSet   map[string]bool
	ignorePatterns []compiledPattern
}

// NewDiscovery creates a discovery for rootDir. Extensions are matched
// case-insensitively and must include the leading dot. Ignore patterns are
// globs over slash-separated paths relative to rootDir.
func NewDiscovery(rootDir string, extensions, ignorePatterns []string) (*Discovery, error) {
	d := &Discovery{
		rootDir:      rootDir,
		extensionSet: make(map[string]bool, len(extensions)),
	}

	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !d.extensionSet[ext] {
			d.extensionSet[ext] = true
			d.extensions = append(d.extensions, ext)
		}
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.ignorePatterns = append(d.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return d, nil
}

// Root returns the directory being discovered.
func (d *Discovery) Root() string {
	return d.rootDir
}

// Extensions returns the normalized extension allow-list.
func (d *Discovery) Extensions() []string {
	return d.extensions
}

// Discover walks the root and returns the matching files as sorted,
// slash-separated paths relative to the root. Ignored directories are not
// descended into.
func (d *Discovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if relPath != "." && d.ShouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Matches(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether relPath has an allowed extension and is not
// ignored.
func (d *Discovery) Matches(relPath string) bool {
	if !d.extensionSet[strings.ToLower(filepath.Ext(relPath))] {
		return false
	}
	return !d.ShouldIgnore(relPath)
}

// ShouldIgnore checks if a relative path matches any ignore pattern.
func (d *Discovery) ShouldIgnore(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	if relPath == configDirName || strings.HasPrefix(relPath, configDirName+"/") {
		return true
	}

	if d.matchesAnyPattern(relPath) {
		return true
	}

	// "target" matches "target/**"
	return d.matchesAnyPattern(relPath + "/**")
}

// IgnoreFunc adapts ShouldIgnore to paths rooted at the discovery root, as
// the file watcher reports them.
func (d *Discovery) IgnoreFunc() func(path string, isDir bool) bool {
	return func(path string, isDir bool) bool {
		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil || relPath == "." {
			return false
		}
		return d.ShouldIgnore(relPath)
	}
}

// matchesAnyPattern checks if a path matches any ignore pattern.
func (d *Discovery) matchesAnyPattern(path string) bool {
	for _, cp := range d.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level paths also match "**/" patterns without the prefix, so
	// "**/*.gen.java" matches both "A.gen.java" and "pkg/A.gen.java".
	if !strings.Contains(path, "/") {
		for _, cp := range d.ignorePatterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/')
			if err == nil && simplified.Match(path) {
				return true
			}
		}
	}

	return false
}
