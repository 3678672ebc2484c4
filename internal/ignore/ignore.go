// Package ignore implements gitignore-style pattern matching over two
// independent pattern files: a VCS-style ignore file (e.g. .gitignore)
// and a project-specific ignore file (e.g. .gopherctlignore). A Filter
// is immutable once loaded — patterns are read once at construction and
// never reloaded for the lifetime of a session.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern represents a single ignore-file line.
type pattern struct {
	pattern  string
	negation bool // starts with !
	dirOnly  bool // ends with /
	anchored bool // contains a / other than a trailing one, or a leading /
	baseDir  string
	source   string // "vcs" or "project", for diagnostics
}

// Filter matches paths against a combined set of VCS and project ignore
// patterns, the same two-list arrangement tools like this commonly offer
// so a project can ignore build output without editing .gitignore.
type Filter struct {
	rootDir  string
	patterns []pattern

	mu          sync.RWMutex
	resultCache map[string]bool
	cacheOrder  []string
}

const maxResultCacheSize = 1000

// NewFilter loads patterns from vcsIgnorePath and projectIgnorePath (both
// optional — a missing file contributes no patterns) rooted at rootDir,
// plus an implicit ".git" directory-only ignore, and returns an immutable
// Filter.
func NewFilter(rootDir, vcsIgnorePath, projectIgnorePath string) (*Filter, error) {
	f := &Filter{
		rootDir:     rootDir,
		resultCache: make(map[string]bool),
	}

	if vcsIgnorePath != "" {
		if err := f.loadFile(vcsIgnorePath, rootDir, "vcs"); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if projectIgnorePath != "" {
		if err := f.loadFile(projectIgnorePath, rootDir, "project"); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	f.patterns = append(f.patterns, pattern{
		pattern:  ".git",
		dirOnly:  true,
		baseDir:  rootDir,
		source:   "vcs",
	})

	return f, nil
}

func (f *Filter) loadFile(path, baseDir, source string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if p := parseLine(scanner.Text(), baseDir, source); p != nil {
			f.patterns = append(f.patterns, *p)
		}
	}
	return scanner.Err()
}

func parseLine(line, baseDir, source string) *pattern {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &pattern{baseDir: baseDir, source: source}

	if strings.HasPrefix(line, "!") {
		p.negation = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	if strings.Contains(line, "/") {
		p.anchored = true
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	p.pattern = line
	return p
}

// IsIgnored reports whether path (absolute, or relative to rootDir)
// matches the loaded pattern set. The last matching pattern wins, per
// gitignore semantics, so a later negation can un-ignore an earlier match.
func (f *Filter) IsIgnored(path string) bool {
	f.mu.RLock()
	if result, ok := f.resultCache[path]; ok {
		f.mu.RUnlock()
		return result
	}
	f.mu.RUnlock()

	result := f.calculate(path)
	f.cacheResult(path, result)
	return result
}

func (f *Filter) calculate(path string) bool {
	relPath, err := filepath.Rel(f.rootDir, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()

	ignored := false
	for _, p := range f.patterns {
		if matchPattern(f.rootDir, p, relPath, isDir) {
			ignored = !p.negation
		}
	}
	return ignored
}

func (f *Filter) cacheResult(path string, result bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.resultCache[path]; ok {
		return
	}

	if len(f.resultCache) >= maxResultCacheSize && len(f.cacheOrder) > 0 {
		oldest := f.cacheOrder[0]
		delete(f.resultCache, oldest)
		f.cacheOrder = f.cacheOrder[1:]
	}

	f.resultCache[path] = result
	f.cacheOrder = append(f.cacheOrder, path)
}

func matchPattern(rootDir string, p pattern, relPath string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}

	patternPath := p.pattern
	if p.baseDir != rootDir {
		if baseDirRel, err := filepath.Rel(rootDir, p.baseDir); err == nil {
			patternPath = filepath.ToSlash(filepath.Join(baseDirRel, p.pattern))
		}
	}

	if p.anchored {
		return globMatch(patternPath, relPath) || globMatch(patternPath+"/**", relPath)
	}

	if globMatch("**/"+patternPath, relPath) || globMatch("**/"+patternPath+"/**", relPath) {
		return true
	}

	return globMatch(patternPath, filepath.Base(relPath))
}

func globMatch(pattern, path string) bool {
	matched, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}

// DefaultProjectIgnoreFilename is the project-specific ignore file this
// app looks for alongside .gitignore.
const DefaultProjectIgnoreFilename = ".gopherctlignore"
