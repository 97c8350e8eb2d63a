package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreParser parses .gitignore-style pattern files and answers
// ShouldIgnore queries against them. Matching is delegated to
// doublestar, the same glob engine internal/discovery uses for
// config.Include/config.Exclude, so the two pattern dialects agree on
// wildcard behavior instead of each rolling its own.
type GitignoreParser struct {
	patterns []GitignorePattern
}

// GitignorePattern is one parsed line of a gitignore file.
type GitignorePattern struct {
	Pattern   string // cleaned pattern, modifiers stripped
	Negate    bool   // leading "!"
	Directory bool   // trailing "/"
	Absolute  bool   // leading "/"
}

// NewGitignoreParser creates a new gitignore parser
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{
		patterns: make([]GitignorePattern, 0),
	}
}

// LoadGitignore loads patterns from a .gitignore file
func (gp *GitignoreParser) LoadGitignore(rootPath string) error {
	gitignorePath := filepath.Join(rootPath, ".gitignore")

	file, err := os.Open(gitignorePath)
	if err != nil {
		// .gitignore file doesn't exist, which is fine
		return nil
	}
	defer file.Close()

	return gp.scanAndParsePatterns(file)
}

// scanAndParsePatterns scans a file and parses each line as a pattern
func (gp *GitignoreParser) scanAndParsePatterns(file *os.File) error {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if gp.shouldSkipLine(line) {
			continue
		}

		pattern := gp.parsePattern(line)
		gp.patterns = append(gp.patterns, pattern)
	}

	return scanner.Err()
}

// shouldSkipLine checks if a line should be skipped (empty or comment)
func (gp *GitignoreParser) shouldSkipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

// AddPattern adds a single pattern to the parser (for testing)
func (gp *GitignoreParser) AddPattern(line string) {
	pattern := gp.parsePattern(line)
	gp.patterns = append(gp.patterns, pattern)
}

// parsePattern parses a single gitignore pattern line into its
// modifiers and the cleaned glob body doublestar matches against.
func (gp *GitignoreParser) parsePattern(line string) GitignorePattern {
	pattern := GitignorePattern{}
	line = gp.extractPatternModifiers(&pattern, line)
	pattern.Pattern = line
	return pattern
}

// extractPatternModifiers extracts and processes pattern modifiers (!, /, leading /)
// Returns the cleaned pattern string
func (gp *GitignoreParser) extractPatternModifiers(pattern *GitignorePattern, line string) string {
	// Handle negation (!)
	if strings.HasPrefix(line, "!") {
		pattern.Negate = true
		line = line[1:]
	}

	// Handle directory-only patterns (ending with /)
	if strings.HasSuffix(line, "/") {
		pattern.Directory = true
		line = strings.TrimSuffix(line, "/")
	}

	// Handle absolute patterns (starting with /)
	if strings.HasPrefix(line, "/") {
		pattern.Absolute = true
		line = line[1:]
	}

	return line
}

// ShouldIgnore checks if a path should be ignored based on gitignore patterns
func (gp *GitignoreParser) ShouldIgnore(path string, isDir bool) bool {
	// Convert to forward slashes for consistent matching
	path = filepath.ToSlash(path)

	ignored := false

	for _, pattern := range gp.patterns {
		if gp.matchesPattern(pattern, path, isDir) {
			ignored = !pattern.Negate
		}
	}

	return ignored
}

// matchesPattern checks whether pattern applies to path, following the
// same precedence gitignore itself uses: directory patterns match the
// directory and everything under it, absolute patterns anchor to the
// root, and everything else may match at any depth.
func (gp *GitignoreParser) matchesPattern(pattern GitignorePattern, path string, isDir bool) bool {
	if pattern.Directory {
		if isDir {
			return gp.matchDirectoryPattern(pattern, path)
		}
		return gp.matchInsideDirectoryPattern(pattern, path)
	}

	return gp.matchesNonDirectory(pattern, path)
}

// globMatch reports whether glob matches subject under doublestar
// semantics, treating an unparsable glob as a non-match rather than an
// error (a malformed gitignore line should never abort a scan).
func (gp *GitignoreParser) globMatch(glob, subject string) bool {
	matched, err := doublestar.Match(glob, subject)
	return err == nil && matched
}

// matchDirectoryPattern checks if a directory path matches a gitignore directory pattern
func (gp *GitignoreParser) matchDirectoryPattern(pattern GitignorePattern, path string) bool {
	if gp.matchesNonDirectory(pattern, path) {
		return true
	}

	// A pattern written with an explicit trailing /** matches the
	// directory itself plus everything beneath it.
	if strings.HasSuffix(pattern.Pattern, "/**") {
		base := strings.TrimSuffix(pattern.Pattern, "/**")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}

	return false
}

// matchesNonDirectory applies the absolute/relative matching rules
// used by matchesPattern, without the Directory-field dispatch, so
// matchDirectoryPattern can reuse it on a pattern whose Directory flag
// is already known true.
func (gp *GitignoreParser) matchesNonDirectory(pattern GitignorePattern, path string) bool {
	if pattern.Absolute {
		return gp.globMatch(pattern.Pattern, path)
	}
	if gp.globMatch(pattern.Pattern, path) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if gp.globMatch(pattern.Pattern, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

// matchInsideDirectoryPattern checks if a file path is inside a directory that matches a gitignore directory pattern
func (gp *GitignoreParser) matchInsideDirectoryPattern(pattern GitignorePattern, path string) bool {
	if strings.HasPrefix(path, pattern.Pattern+"/") {
		return true
	}
	return gp.matchesNonDirectory(pattern, path)
}

// GetExclusionPatterns returns gitignore patterns as doublestar exclusion patterns.
func (gp *GitignoreParser) GetExclusionPatterns() []string {
	var exclusions []string

	for _, pattern := range gp.patterns {
		if pattern.Negate {
			// Skip negation patterns for now (complex to implement)
			continue
		}

		converted := gp.convertToExclusionPattern(pattern)
		if converted != "" {
			exclusions = append(exclusions, converted)
		}
	}

	return exclusions
}

// convertToExclusionPattern converts a gitignore pattern to a doublestar exclusion pattern.
func (gp *GitignoreParser) convertToExclusionPattern(pattern GitignorePattern) string {
	p := pattern.Pattern

	if pattern.Directory {
		if pattern.Absolute {
			return p + "/**"
		}
		return "**/" + p + "/**"
	}

	if pattern.Absolute {
		return p
	}
	return "**/" + p
}
