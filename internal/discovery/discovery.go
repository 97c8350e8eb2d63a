// Package discovery walks the workspace root, applying default
// excludes, gitignore rules and include/exclude glob patterns, and
// hands a bounded candidate file list to the search pool and AST
// layer. Glob matching uses doublestar so `**` patterns behave the
// way config.Exclude documents them.
package discovery

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lightningralf/ontology-engine/internal/config"
)

// Walker discovers candidate files under a workspace root.
type Walker struct {
	root      string
	include   []string
	exclude   []string
	gitignore *config.GitignoreParser
}

// NewWalker builds a Walker from a loaded Config. Gitignore parsing is
// best-effort: a missing or unreadable .gitignore yields an empty
// parser rather than an error.
func NewWalker(cfg *config.Config) *Walker {
	gi := config.NewGitignoreParser()
	_ = gi.LoadGitignore(cfg.Project.Root)
	return &Walker{
		root:      cfg.Project.Root,
		include:   cfg.Include,
		exclude:   cfg.Exclude,
		gitignore: gi,
	}
}

// Root returns the workspace root this Walker scans.
func (w *Walker) Root() string {
	return w.root
}

// Discover walks root and returns every file matching include and not
// matching exclude/gitignore, relative paths rooted at root.
func (w *Walker) Discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole walk
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.dirExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.excluded(rel) {
			return nil
		}
		if !w.included(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (w *Walker) dirExcluded(rel string) bool {
	if rel == "." {
		return false
	}
	for _, pat := range w.exclude {
		if matched, _ := doublestar.Match(pat, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pat, rel+"/"); matched {
			return true
		}
	}
	return w.gitignore.ShouldIgnore(rel, true)
}

func (w *Walker) excluded(rel string) bool {
	for _, pat := range w.exclude {
		if matched, _ := doublestar.Match(pat, rel); matched {
			return true
		}
	}
	return w.gitignore.ShouldIgnore(rel, false)
}

func (w *Walker) included(rel string) bool {
	if len(w.include) == 0 {
		return true
	}
	for _, pat := range w.include {
		if pat == "**/*" {
			if !strings.HasPrefix(rel, ".") {
				return true
			}
			continue
		}
		if matched, _ := doublestar.Match(pat, rel); matched {
			return true
		}
	}
	return false
}
