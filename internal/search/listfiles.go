package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ListFilesOptions parametrizes the search pool's file-listing mode.
type ListFilesOptions struct {
	Path     string
	Includes []string
	Excludes []string
	MaxDepth int
	MaxFiles int
	TimeoutMs int
}

// ListFiles mirrors Search but returns only file paths, honoring
// MaxFiles and MaxDepth. Returns absolute paths.
func (p *Pool) ListFiles(ctx context.Context, opts ListFilesOptions) ([]string, error) {
	root := opts.Path
	if root == "" {
		root = p.root
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return filepath.SkipAll
		default:
		}

		rel, _ := filepath.Rel(absRoot, path)
		depth := strings.Count(rel, string(filepath.Separator))

		if info.IsDir() {
			if rel != "." && p.excludeDirs[filepath.Base(path)] {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchesAny(opts.Includes, rel) {
			return nil
		}
		if matchesAny(opts.Excludes, rel) {
			return nil
		}

		files = append(files, path)
		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
