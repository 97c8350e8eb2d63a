// Package search implements the regex search pool: a worker pool over
// the workspace tree with a per-call wall-clock budget and cooperative
// cancellation. No native `rg` binary is assumed present; Search
// always uses the in-process line-by-line scanner.
package search

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lightningralf/ontology-engine/internal/types"
)

// defaultExcludeDirs lists directory names skipped during L1 candidate listing.
var defaultExcludeDirs = map[string]bool{
	"node_modules": true, "dist": true, ".git": true, "coverage": true,
	"build": true, "out": true, "tmp": true, "target": true,
	"venv": true, ".venv": true,
}

// Pool runs regex searches over a workspace, sized from host
// concurrency with a configurable cap.
type Pool struct {
	root        string
	maxWorkers  int64
	excludeDirs map[string]bool
}

// NewPool builds a Pool. maxWorkers <= 0 uses NumCPU.
func NewPool(root string, maxWorkers int, extraExcludes []string) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	excludes := make(map[string]bool, len(defaultExcludeDirs)+len(extraExcludes))
	for k := range defaultExcludeDirs {
		excludes[k] = true
	}
	for _, e := range extraExcludes {
		excludes[e] = true
	}
	return &Pool{root: root, maxWorkers: int64(maxWorkers), excludeDirs: excludes}
}

// Search runs opts.Pattern over the tree rooted at opts.Path (or the
// pool's root when empty) and returns every matching line up to
// MaxResults, within the TimeoutMs budget. No matches is an empty
// slice, not an error; only setup failures (bad regex, unreadable
// root) return an error.
func (p *Pool) Search(ctx context.Context, opts types.SearchOptions) ([]types.StreamingResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	re, err := p.compile(opts)
	if err != nil {
		return nil, err
	}

	root := opts.Path
	if root == "" {
		root = p.root
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
	defer cancel()

	files, err := p.listFiles(root, opts)
	if err != nil {
		return nil, err
	}

	return p.scanFiles(ctx, files, re, opts)
}

// SearchInFiles scans an explicit file list for opts.Pattern, reusing
// the same bounded worker pool and line scanner as Search. It is the
// content-scanning half of a file-discovery strategy: the caller finds
// candidate files some other way (glob matching, AST declarations)
// and hands them here instead of letting Search walk the tree itself.
func (p *Pool) SearchInFiles(ctx context.Context, files []string, opts types.SearchOptions) ([]types.StreamingResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	re, err := p.compile(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
	defer cancel()
	return p.scanFiles(ctx, files, re, opts)
}

// SearchCancellable exposes Search as a channel plus a cancel func,
// for callers racing multiple strategies.
func (p *Pool) SearchCancellable(ctx context.Context, opts types.SearchOptions) (<-chan searchOutcome, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan searchOutcome, 1)
	go func() {
		defer close(out)
		results, err := p.Search(ctx, opts)
		select {
		case out <- searchOutcome{results: results, err: err}:
		case <-ctx.Done():
		}
	}()
	return out, cancel
}

type searchOutcome struct {
	results []types.StreamingResult
	err     error
}

func (p *Pool) compile(opts types.SearchOptions) (*regexp.Regexp, error) {
	pattern := opts.Pattern
	if !opts.UseRegex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// listFiles walks root honoring opts.ExcludePaths, opts.FileType and
// the pool's default exclusion set. It does not cap the number of
// candidate files; opts.MaxResults only limits the hits scanFiles
// collects.
func (p *Pool) listFiles(root string, opts types.SearchOptions) ([]string, error) {
	var files []string
	excluded := make(map[string]bool, len(opts.ExcludePaths))
	for _, e := range opts.ExcludePaths {
		excluded[e] = true
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		base := filepath.Base(path)
		if info.IsDir() {
			if p.excludeDirs[base] || excluded[base] {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded[base] {
			return nil
		}
		if opts.FileType != "" && filepath.Ext(path) != "."+opts.FileType {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scanFiles fans the candidate file list out over a bounded worker
// pool (errgroup + semaphore), each worker scanning its file
// line-by-line. A context cancellation (budget expiry or a race loser)
// stops in-flight workers; partial results gathered so far are
// returned rather than an error.
func (p *Pool) scanFiles(ctx context.Context, files []string, re *regexp.Regexp, opts types.SearchOptions) ([]types.StreamingResult, error) {
	sem := semaphore.NewWeighted(p.maxWorkers)
	g, gctx := errgroup.WithContext(ctx)

	resultsCh := make(chan types.StreamingResult, 256)
	done := make(chan struct{})
	var collected []types.StreamingResult
	go func() {
		defer close(done)
		for r := range resultsCh {
			collected = append(collected, r)
			if opts.MaxResults > 0 && len(collected) >= opts.MaxResults {
				return
			}
		}
	}()

	for _, f := range files {
		f := f
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			scanOneFile(gctx, f, re, resultsCh)
			return nil
		})
	}

	_ = g.Wait()
	close(resultsCh)
	<-done

	if ctx.Err() != nil && len(collected) == 0 {
		return []types.StreamingResult{}, nil
	}
	return collected, nil
}

func scanOneFile(ctx context.Context, path string, re *regexp.Regexp, out chan<- types.StreamingResult) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		select {
		case <-ctx.Done():
			return
		default:
		}
		text := scanner.Text()
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		select {
		case out <- types.StreamingResult{
			File:       path,
			Line:       line,
			Column:     loc[0] + 1,
			Text:       text,
			Match:      text[loc[0]:loc[1]],
			Confidence: 0.5,
		}:
		case <-ctx.Done():
			return
		}
	}
}
