// Package config loads and validates the tiered query pipeline's
// configuration, plus the ambient excludes/gitignore handling every
// layer needs.
package config

import (
	"os"
	"strconv"
)

// Config is the root configuration object.
type Config struct {
	Project     Project
	Layer1      Layer1
	Layer2      Layer2
	Performance Performance
	Cache       Cache
	Include     []string
	Exclude     []string
}

// Project carries the workspace root.
type Project struct {
	Root string
	Name string
}

// Layer1 configures the regex search pool.
type Layer1 struct {
	TimeoutMs            int // layer1.timeout, default 1000
	GrepDefaultTimeoutMs int // layer1.grep.defaultTimeout
	GrepMaxResults       int // layer1.grep.maxResults
	GrepExcludePatterns  []string
	MaxProcesses         int // ENHANCED_GREP_MAX_PROCESSES
}

// Layer2 configures the AST layer.
type Layer2 struct {
	Enabled           bool
	ParseTimeoutMs    int // layer2.parseTimeout, default 50
	MaxFileSize       int64
	BudgetMs          int // layer2.budgetMs, default 75
	MaxCandidateFiles int // layer2.maxCandidateFiles, default 10
}

// EscalationPolicy controls when L1 results escalate to L2.
type EscalationPolicy string

const (
	EscalationAuto   EscalationPolicy = "auto"
	EscalationAlways EscalationPolicy = "always"
	EscalationNever  EscalationPolicy = "never"
)

// Performance configures request budgets and the escalation gate.
type Performance struct {
	L1BudgetMs             int // default ~1200ms
	EscalationPolicy       EscalationPolicy
	L1ConfidenceThreshold  float64 // default 0.75
	L1AmbiguityMaxFiles    int     // default 5
	L1RequireFilenameMatch bool
	AugmentExplore         bool // L4_AUGMENT_EXPLORE
	P95TargetMs            int
	P99TargetMs            int
}

// Cache configures the result cache.
type Cache struct {
	Enabled    bool
	MinTTLSec  int // clamp floor, default 30
	MaxTTLSec  int // clamp ceiling, default 3600
	MaxEntries int // eviction ceiling, default 10000
	WarmSeeds  []string
}

// Default returns the built-in defaults before any file or environment
// override is applied.
func Default() *Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return &Config{
		Project: Project{Root: root},
		Layer1: Layer1{
			TimeoutMs:            1000,
			GrepDefaultTimeoutMs: 1000,
			GrepMaxResults:       200,
			MaxProcesses:         0, // 0 = auto-detect from NumCPU
			GrepExcludePatterns:  append([]string{}, defaultExcludeDirs...),
		},
		Layer2: Layer2{
			Enabled:           true,
			ParseTimeoutMs:    50,
			MaxFileSize:       2 * 1024 * 1024,
			BudgetMs:          75,
			MaxCandidateFiles: 10,
		},
		Performance: Performance{
			L1BudgetMs:             1200,
			EscalationPolicy:       EscalationAuto,
			L1ConfidenceThreshold:  0.75,
			L1AmbiguityMaxFiles:    5,
			L1RequireFilenameMatch: false,
			P95TargetMs:            300,
			P99TargetMs:            800,
		},
		Cache: Cache{
			Enabled:    true,
			MinTTLSec:  30,
			MaxTTLSec:  3600,
			MaxEntries: 10000,
		},
		Include: []string{"**/*"},
		Exclude: append([]string{}, defaultExcludePatterns...),
	}
}

// defaultExcludeDirs lists the directory names excluded by default
// across the search pool and discovery layers.
var defaultExcludeDirs = []string{
	"node_modules", "dist", ".git", "coverage", "build", "out",
	"tmp", "target", "venv", ".venv", "test-output-*",
}

var defaultExcludePatterns = []string{
	"**/node_modules/**", "**/dist/**", "**/.git/**", "**/coverage/**",
	"**/build/**", "**/out/**", "**/tmp/**", "**/target/**",
	"**/venv/**", "**/.venv/**", "**/test-output-*/**",
}

// Load builds a Config by layering: defaults, an optional .ontology.kdl
// project file, then environment variable overrides.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()
	if projectRoot != "" {
		cfg.Project.Root = projectRoot
	}

	if fromFile, err := LoadKDL(cfg.Project.Root); err != nil {
		return nil, err
	} else if fromFile != nil {
		cfg = mergeConfigs(cfg, fromFile)
	}

	applyEnvOverrides(cfg)
	cfg.EnrichExclusionsWithBuildArtifacts()

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads the environment variables that override config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKSPACE_ROOT"); v != "" {
		cfg.Project.Root = v
	}
	if v := os.Getenv("ONTOLOGY_WORKSPACE"); v != "" {
		cfg.Project.Root = v
	}
	if v := os.Getenv("ENHANCED_GREP_DEFAULT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Layer1.GrepDefaultTimeoutMs = n
		}
	}
	if v := os.Getenv("ENHANCED_GREP_MAX_PROCESSES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Layer1.MaxProcesses = n
		}
	}
	if v := os.Getenv("L4_AUGMENT_EXPLORE"); v == "1" || v == "true" {
		cfg.Performance.AugmentExplore = true
	}
	if v := os.Getenv("PERF_P95_TARGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Performance.P95TargetMs = n
		}
	}
	if v := os.Getenv("PERF_P99_TARGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Performance.P99TargetMs = n
		}
	}
}

// mergeConfigs merges a base config with a project-file config. Project
// values take precedence; base exclusions are preserved and deduplicated
// rather than replaced.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		excludeMap := make(map[string]bool)
		for _, pattern := range base.Exclude {
			excludeMap[pattern] = true
		}
		for _, pattern := range project.Exclude {
			excludeMap[pattern] = true
		}
		merged.Exclude = make([]string, 0, len(excludeMap))
		for pattern := range excludeMap {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// EnrichExclusionsWithBuildArtifacts detects build output directories
// from language-specific config files and folds them into Exclude.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	detector := NewBuildArtifactDetector(c.Project.Root)
	detected := detector.DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = append(c.Exclude, detected...)
		c.Exclude = DeduplicatePatterns(c.Exclude)
	}
}
