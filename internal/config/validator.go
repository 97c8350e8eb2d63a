package config

import (
	"fmt"
	"runtime"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Returns an error if validation fails.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return fmt.Errorf("config: project: %w", err)
	}
	if err := v.validateLayer1Config(&cfg.Layer1); err != nil {
		return fmt.Errorf("config: layer1: %w", err)
	}
	if err := v.validateLayer2Config(&cfg.Layer2); err != nil {
		return fmt.Errorf("config: layer2: %w", err)
	}
	if err := v.validatePerformanceConfig(&cfg.Performance); err != nil {
		return fmt.Errorf("config: performance: %w", err)
	}
	if err := v.validateCacheConfig(&cfg.Cache); err != nil {
		return fmt.Errorf("config: cache: %w", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return fmt.Errorf("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateLayer1Config(l1 *Layer1) error {
	if l1.TimeoutMs <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", l1.TimeoutMs)
	}
	if l1.GrepDefaultTimeoutMs <= 0 {
		return fmt.Errorf("grep default timeout must be positive, got %d", l1.GrepDefaultTimeoutMs)
	}
	if l1.GrepMaxResults <= 0 {
		return fmt.Errorf("grep max results must be positive, got %d", l1.GrepMaxResults)
	}
	if l1.MaxProcesses < 0 {
		return fmt.Errorf("max processes cannot be negative, got %d", l1.MaxProcesses)
	}
	return nil
}

func (v *Validator) validateLayer2Config(l2 *Layer2) error {
	if l2.ParseTimeoutMs <= 0 {
		return fmt.Errorf("parse timeout must be positive, got %d", l2.ParseTimeoutMs)
	}
	if l2.BudgetMs <= 0 {
		return fmt.Errorf("budgetMs must be positive, got %d", l2.BudgetMs)
	}
	if l2.MaxCandidateFiles <= 0 {
		return fmt.Errorf("maxCandidateFiles must be positive, got %d", l2.MaxCandidateFiles)
	}
	if l2.MaxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be positive, got %d", l2.MaxFileSize)
	}
	if l2.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("maxFileSize should not exceed 100MB, got %d", l2.MaxFileSize)
	}
	return nil
}

func (v *Validator) validatePerformanceConfig(perf *Performance) error {
	if perf.L1BudgetMs <= 0 {
		return fmt.Errorf("l1BudgetMs must be positive, got %d", perf.L1BudgetMs)
	}
	switch perf.EscalationPolicy {
	case EscalationAuto, EscalationAlways, EscalationNever:
	default:
		return fmt.Errorf("unknown escalation policy %q", perf.EscalationPolicy)
	}
	if perf.L1ConfidenceThreshold < 0 || perf.L1ConfidenceThreshold > 1 {
		return fmt.Errorf("l1ConfidenceThreshold must be within [0,1], got %f", perf.L1ConfidenceThreshold)
	}
	if perf.L1AmbiguityMaxFiles < 0 {
		return fmt.Errorf("l1AmbiguityMaxFiles cannot be negative, got %d", perf.L1AmbiguityMaxFiles)
	}
	return nil
}

func (v *Validator) validateCacheConfig(cache *Cache) error {
	if cache.MinTTLSec <= 0 {
		return fmt.Errorf("minTTLSec must be positive, got %d", cache.MinTTLSec)
	}
	if cache.MaxTTLSec < cache.MinTTLSec {
		return fmt.Errorf("maxTTLSec (%d) must be >= minTTLSec (%d)", cache.MaxTTLSec, cache.MinTTLSec)
	}
	return nil
}

// setSmartDefaults fills in zero-valued fields using system
// capabilities, leaving one core of headroom for the host process.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Layer1.MaxProcesses == 0 {
		numCPU := runtime.NumCPU()
		cfg.Layer1.MaxProcesses = max(1, numCPU-1)
	}
	if cfg.Performance.P95TargetMs == 0 {
		cfg.Performance.P95TargetMs = 300
	}
	if cfg.Performance.P99TargetMs == 0 {
		cfg.Performance.P99TargetMs = 800
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
