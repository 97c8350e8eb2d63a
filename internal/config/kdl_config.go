package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration overrides from a .ontology.kdl
// file at the project root. Returns (nil, nil) when no such file exists.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".ontology.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .ontology.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = projectRoot
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	}

	return cfg, nil
}

// parseKDL decodes a .ontology.kdl document into a Config overlay
// returned on top of Default(); mergeConfigs folds it over the base.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .ontology.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "layer1":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "timeout":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer1.TimeoutMs = v
					}
				case "grep_default_timeout":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer1.GrepDefaultTimeoutMs = v
					}
				case "grep_max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer1.GrepMaxResults = v
					}
				case "max_processes":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer1.MaxProcesses = v
					}
				case "exclude_patterns":
					cfg.Layer1.GrepExcludePatterns = collectStringArgs(cn)
				}
			}
		case "layer2":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Layer2.Enabled = b
					}
				case "parse_timeout":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer2.ParseTimeoutMs = v
					}
				case "budget_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer2.BudgetMs = v
					}
				case "max_candidate_files":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer2.MaxCandidateFiles = v
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Layer2.MaxFileSize = int64(v)
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "escalation_policy":
					if s, ok := firstStringArg(cn); ok {
						cfg.Performance.EscalationPolicy = EscalationPolicy(s)
					}
				case "l1_confidence_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Performance.L1ConfidenceThreshold = v
					}
				case "l1_ambiguity_max_files":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.L1AmbiguityMaxFiles = v
					}
				case "l1_require_filename_match":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Performance.L1RequireFilenameMatch = b
					}
				case "l1_budget_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.L1BudgetMs = v
					}
				}
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Cache.Enabled = b
					}
				case "warm":
					cfg.Cache.WarmSeeds = collectStringArgs(cn)
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}

	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
