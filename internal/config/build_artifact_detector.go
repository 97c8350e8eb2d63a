// Build artifact detection from language-specific configuration files
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector inspects a project root for the manifest files
// of several language ecosystems and extracts any custom build-output
// directory they declare, so that directory can be folded into the
// workspace's exclusion list without the caller naming it by hand.
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// ecosystemDetectors lists one probe per language ecosystem. Each is
// independent and best-effort: a missing or unparsable manifest yields
// no patterns rather than an error, since most projects only have a
// handful of these files present at all.
func (bad *BuildArtifactDetector) ecosystemDetectors() []func() []string {
	return []func() []string{
		bad.detectJavaScriptOutputs,
		bad.detectRustOutputs,
		bad.detectGoOutputs,
		bad.detectPythonOutputs,
		bad.detectJavaOutputs,
	}
}

// DetectOutputDirectories scans for build configuration files and
// returns doublestar exclusion patterns (e.g. "**/dist/**") for any
// custom output directory it finds.
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	for _, detect := range bad.ecosystemDetectors() {
		patterns = append(patterns, detect()...)
	}
	return patterns
}

// readJSON loads and unmarshals a JSON manifest relative to the
// project root, returning ok=false for a missing or malformed file.
func (bad *BuildArtifactDetector) readJSON(name string) (map[string]interface{}, bool) {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, name))
	if err != nil {
		return nil, false
	}
	var doc map[string]interface{}
	if json.Unmarshal(data, &doc) != nil {
		return nil, false
	}
	return doc, true
}

// readTOML loads and unmarshals a TOML manifest relative to the
// project root, returning ok=false for a missing or malformed file.
func (bad *BuildArtifactDetector) readTOML(name string) (map[string]interface{}, bool) {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, name))
	if err != nil {
		return nil, false
	}
	var doc map[string]interface{}
	if toml.Unmarshal(data, &doc) != nil {
		return nil, false
	}
	return doc, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func excludePattern(dir string) string {
	dir = strings.Trim(strings.TrimSpace(dir), "./")
	if dir == "" {
		return ""
	}
	return "**/" + dir + "/**"
}

// detectJavaScriptOutputs finds JS/TS build outputs declared in
// package.json, tsconfig.json, or a Vite config.
func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	var patterns []string

	if pkg, ok := bad.readJSON("package.json"); ok {
		if scripts, ok := asMap(pkg["scripts"]); ok {
			for _, script := range scripts {
				cmd, ok := script.(string)
				if !ok {
					continue
				}
				patterns = append(patterns, outDirFlagsFromCommand(cmd)...)
			}
		}
		if build, ok := asMap(pkg["build"]); ok {
			if outDir, ok := build["outDir"].(string); ok {
				if p := excludePattern(outDir); p != "" {
					patterns = append(patterns, p)
				}
			}
		}
	}

	if tsconfig, ok := bad.readJSON("tsconfig.json"); ok {
		if compilerOptions, ok := asMap(tsconfig["compilerOptions"]); ok {
			if outDir, ok := compilerOptions["outDir"].(string); ok {
				if p := excludePattern(outDir); p != "" {
					patterns = append(patterns, p)
				}
			}
		}
	}

	for _, name := range []string{"vite.config.js", "vite.config.ts"} {
		if dir, ok := bad.scanKeyValue(name, "outDir"); ok {
			if p := excludePattern(dir); p != "" {
				patterns = append(patterns, p)
			}
		}
	}

	return patterns
}

// outDirFlagsFromCommand extracts the argument following an --outDir
// or -outDir flag in a shell command string, e.g. an npm build script.
func outDirFlagsFromCommand(cmd string) []string {
	if !strings.Contains(cmd, "outDir") {
		return nil
	}
	var patterns []string
	parts := strings.Fields(cmd)
	for i, part := range parts {
		if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
			dir := strings.Trim(parts[i+1], "\"'")
			if p := excludePattern(dir); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// scanKeyValue looks for `key: 'value'` or `key = "value"` inside a
// text config file the project has no structured parser for (JS/TS
// build config and Gradle build files aren't valid JSON or TOML).
// Best-effort: the first quoted value following the first occurrence
// of key wins.
func (bad *BuildArtifactDetector) scanKeyValue(filename, key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, filename))
	if err != nil {
		return "", false
	}
	content := string(data)
	idx := strings.Index(content, key)
	if idx == -1 {
		return "", false
	}
	rest := content[idx+len(key):]
	sep := strings.IndexAny(rest, ":=")
	if sep == -1 {
		return "", false
	}
	rest = rest[sep+1:]
	for _, quote := range []string{"'", "\""} {
		parts := strings.SplitN(rest, quote, 3)
		if len(parts) >= 3 {
			if v := strings.TrimSpace(parts[1]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// detectRustOutputs finds a custom Cargo target directory.
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	cargo, ok := bad.readTOML("Cargo.toml")
	if !ok {
		return nil
	}
	profile, ok := asMap(cargo["profile"])
	if !ok {
		return nil
	}
	release, ok := asMap(profile["release"])
	if !ok {
		return nil
	}
	targetDir, ok := release["target-dir"].(string)
	if !ok {
		return nil
	}
	if p := excludePattern(targetDir); p != "" {
		return []string{p}
	}
	return nil
}

// detectGoOutputs looks for an explicit `-o <dir>/...` output
// directory in a project Makefile; `go build` has no manifest-level
// output directory setting of its own.
func (bad *BuildArtifactDetector) detectGoOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "Makefile"))
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "go build") {
			continue
		}
		fields := strings.Fields(line)
		for i, f := range fields {
			if f != "-o" || i+1 >= len(fields) {
				continue
			}
			target := fields[i+1]
			dir := filepath.Dir(target)
			if dir == "." || dir == "/" {
				continue
			}
			if p := excludePattern(dir); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// detectPythonOutputs finds a custom Poetry build target directory.
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	pyproject, ok := bad.readTOML("pyproject.toml")
	if !ok {
		return nil
	}
	tool, ok := asMap(pyproject["tool"])
	if !ok {
		return nil
	}
	poetry, ok := asMap(tool["poetry"])
	if !ok {
		return nil
	}
	build, ok := asMap(poetry["build"])
	if !ok {
		return nil
	}
	targetDir, ok := build["target-dir"].(string)
	if !ok {
		return nil
	}
	if p := excludePattern(targetDir); p != "" {
		return []string{p}
	}
	return nil
}

// detectJavaOutputs finds a custom Gradle buildDir or Maven
// <build><directory> output location.
func (bad *BuildArtifactDetector) detectJavaOutputs() []string {
	var patterns []string

	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		if dir, ok := bad.scanKeyValue(name, "buildDir"); ok {
			if p := excludePattern(dir); p != "" {
				patterns = append(patterns, p)
			}
		}
	}

	if dir, ok := bad.scanPomBuildDirectory(); ok {
		if p := excludePattern(dir); p != "" {
			patterns = append(patterns, p)
		}
	}

	return patterns
}

// scanPomBuildDirectory extracts <build><directory>…</directory> from
// pom.xml with a plain substring scan rather than a full XML decode;
// the detector only needs this one element, not the whole document.
func (bad *BuildArtifactDetector) scanPomBuildDirectory() (string, bool) {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "pom.xml"))
	if err != nil {
		return "", false
	}
	content := string(data)
	buildIdx := strings.Index(content, "<build>")
	if buildIdx == -1 {
		return "", false
	}
	rest := content[buildIdx:]
	open := strings.Index(rest, "<directory>")
	if open == -1 {
		return "", false
	}
	rest = rest[open+len("<directory>"):]
	closeIdx := strings.Index(rest, "</directory>")
	if closeIdx == -1 {
		return "", false
	}
	dir := strings.TrimSpace(rest[:closeIdx])
	if dir == "" {
		return "", false
	}
	return dir, true
}

// DeduplicatePatterns removes duplicate exclusion patterns
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
