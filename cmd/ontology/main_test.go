package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/lightningralf/ontology-engine/internal/types"
)

func newCliFlagSet(t *testing.T, flags []cli.Flag) *flag.FlagSet {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		require.NoError(t, f.Apply(set))
	}
	return set
}

func TestQueryRequestFromMapsFlagsAndArgs(t *testing.T) {
	set := newCliFlagSet(t, identifierFlags())
	require.NoError(t, set.Parse([]string{"--uri", "/repo/a.go", "--max-results", "42", "--precise", "GetUser"}))
	c := cli.NewContext(nil, set, nil)

	req := queryRequestFrom(c)
	assert.Equal(t, "GetUser", req.Identifier)
	assert.Equal(t, 42, req.MaxResults)
	assert.True(t, req.Precise)
	assert.Equal(t, "/repo/a.go", req.URI.Path())
}

func TestQueryRequestFromDefaultsMaxResults(t *testing.T) {
	set := newCliFlagSet(t, identifierFlags())
	require.NoError(t, set.Parse([]string{"GetUser"}))
	c := cli.NewContext(nil, set, nil)

	req := queryRequestFrom(c)
	assert.Equal(t, 100, req.MaxResults)
	assert.True(t, req.URI.IsGlobal())
}

func TestNewAppBuildsEveryComponent(t *testing.T) {
	root := t.TempDir()
	a, err := newApp(root)
	require.NoError(t, err)
	assert.NotNil(t, a.cfg)
	assert.NotNil(t, a.pool)
	assert.NotNil(t, a.astLayer)
	assert.NotNil(t, a.cache)
	assert.NotNil(t, a.metrics)
	assert.NotNil(t, a.engine)
	assert.NotNil(t, a.renamer)
	assert.NotNil(t, a.symbolMaps)
	assert.Equal(t, root, a.cfg.Project.Root)
}

func TestLoadConfigWithOverridesResolvesRelativeRoot(t *testing.T) {
	root := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(cwd, root)
	require.NoError(t, err)

	set := newCliFlagSet(t, []cli.Flag{&cli.StringFlag{Name: "root", Aliases: []string{"r"}}})
	require.NoError(t, set.Parse([]string{"--root", rel}))
	c := cli.NewContext(nil, set, nil)

	a, err := loadConfigWithOverrides(c)
	require.NoError(t, err)

	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, absRoot, a.cfg.Project.Root)
}

func TestFindDefinitionCommandEmitsJSONResult(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "service.go"), []byte(`package service

func ProcessOrder(id int) error {
	return nil
}
`), 0o644))

	out := captureStdout(t, func() {
		cliApp := &cli.App{
			Name:     "ontology",
			Flags:    []cli.Flag{&cli.StringFlag{Name: "root", Aliases: []string{"r"}}},
			Commands: []*cli.Command{findDefinitionCommand()},
		}
		err := cliApp.Run([]string{"ontology", "--root", root, "find-definition", "ProcessOrder"})
		require.NoError(t, err)
	})

	var result types.Result[[]types.Definition]
	require.NoError(t, json.Unmarshal(out, &result))
	require.NotEmpty(t, result.Data)
	assert.Equal(t, "ProcessOrder", result.Data[0].Name)
}

func TestRenameCommandRequiresTwoArguments(t *testing.T) {
	cliApp := &cli.App{
		Name:     "ontology",
		Commands: []*cli.Command{renameCommand()},
	}
	err := cliApp.Run([]string{"ontology", "rename", "OnlyOneArg"})
	assert.Error(t, err)
}

func captureStdout(t *testing.T, fn func()) []byte {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return bytes.TrimSpace(data)
}
