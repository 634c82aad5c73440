package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

const steps = `
graph: cli
channels:
  events: {kind: topic}
  history: {kind: topic, accumulate: true}
steps:
  - events: [1, [2, 3]]
    history: [a]
  - history: [b]
`

func writeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(steps), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunAndShowWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	path := writeScript(t)

	out, err := execute(t, "run", "--script", path, "--thread", "t-1", "--store", "redis", "--redis-addr", mr.Addr())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "step=1 updated=[events history]")
	require.Contains(t, lines[0], `values={"events":[1,2,3],"history":["a"]}`)
	require.Contains(t, lines[1], "step=2 updated=[events history]")
	require.Contains(t, lines[1], `values={"history":["a","b"]}`)

	out, err = execute(t, "show", "--script", path, "--thread", "t-1", "--store", "redis", "--redis-addr", mr.Addr())
	require.NoError(t, err)
	var shown struct {
		Step     int            `json:"step"`
		Versions map[string]int `json:"versions"`
		Values   map[string]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Equal(t, 2, shown.Step)
	require.Equal(t, map[string]int{"events": 2, "history": 2}, shown.Versions)
	require.Equal(t, map[string]any{"history": []any{"a", "b"}}, shown.Values)

	// a second run resumes the thread
	out, err = execute(t, "run", "--script", path, "--thread", "t-1", "--store", "redis", "--redis-addr", mr.Addr())
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `step=3 updated=[events history]`)
	require.Contains(t, lines[0], `values={"events":[1,2,3],"history":["a","b","a"]}`)
	require.Contains(t, lines[1], `step=4`)
	require.Contains(t, lines[1], `values={"history":["a","b","a","b"]}`)
}

func TestShowRequiresThread(t *testing.T) {
	path := writeScript(t)
	_, err := execute(t, "show", "--script", path, "--thread", "", "--store", "memory")
	require.ErrorContains(t, err, "--thread is required")
}

func TestUnknownStore(t *testing.T) {
	path := writeScript(t)
	_, err := execute(t, "run", "--script", path, "--thread", "t-2", "--store", "etcd")
	require.ErrorContains(t, err, `unknown store "etcd"`)
}
