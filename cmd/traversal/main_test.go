package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func writeDemoSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.yaml")
	require.NoError(t, os.WriteFile(path, demoSnapshot, 0644))
	return path
}

func TestPlanCommand(t *testing.T) {
	snapshot := writeDemoSnapshot(t)

	out, err := run(t, "", "--log-level", "error", "--snapshot", snapshot,
		"plan", `[:match [?p :label person] [?x :isa ?p]]`)
	require.NoError(t, err)
	assert.Contains(t, out, "{ label(?p, person); in-isa(?p -> ?x) }")
	assert.Contains(t, out, "_2 fragments in 1 plans")

	out, err = run(t, `[:match [?p :label person] [?x :isa ?p]]`, "--log-level", "error",
		"--snapshot", snapshot, "plan", "--explain", "--strategy", "optimal", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "in-isa(?p -> ?x)")
	assert.Contains(t, out, "traversal_plans_total 1")

	_, err = run(t, "", "--log-level", "error", "plan", `[:match [?p :likes person]]`)
	assert.ErrorContains(t, err, "parse error")

	_, err = run(t, "", "--log-level", "error", "plan", "--strategy", "random", "[?x :isa ?t]")
	assert.Error(t, err)

	_, err = run(t, "", "--log-level", "error", "plan")
	assert.ErrorContains(t, err, "no pattern given")
}

func TestStatsCommands(t *testing.T) {
	snapshot := writeDemoSnapshot(t)
	db := filepath.Join(t.TempDir(), "stats.db")

	out, err := run(t, "", "--log-level", "error", "--db", db, "stats", "load", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 7 types")

	_, err = run(t, "", "--log-level", "error", "--db", db, "stats", "set", "person", "7")
	require.NoError(t, err)

	out, err = run(t, "", "--log-level", "error", "--db", db, "stats", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "label: person")
	assert.Contains(t, out, "shards: 7")

	_, err = run(t, "", "--log-level", "error", "stats", "load", snapshot)
	assert.ErrorContains(t, err, "--db")

	_, err = run(t, "", "--log-level", "error", "--db", db, "stats", "set", "person", "many")
	assert.Error(t, err)
}

func TestDemoCommand(t *testing.T) {
	out, err := run(t, "", "--log-level", "error", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Traversal Planner Demo ===")
	assert.NotContains(t, out, "planning error")
	assert.Equal(t, len(demoPatterns), strings.Count(out, "fragments in"))
}

func TestInteractive(t *testing.T) {
	out, err := run(t, ".help\n.explain\n[:match [?p :label person]\n  [?x :isa ?p]]\n.cache\nbogus\n.exit\n",
		"--log-level", "error", "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "explain true")
	assert.Contains(t, out, "in-isa(?p -> ?x)")
	assert.Contains(t, out, "0 hits, 1 misses, 1 entries")
	assert.Contains(t, out, "Unknown command")
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, depth(`[:match [?x :isa ?t]]`))
	assert.Equal(t, 1, depth(`[:match [?x :isa ?t]`))
	assert.Equal(t, 1, depth(`[:match [?n :value = "]"]`))
	assert.Equal(t, 1, depth("[:match ; ]]\n"))
	assert.Equal(t, 0, depth(`(or [?n :value = "a\"]"])`))
}
