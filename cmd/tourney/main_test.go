package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourney/internal/experiment"
	"tourney/internal/schedule"
)

// execute runs the root command with args. Flags left over from a previous
// call are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		resetFlags(c)
	}
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func TestSolversCommand(t *testing.T) {
	out, err := execute(t, "solvers")
	require.NoError(t, err)
	assert.Contains(t, out, "cpsat")
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "enumerate  max_teams=4")
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "run", "--teams", "4", "--seed", "1", "-a", "baseline,hill_climb,exact", "--json")
	require.NoError(t, err)
	var exp experiment.Experiment
	require.NoError(t, json.Unmarshal([]byte(out), &exp))
	assert.Equal(t, 4, exp.N)
	require.Len(t, exp.Runs, 3)
	assert.Equal(t, experiment.Exact, exp.Runs[2].Algorithm)
	assert.LessOrEqual(t, exp.Runs[2].BestTotal, exp.Runs[1].BestTotal+1e-6)
}

func TestRunCommandTable(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--teams", "6", "--seed", "42", "--spread", "20", "-a", "baseline,anneal", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "N=6 seed=42 spread=20km")
	assert.Contains(t, out, "anneal")
	files, err := filepath.Glob(filepath.Join(dir, "*", "6-42-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = execute(t, "run", "--teams", "4", "-a", "tabu")
	assert.ErrorIs(t, err, schedule.ErrConfig)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	base, err := schedule.Generate(6)
	require.NoError(t, err)
	good := filepath.Join(dir, "good.json")
	writeJSON(t, good, base)

	out, err := execute(t, "validate", "-f", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid:   yes")
	assert.Contains(t, out, "Rounds:  10")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"teams":4,"rounds":[[{"home":0,"away":1},{"home":0,"away":2}]]}`), 0o644))
	out, err = execute(t, "validate", "-f", bad)
	assert.ErrorIs(t, err, schedule.ErrStructure)
	assert.Contains(t, out, "structural")

	// k=0 forbids any away game
	out, err = execute(t, "validate", "-f", good, "--max-away", "0")
	require.Error(t, err)
	assert.Contains(t, out, "Valid:   no")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "exp.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
name: smoke
teams: [4]
seeds: [0, 1]
algorithms: [baseline, hill_climb]
hill_climb:
  max_iters: 50
  max_no_improve: 20
  validate: true
parallel: 2
`), 0o644))
	out, err := execute(t, "batch", "-c", cfgPath, "-o", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 4 run file(s)")
	_, err = os.Stat(filepath.Join(dir, "out", "summary.csv"))
	assert.NoError(t, err)
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}
