package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tourney/internal/geo"
)

// runFile is the on-disk shape of one run: the instance plus its result.
type runFile struct {
	Experiment string     `json:"experiment,omitempty"`
	Timestamp  string     `json:"timestamp"`
	SpreadKm   float64    `json:"spreadKm"`
	Teams      []geo.Team `json:"teams"`
	Result     RunResult  `json:"result"`
}

const stampLayout = "20060102T150405Z"

// WriteJSON writes one file per run to <dir>/<algorithm>/<N>-<seed>-<stamp>.json
// and returns the paths written.
func WriteJSON(dir string, exp Experiment) ([]string, error) {
	stamp := exp.Timestamp.UTC().Format(stampLayout)
	var paths []string
	for _, run := range exp.Runs {
		sub := filepath.Join(dir, string(run.Algorithm))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return paths, err
		}
		p := filepath.Join(sub, fmt.Sprintf("%d-%d-%s.json", exp.N, exp.Seed, stamp))
		b, err := json.MarshalIndent(runFile{
			Experiment: exp.Name,
			Timestamp:  stamp,
			SpreadKm:   exp.SpreadKm,
			Teams:      exp.Teams,
			Result:     run,
		}, "", "  ")
		if err != nil {
			return paths, err
		}
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

var summaryHeader = []string{
	"n", "seed", "algorithm", "baseline_total", "best_total", "improvement_pct",
	"runtime_ms", "iterations", "valid", "violations", "error",
}

// WriteCSVSummary writes <dir>/summary.csv with one row per
// (experiment, algorithm) and returns its path.
func WriteCSVSummary(dir string, exps []Experiment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, "summary.csv")
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return "", err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
	for _, e := range exps {
		for _, r := range e.Runs {
			row := []string{
				strconv.Itoa(e.N),
				strconv.FormatInt(e.Seed, 10),
				string(r.Algorithm),
				ff(r.BaselineTotal),
				ff(r.BestTotal),
				ff(r.ImprovementPct),
				strconv.FormatInt(r.Runtime.Milliseconds(), 10),
				strconv.Itoa(r.Iterations),
				strconv.FormatBool(r.Valid),
				strconv.Itoa(len(r.Violations)),
				r.Error,
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return p, f.Close()
}
