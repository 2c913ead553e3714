package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/frapfit/internal/compare"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/fit"
	"github.com/san-kum/frapfit/internal/frap"
)

const (
	metadataFile     = "metadata.json"
	observationsFile = "observations.csv"
	fittedFile       = "fitted.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// FitRecord is the stored form of a fit.Result. Non-finite metrics are dropped
// since JSON cannot carry them.
type FitRecord struct {
	Mode       fit.Mode                     `json:"mode"`
	Labels     []string                     `json:"labels"`
	Params     map[string]frap.ParameterSet `json:"params"`
	RSS        float64                      `json:"rss"`
	NumObs     int                          `json:"num_obs"`
	NumParams  int                          `json:"num_params"`
	Iterations int                          `json:"iterations"`
	Solver     string                       `json:"solver"`
	Metrics    map[string]float64           `json:"metrics"`
}

// FTestRecord stores an F-test. F is nil when it was infinite.
type FTestRecord struct {
	F     *float64 `json:"f"`
	DFNum int      `json:"df_num"`
	DFDen int      `json:"df_den"`
	P     float64  `json:"p"`
}

type RunMetadata struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Groups    []string          `json:"groups"`
	NumObs    int               `json:"num_obs"`
	Initial   frap.ParameterSet `json:"initial"`
	Pooled    FitRecord         `json:"pooled"`
	Grouped   FitRecord         `json:"grouped"`
	FTest     *FTestRecord      `json:"ftest,omitempty"`
}

func recordOf(r *fit.Result) FitRecord {
	m := make(map[string]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			m[k] = v
		}
	}
	return FitRecord{
		Mode:       r.Mode,
		Labels:     r.Labels,
		Params:     r.Params,
		RSS:        r.RSS,
		NumObs:     r.NumObs,
		NumParams:  r.NumParams,
		Iterations: r.Iterations,
		Solver:     r.Solver,
		Metrics:    m,
	}
}

// Result rebuilds the fit.Result a record was made from.
func (r FitRecord) Result() *fit.Result {
	return &fit.Result{
		Mode:       r.Mode,
		Labels:     r.Labels,
		Params:     r.Params,
		RSS:        r.RSS,
		NumObs:     r.NumObs,
		NumParams:  r.NumParams,
		Iterations: r.Iterations,
		Converged:  true,
		Solver:     r.Solver,
		Metrics:    r.Metrics,
	}
}

func ftestRecordOf(ft *compare.FTestResult) *FTestRecord {
	if ft == nil {
		return nil
	}
	rec := &FTestRecord{DFNum: ft.DFNum, DFDen: ft.DFDen, P: ft.P}
	if !math.IsInf(ft.F, 0) && !math.IsNaN(ft.F) {
		f := ft.F
		rec.F = &f
	}
	return rec
}

// Save stores the analysis of table along with the observations and the
// fitted curves evaluated at the observation times.
func (s *Store) Save(source string, table *dataset.Table, a *fit.Analysis) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("run_%d", now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: now,
		Source:    source,
		Groups:    table.Labels,
		NumObs:    table.NumObs(),
		Initial:   a.Initial,
		Pooled:    recordOf(a.Pooled),
		Grouped:   recordOf(a.Grouped),
		FTest:     ftestRecordOf(a.FTest),
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := dataset.SaveCSV(filepath.Join(runDir, observationsFile), table); err != nil {
		return "", err
	}

	fitted, err := fittedTable(table, a)
	if err != nil {
		return "", err
	}
	if err := dataset.SaveCSV(filepath.Join(runDir, fittedFile), fitted); err != nil {
		return "", err
	}

	return runID, nil
}

// fittedTable holds one grouped-fit column per group plus the pooled curve.
func fittedTable(table *dataset.Table, a *fit.Analysis) (*dataset.Table, error) {
	out := &dataset.Table{Times: table.Times}
	for _, label := range table.Labels {
		ys, err := a.Grouped.Predict(label, table.Times)
		if err != nil {
			return nil, err
		}
		out.Labels = append(out.Labels, label)
		out.Values = append(out.Values, ys)
	}
	ys, err := a.Pooled.Predict(fit.PooledKey, table.Times)
	if err != nil {
		return nil, err
	}
	out.Labels = append(out.Labels, fit.PooledKey)
	out.Values = append(out.Values, ys)
	return out, nil
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found in %s", s.baseDir)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadObservations(runID string) (*dataset.Table, error) {
	return dataset.LoadCSV(filepath.Join(s.baseDir, runID, observationsFile))
}

func (s *Store) LoadFitted(runID string) (*dataset.Table, error) {
	return dataset.LoadLabeledCSV(filepath.Join(s.baseDir, runID, fittedFile))
}

// ExportJSON writes meta as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
