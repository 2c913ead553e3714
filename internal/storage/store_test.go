package storage

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/frapfit/internal/compare"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/fit"
	"github.com/san-kum/frapfit/internal/frap"
)

func testAnalysis(t *testing.T) (*dataset.Table, *fit.Analysis) {
	t.Helper()
	table, err := dataset.NewTable([]float64{0, 11, 22},
		[]float64{0.1, 1.1, 1.43},
		[]float64{0.3, 2.0, 2.6},
	)
	if err != nil {
		t.Fatal(err)
	}

	a := &fit.Analysis{
		Initial: frap.ParameterSet{THalf: 16.5, F0: 0.2, FInf: 2},
		Pooled: &fit.Result{
			Mode:      fit.ModePooled,
			Labels:    []string{fit.PooledKey},
			Params:    map[string]frap.ParameterSet{fit.PooledKey: {THalf: 12, F0: 0.2, FInf: 2.5}},
			RSS:       0.4,
			NumObs:    6,
			NumParams: 3,
			Solver:    "lm",
			Metrics:   map[string]float64{"rss": 0.4},
		},
		Grouped: &fit.Result{
			Mode:   fit.ModeGrouped,
			Labels: []string{"A", "B"},
			Params: map[string]frap.ParameterSet{
				"A": {THalf: 11, F0: 0.1, FInf: 2.1},
				"B": {THalf: 12, F0: 0.3, FInf: 3.7},
			},
			NumObs:    6,
			NumParams: 6,
			Solver:    "lm",
			Metrics:   map[string]float64{"rss": 0, "aic": math.Inf(-1)},
		},
		FTest: &compare.FTestResult{F: math.Inf(1), DFNum: 3, DFDen: 1, P: 0},
	}
	return table, a
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	table, a := testAnalysis(t)
	runID, err := st.Save("frap.csv", table, a)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Source != "frap.csv" {
		t.Errorf("expected source 'frap.csv', got '%s'", meta.Source)
	}
	if meta.Grouped.Params["B"].FInf != 3.7 {
		t.Errorf("expected B finf 3.7, got %f", meta.Grouped.Params["B"].FInf)
	}
	if _, ok := meta.Grouped.Metrics["aic"]; ok {
		t.Error("expected non-finite aic to be dropped")
	}
	if meta.FTest == nil || meta.FTest.F != nil || meta.FTest.P != 0 {
		t.Errorf("expected infinite F stored as null, got %+v", meta.FTest)
	}

	res := meta.Grouped.Result()
	if res.DF() != 0 || res.Params["A"] != a.Grouped.Params["A"] {
		t.Errorf("rebuilt result differs: %+v", res)
	}

	obs, err := st.LoadObservations(runID)
	if err != nil {
		t.Fatalf("load observations failed: %v", err)
	}
	if obs.NumObs() != 3 || obs.NumGroups() != 2 {
		t.Errorf("expected 3x2 observations, got %dx%d", obs.NumObs(), obs.NumGroups())
	}

	fitted, err := st.LoadFitted(runID)
	if err != nil {
		t.Fatalf("load fitted failed: %v", err)
	}
	if strings.Join(fitted.Labels, ",") != "A,B,pooled" {
		t.Errorf("unexpected fitted columns %v", fitted.Labels)
	}
	if math.Abs(fitted.Column("A")[1]-1.1) > 1e-12 {
		t.Errorf("expected fitted A(11) = 1.1, got %v", fitted.Column("A")[1])
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); err == nil {
		t.Error("expected error for latest run of an empty store")
	}

	table, a := testAnalysis(t)
	first, err := st.Save("a.csv", table, a)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := st.Save("b.csv", table, a)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first {
		t.Errorf("expected oldest run %s first, got %s", first, runs[0].ID)
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second {
		t.Errorf("expected latest run %s, got %s", second, latest.ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	table, a := testAnalysis(t)
	runID, err := st.Save("frap.csv", table, a)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "observations.csv", "fitted.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	table, a := testAnalysis(t)
	runID, err := st.Save("frap.csv", table, a)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"id": "`+runID+`"`) {
		t.Errorf("expected run id in export:\n%s", buf.String())
	}
}
