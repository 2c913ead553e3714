package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/frapfit/internal/dataset"
)

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable([]float64{0, 10, 20}, []float64{0.1, 1.1, 1.5}, []float64{0.3, 2.0, 2.9})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestPlotSVG(t *testing.T) {
	table := testTable(t)
	curves := []Curve{
		{Label: "A", Times: []float64{0, 10, 20}, Values: []float64{0.1, 1.1, 1.5}},
		{Label: "B", Times: []float64{0, 10, 20}, Values: []float64{0.3, 2.0, 2.9}},
	}

	svg := NewPlot(table, curves, Options{Title: "a < b"}).SVG()

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(strings.TrimSpace(svg), "</svg>") {
		t.Fatal("expected a complete svg document")
	}
	if n := strings.Count(svg, "<circle"); n != 6 {
		t.Errorf("expected 6 observation points, got %d", n)
	}
	if n := strings.Count(svg, `class="fit"`); n != 2 {
		t.Errorf("expected 2 fitted lines, got %d", n)
	}
	if !strings.Contains(svg, "a &lt; b") {
		t.Error("expected an escaped title")
	}
	if !strings.Contains(svg, Palette[1]) {
		t.Error("expected group B to use the second palette colour")
	}
}

func TestPlotSVG_Degenerate(t *testing.T) {
	svg := NewPlot(nil, []Curve{{Label: "A", Times: []float64{1}, Values: []float64{1}}}, Options{}).SVG()
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Errorf("degenerate input produced non-finite coordinates:\n%s", svg)
	}
	if strings.Contains(svg, `class="fit"`) {
		t.Error("a single-point curve should not be drawn")
	}
}

func TestPlotSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frap.svg")
	p := NewPlot(testTable(t), nil, DefaultOptions())
	if err := p.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != p.SVG() {
		t.Error("saved file differs from rendered svg")
	}
}
