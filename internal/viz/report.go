package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/frapfit/internal/compare"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/export"
	"github.com/san-kum/frapfit/internal/fit"
)

// Alpha is the significance level used to colour the F-test line.
const Alpha = 0.05

// ParamTable renders one row per parameter set in r.
func ParamTable(r *fit.Result) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Subtle).
		Headers("GROUP", "THALF", "F0", "FINF").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, label := range r.Labels {
		p := r.Params[label]
		t.Row(label, fmt.Sprintf("%.4f", p.THalf), fmt.Sprintf("%.4f", p.F0), fmt.Sprintf("%.4f", p.FInf))
	}
	return t.Render()
}

// FitSummary is the one-line quality summary of r.
func FitSummary(r *fit.Result) string {
	return strings.Join([]string{
		MetricLabel.Render("rss ") + MetricValue.Render(fmt.Sprintf("%.6g", r.RSS)),
		MetricLabel.Render("df ") + MetricValue.Render(fmt.Sprintf("%d", r.DF())),
		MetricLabel.Render("r2 ") + MetricValue.Render(fmt.Sprintf("%.6f", r.Metrics["r2"])),
		MetricLabel.Render("aic ") + MetricValue.Render(fmt.Sprintf("%.4g", r.Metrics["aic"])),
		MetricLabel.Render("iter ") + MetricValue.Render(fmt.Sprintf("%d", r.Iterations)),
		MetricLabel.Render("solver ") + MetricValue.Render(r.Solver),
	}, "  ")
}

func FTestLine(ft *compare.FTestResult) string {
	style := NotSignificant
	verdict := "groups not distinguishable"
	if ft.Significant(Alpha) {
		style = Significant
		verdict = "groups differ"
	}
	return style.Render(ft.String()) + "  " + Subtle.Render(verdict)
}

// Analysis renders the complete console report for a.
func Analysis(a *fit.Analysis) string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render("initial estimate") + "\n")
	sb.WriteString(a.Initial.String() + "\n\n")

	sb.WriteString(HeaderStyle.Render("pooled fit") + "\n")
	sb.WriteString(ParamTable(a.Pooled) + "\n")
	sb.WriteString(FitSummary(a.Pooled) + "\n\n")

	sb.WriteString(HeaderStyle.Render("grouped fit") + "\n")
	sb.WriteString(ParamTable(a.Grouped) + "\n")
	sb.WriteString(FitSummary(a.Grouped) + "\n\n")

	if a.FTest != nil {
		sb.WriteString(HeaderStyle.Render("pooled vs grouped") + "\n")
		sb.WriteString(FTestLine(a.FTest) + "\n")
	}
	return sb.String()
}

// Residuals renders one residual sparkline per group of the grouped fit.
func Residuals(t *dataset.Table, r *fit.Result, width int) (string, error) {
	var sb strings.Builder
	for g, label := range t.Labels {
		pred, err := r.Predict(label, t.Times)
		if err != nil {
			return "", err
		}
		res := make([]float64, len(pred))
		for i := range pred {
			res[i] = t.Values[g][i] - pred[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", MetricLabel.Render(label), SparklineChart(res, width)))
	}
	return sb.String(), nil
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.DeepSkyBlue, asciigraph.Magenta, asciigraph.SpringGreen,
	asciigraph.Orange, asciigraph.Red, asciigraph.SlateBlue,
}

// Preview draws the fitted curves as an ASCII chart.
func Preview(curves []export.Curve, caption string) string {
	data := make([][]float64, 0, len(curves))
	colors := make([]asciigraph.AnsiColor, 0, len(curves))
	for i, c := range curves {
		if len(c.Values) == 0 {
			continue
		}
		data = append(data, c.Values)
		colors = append(colors, seriesColors[i%len(seriesColors)])
	}
	if len(data) == 0 {
		return ""
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}
