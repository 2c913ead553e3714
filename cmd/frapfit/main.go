package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/frapfit/internal/config"
	"github.com/san-kum/frapfit/internal/dataset"
	"github.com/san-kum/frapfit/internal/experiment"
	"github.com/san-kum/frapfit/internal/export"
	"github.com/san-kum/frapfit/internal/frap"
	"github.com/san-kum/frapfit/internal/logging"
	"github.com/san-kum/frapfit/internal/optim"
	"github.com/san-kum/frapfit/internal/storage"
	"github.com/san-kum/frapfit/internal/viz"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	logJSON    bool

	preset  string
	numObs  int
	tmax    float64
	noise   float64
	seed    uint64
	outPath string

	solverName string
	maxIter    int
	noSave     bool

	cfg    *config.Config
	logger = zerolog.Nop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "frapfit",
		Short:             "FRAP recovery curve fitting",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultRunsDir, "run storage directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "synthesize observations and write them as CSV",
		Args:  cobra.NoArgs,
		RunE:  generate,
	}
	addGenerateFlags(generateCmd)
	generateCmd.Flags().StringVar(&outPath, "out", config.DefaultDataPath, "output CSV path")

	fitCmd := &cobra.Command{
		Use:   "fit <csv>",
		Short: "fit pooled and grouped models to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  fitFile,
	}
	addFitFlags(fitCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "write the chart of a stored run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&outPath, "out", config.DefaultPlotPath, "output SVG path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "generate, fit, compare and plot in one pass",
		Args:  cobra.NoArgs,
		RunE:  runPipeline,
	}
	addGenerateFlags(runCmd)
	addFitFlags(runCmd)

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json <run_id>",
		Short: "print a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list synthesis presets and solvers",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(generateCmd, fitCmd, plotCmd, runCmd, runsCmd, exportJSONCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(frap.ExitCode(err))
	}
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "synthesis preset")
	cmd.Flags().IntVar(&numObs, "nobs", config.DefaultNumObs, "observations per group")
	cmd.Flags().Float64Var(&tmax, "tmax", config.DefaultTMax, "last observation time")
	cmd.Flags().Float64Var(&noise, "noise", config.DefaultNoise, "noise standard deviation")
	cmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
}

func addFitFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&solverName, "solver", config.DefaultSolver, fmt.Sprintf("least-squares solver %v", optim.List()))
	cmd.Flags().IntVar(&maxIter, "max-iter", optim.DefaultSettings().MaxIterations, "iteration budget")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
}

// setup loads the config, applies explicitly set flags on top of it and
// builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("preset") {
		if err := cfg.ApplyPreset(preset); err != nil {
			return err
		}
	}
	if flags.Changed("data") {
		cfg.Output.RunsDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("nobs") {
		cfg.Generate.NumObs = numObs
	}
	if flags.Changed("tmax") {
		cfg.Generate.TMax = tmax
	}
	if flags.Changed("noise") {
		cfg.Generate.Noise = noise
	}
	if flags.Changed("seed") {
		cfg.Generate.Seed = seed
	}
	if flags.Changed("solver") {
		cfg.Fit.Solver = solverName
	}
	if flags.Changed("max-iter") {
		cfg.Fit.Settings.MaxIterations = maxIter
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if logJSON {
		logger, err = logging.NewJSON(os.Stderr, cfg.LogLevel)
	} else {
		logger, err = logging.New(os.Stderr, cfg.LogLevel, false)
	}
	return err
}

func generate(cmd *cobra.Command, args []string) error {
	table, err := dataset.Synthesize(cfg.SynthConfig())
	if err != nil {
		return err
	}

	path := cfg.Output.Data
	if cmd.Flags().Changed("out") {
		path = outPath
	}
	if err := dataset.SaveCSV(path, table); err != nil {
		return err
	}

	logger.Info().Str("path", path).Msg("observations written")
	fmt.Printf("wrote %d times x %d groups to %s\n", table.NumObs(), table.NumGroups(), path)
	return nil
}

func fitFile(cmd *cobra.Command, args []string) error {
	return analyze(cmd.Context(), args[0])
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return analyze(cmd.Context(), "")
}

// analyze runs the pipeline on input (or synthetic data when empty), prints
// the report and stores the run and its chart.
func analyze(ctx context.Context, input string) error {
	exp := experiment.New(cfg, input)
	exp.SetLogger(logging.Component(logger, "experiment"))

	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	if input == "" {
		if err := dataset.SaveCSV(cfg.Output.Data, out.Table); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.Output.Data).Msg("observations written")
	}

	fmt.Print(viz.Analysis(out.Analysis))
	fmt.Println()

	res, err := viz.Residuals(out.Table, out.Analysis.Grouped, 50)
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render("residuals"))
	fmt.Print(res)
	fmt.Println()
	fmt.Println(viz.Preview(out.Plot.Curves(), "grouped fit"))

	if err := out.Plot.Save(cfg.Output.Plot); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.Output.Plot).Msg("chart written")

	if noSave {
		return nil
	}
	st := storage.New(cfg.Output.RunsDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(out.Source, out.Table, out.Analysis)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun saved: %s\n", runID)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.Output.RunsDir)

	var (
		meta *storage.RunMetadata
		err  error
	)
	if len(args) == 1 {
		meta, err = st.Load(args[0])
	} else {
		meta, err = st.Latest()
	}
	if err != nil {
		return err
	}

	table, err := st.LoadObservations(meta.ID)
	if err != nil {
		return err
	}
	curves, err := experiment.Curves(table, meta.Grouped.Result(), experiment.CurvePoints)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.Title = fmt.Sprintf("FRAP recovery (%s)", meta.ID)
	path := cfg.Output.Plot
	if cmd.Flags().Changed("out") {
		path = outPath
	}
	if err := export.NewPlot(table, curves, opts).Save(path); err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("groups: %s\n\n", strings.Join(meta.Groups, ", "))
	fmt.Println(viz.Preview(curves, "grouped fit"))
	fmt.Printf("\nchart written to %s\n", path)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.Output.RunsDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOURCE\tGROUPS\tNOBS\tRSS\tF\tP")

	for _, run := range runs {
		f, p := "-", "-"
		if run.FTest != nil {
			f = "inf"
			if run.FTest.F != nil {
				f = fmt.Sprintf("%.4g", *run.FTest.F)
			}
			p = fmt.Sprintf("%.3g", run.FTest.P)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4g\t%s\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Source,
			len(run.Groups),
			run.NumObs,
			run.Grouped.RSS,
			f,
			p,
		)
	}

	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.Output.RunsDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tGROUPS\tNOBS\tTMAX\tNOISE")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%g\t%g\n", name, len(p.Groups), p.NumObs, p.TMax, p.Noise)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nsolvers: %s\n", strings.Join(optim.List(), ", "))
	return nil
}
