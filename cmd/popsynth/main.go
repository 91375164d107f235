package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/config"
	"github.com/san-kum/popsynth/internal/engine"
	"github.com/san-kum/popsynth/internal/engine/analytic"
	"github.com/san-kum/popsynth/internal/evolve"
	"github.com/san-kum/popsynth/internal/grid"
	"github.com/san-kum/popsynth/internal/observe"
	"github.com/san-kum/popsynth/internal/plot"
	"github.com/san-kum/popsynth/internal/storage"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	engineName string
	archive    string
	// Grid overrides
	massBins       int
	ratioBins      int
	separationBins int
	// Evolution overrides, e.g. "2 Gyr"
	endTime  string
	timeStep string
	// Output
	save       bool
	live       bool
	metricsOut string
	useArchive bool
	plotWidth  int
	plotHeight int
	svgOut     string

	logger = slog.Default()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "popsynth",
		Short:         "binary population synthesis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&archive, "archive", "", "sqlite archive path")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate the initial population grid",
		Args:  cobra.NoArgs,
		RunE:  generatePopulation,
	}
	addGridFlags(generateCmd)
	generateCmd.Flags().BoolVar(&save, "save", false, "save the population as a run")

	evolveCmd := &cobra.Command{
		Use:   "evolve",
		Short: "generate a population and evolve it",
		Args:  cobra.NoArgs,
		RunE:  evolvePopulation,
	}
	addGridFlags(evolveCmd)
	evolveCmd.Flags().StringVar(&engineName, "engine", config.DefaultEngine, "evolution engine")
	evolveCmd.Flags().StringVar(&endTime, "end-time", "2 Gyr", "end time")
	evolveCmd.Flags().StringVar(&timeStep, "time-step", "500 Myr", "time step")
	evolveCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	evolveCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write prometheus metrics to this file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().BoolVar(&useArchive, "from-archive", false, "list runs in the sqlite archive")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&useArchive, "from-archive", false, "read the run from the sqlite archive")

	hrCmd := &cobra.Command{
		Use:   "hr [run_id]",
		Short: "plot the HR diagram of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotHR,
	}
	hrCmd.Flags().BoolVar(&useArchive, "from-archive", false, "read the run from the sqlite archive")
	hrCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")
	hrCmd.Flags().IntVar(&plotHeight, "height", 16, "plot height")
	hrCmd.Flags().StringVar(&svgOut, "svg", "", "also write the diagram as svg to this file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				gc, err := p.GridConfig()
				if err != nil {
					return err
				}
				fmt.Printf("  %-8s %5d binaries, %s in steps of %s\n", name, gc.Size(), p.Evolution.EndTime, p.Evolution.TimeStep)
			}
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd, evolveCmd, listCmd, showCmd, hrCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&massBins, "mass-bins", config.DefaultMassBins, "primary mass bins")
	cmd.Flags().IntVar(&ratioBins, "ratio-bins", config.DefaultRatioBins, "mass ratio bins")
	cmd.Flags().IntVar(&separationBins, "separation-bins", config.DefaultSepBins, "separation bins")
}

// loadConfig layers defaults, a preset, a config file and changed flags, in
// that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("archive") {
		cfg.Archive = archive
	}
	if flags.Changed("engine") {
		cfg.Engine = engineName
	}
	if flags.Changed("mass-bins") {
		cfg.Grid.Mass.Bins = massBins
	}
	if flags.Changed("ratio-bins") {
		cfg.Grid.Ratio.Bins = ratioBins
	}
	if flags.Changed("separation-bins") {
		cfg.Grid.Separation.Bins = separationBins
	}
	if flags.Changed("end-time") {
		q, err := config.ParseQuantity(endTime)
		if err != nil {
			return nil, fmt.Errorf("--end-time: %w", err)
		}
		cfg.Evolution.EndTime = q
	}
	if flags.Changed("time-step") {
		q, err := config.ParseQuantity(timeStep)
		if err != nil {
			return nil, fmt.Errorf("--time-step: %w", err)
		}
		cfg.Evolution.TimeStep = q
	}
	return cfg, nil
}

func engines(l *slog.Logger) *engine.Registry {
	r := engine.NewRegistry()
	r.Register(analytic.Name, func() (engine.Engine, error) {
		return analytic.New(analytic.WithLogger(l)), nil
	})
	return r
}

func generate(ctx context.Context, cfg *config.Config) (*astro.Binaries, *astro.Stars, error) {
	gc, err := cfg.GridConfig()
	if err != nil {
		return nil, nil, err
	}
	binaries, stars, err := grid.Generate(ctx, gc)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("generated a population of %d binaries\n", binaries.Len())
	return binaries, stars, nil
}

func generatePopulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	binaries, stars, err := generate(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Println(plot.Summary("initial population", binaries, stars))

	if !save {
		return nil
	}
	meta := storage.NewRunMetadata("none", binaries, stars)
	meta.Preset = preset
	return saveRun(cmd.Context(), cfg, meta, binaries, stars)
}

func evolvePopulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	end, step, err := cfg.Times()
	if err != nil {
		return err
	}

	runLogger := logger
	if live {
		runLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	factory, err := engines(runLogger).Get(cfg.Engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	binaries, stars, err := generate(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := observe.NewMetrics()
	run := func(ctx context.Context, obs evolve.Observer) (*evolve.Result, error) {
		return evolve.Population(ctx, factory, binaries, stars, end, step,
			evolve.WithLogger(runLogger),
			evolve.WithObserver(metrics),
			evolve.WithObserver(obs))
	}

	var res *evolve.Result
	if live {
		title := fmt.Sprintf("evolving %d binaries with %s", binaries.Len(), cfg.Engine)
		res, err = observe.RunLive(ctx, title, os.Stdout, run)
	} else {
		res, err = run(ctx, observe.NewLog(runLogger))
	}
	if metricsOut != "" {
		if werr := metrics.WriteFile(metricsOut); werr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	if err != nil {
		return err
	}

	meta := storage.NewRunMetadata(cfg.Engine, binaries, stars)
	meta.Preset = preset
	meta.Steps = res.Steps
	meta.EndTime = end.String()
	meta.TimeStep = step.String()
	meta.ModelTime = res.ModelTime.String()
	meta.Wall = res.Wall
	if err := saveRun(ctx, cfg, meta, binaries, stars); err != nil {
		return err
	}

	fmt.Printf("completed %d steps to %s in %v\n", res.Steps, res.ModelTime, res.Wall)
	fmt.Println(plot.Summary("evolved population", binaries, stars))
	return nil
}

func saveRun(ctx context.Context, cfg *config.Config, meta storage.RunMetadata, binaries *astro.Binaries, stars *astro.Stars) error {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, binaries, stars)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)

	if cfg.Archive == "" {
		return nil
	}
	a, err := storage.OpenArchive(cfg.Archive)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Put(ctx, meta, binaries, stars); err != nil {
		return fmt.Errorf("archive run %s: %w", runID, err)
	}
	logger.Info("archived run", slog.String("run_id", runID), slog.String("archive", a.Path()))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var runs []storage.RunMetadata
	if useArchive {
		a, err := openArchive(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		if runs, err = a.List(cmd.Context()); err != nil {
			return err
		}
	} else if runs, err = storage.New(cfg.DataDir).List(); err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENGINE\tTIME\tBINARIES\tSTEPS\tMODEL TIME")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Engine,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Binaries,
			run.Steps,
			run.ModelTime,
		)
	}
	return w.Flush()
}

func openArchive(cfg *config.Config) (*storage.Archive, error) {
	if cfg.Archive == "" {
		return nil, errors.New("no archive configured (use --archive)")
	}
	return storage.OpenArchive(cfg.Archive)
}

// loadRun reads a run's metadata and population from the data directory or
// the archive.
func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, *astro.Binaries, *astro.Stars, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if useArchive {
		a, err := openArchive(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		defer a.Close()
		meta, err := a.Load(cmd.Context(), runID)
		if err != nil {
			return nil, nil, nil, err
		}
		binaries, stars, err := a.LoadPopulation(cmd.Context(), runID)
		return meta, binaries, stars, err
	}

	st := storage.New(cfg.DataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	binaries, stars, err := st.LoadPopulation(runID)
	return meta, binaries, stars, err
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, binaries, stars, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run id:\t%s\n", meta.ID)
	fmt.Fprintf(w, "engine:\t%s\n", meta.Engine)
	if meta.Preset != "" {
		fmt.Fprintf(w, "preset:\t%s\n", meta.Preset)
	}
	fmt.Fprintf(w, "created:\t%s\n", meta.Timestamp.Local().Format("2006-01-02 15:04:05"))
	if meta.Steps > 0 {
		fmt.Fprintf(w, "steps:\t%d of %s up to %s\n", meta.Steps, meta.TimeStep, meta.EndTime)
		fmt.Fprintf(w, "model time:\t%s\n", meta.ModelTime)
		fmt.Fprintf(w, "wall:\t%v\n", meta.Wall)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(plot.Summary("run "+meta.ID, binaries, stars))
	return nil
}

func plotHR(cmd *cobra.Command, args []string) error {
	if plotWidth < 1 || plotHeight < 1 {
		return fmt.Errorf("%w: --width %d --height %d", plot.ErrSize, plotWidth, plotHeight)
	}
	_, _, stars, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	diagram, err := plot.HRDiagram(stars, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(diagram)

	profile, err := plot.HRProfile(stars, plotWidth, max(1, plotHeight/2))
	if err != nil {
		return err
	}
	fmt.Println(profile)

	if svgOut == "" {
		return nil
	}
	svg, err := plot.HRDiagramSVG(stars, 800, 600)
	if err != nil {
		return err
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}
