package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ravi-mn/prognos/internal/config"
	"github.com/ravi-mn/prognos/internal/experiment"
	"github.com/ravi-mn/prognos/internal/export"
	"github.com/ravi-mn/prognos/internal/metrics"
	"github.com/ravi-mn/prognos/internal/predictors"
	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
	"github.com/ravi-mn/prognos/internal/storage"
	"github.com/ravi-mn/prognos/internal/surrogate"
	"github.com/ravi-mn/prognos/internal/uncertainty"
	"github.com/ravi-mn/prognos/internal/viz"
)

var (
	dataDir    string
	dt         float64
	horizon    float64
	saveFreq   float64
	integrator string
	events     []string
	loads      []string
	configFile string
	preset     string
	// prediction
	numSamples int
	seed       int64
	noiseStd   []string
	atTime     float64
	// plotting
	plotHeight int
	svgPath    string
	// listing
	modelFilter string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "prognos",
		Short: "model-based prognostics: simulate to failure, predict time of event",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".prognos", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate a model to threshold and store the run",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&modelFilter, "model", "", "only show runs of this model")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a stored run's event states and outputs",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run's series as CSV, or as SVG with --svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "write an event state chart to this SVG file")

	predictCmd := &cobra.Command{
		Use:   "predict [model]",
		Short: "Monte Carlo time of event prediction",
		Args:  cobra.ExactArgs(1),
		RunE:  predictToE,
	}
	addRunFlags(predictCmd)
	predictCmd.Flags().IntVar(&numSamples, "samples", 100, "number of samples")
	predictCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	predictCmd.Flags().StringSliceVar(&noiseStd, "noise", nil, "process noise std per state, key=value")
	predictCmd.Flags().Float64Var(&atTime, "at", 0, "also report probability of surviving past this time")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addRunFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "benchmark stepping throughput",
		Args:  cobra.ExactArgs(1),
		RunE:  benchModel,
	}
	addRunFlags(benchCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			sort.Strings(names)
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range experiment.NewRegistry().ListModels() {
				fmt.Println(name)
			}
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "watch event states degrade in real time",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	surrogateCmd := &cobra.Command{
		Use:   "surrogate [model]",
		Short: "train a DMD surrogate and compare it to the full model",
		Args:  cobra.ExactArgs(1),
		RunE:  runSurrogate,
	}
	addRunFlags(surrogateCmd)

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, exportCmd,
		predictCmd, compareCmd, benchCmd, presetsCmd, modelsCmd, liveCmd, surrogateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "integration timestep")
	cmd.Flags().Float64Var(&horizon, "horizon", config.DefaultHorizon, "maximum simulated time")
	cmd.Flags().Float64Var(&saveFreq, "save-freq", config.DefaultSaveFreq, "interval between recorded points")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().StringSliceVar(&events, "events", nil, "stop on these events only")
	cmd.Flags().StringSliceVar(&loads, "load", nil, "constant load per input, key=value")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig resolves preset, config file, and flags into one config.
// Precedence: flags over config file over preset over defaults.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		c := *p
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Model = model
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	if cmd.Flags().Changed("save-freq") {
		cfg.SaveFreq = saveFreq
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("events") {
		cfg.Events = events
	}
	if cmd.Flags().Changed("load") {
		values, err := parsePairs(loads)
		if err != nil {
			return nil, err
		}
		cfg.Loader = config.LoaderConfig{Type: "const", Values: values}
	}
	return cfg, cfg.Validate()
}

func parsePairs(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value in %q: %w", p, err)
		}
		out[key] = v
	}
	return out, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	exp, err := experiment.New(experiment.NewRegistry(), cfg)
	if err != nil {
		return err
	}
	mono := metrics.NewMonotonicityObserver()
	exp.Simulator().AddObserver(mono)

	fmt.Printf("running %s...\n", cfg.Model)
	start := time.Now()
	res, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Save(storage.RunInfo{
		Model:      cfg.Model,
		Dt:         cfg.Dt,
		Horizon:    cfg.Horizon,
		Integrator: cfg.Integrator,
		Loader:     cfg.Loader.Type,
	}, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	if res.Event != "" {
		fmt.Printf("event: %s at t=%.3f\n", res.Event, res.EndTime)
	} else {
		fmt.Printf("no event before t=%.3f\n", res.EndTime)
	}
	fmt.Printf("points: %d, steps: %d\n", res.Len(), res.StepsTaken)

	if vals := mono.Values(); len(vals) > 0 {
		fmt.Println("\nevent state monotonicity:")
		for _, e := range sortedMapKeys(vals) {
			fmt.Printf("  %s: %.3f\n", e, vals[e])
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(modelFilter)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tEVENT\tEND\tPOINTS")
	for _, run := range runs {
		event := run.Event
		if event == "" {
			event = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			event,
			run.EndTime,
			run.Points,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\nmodel: %s\npoints: %d\n\n", meta.ID, meta.Model, res.Len())

	if len(res.EventStates[0]) > 0 {
		fmt.Println(viz.PlotEventStates(res, sortedMapKeys(res.EventStates[0]), plotHeight))
		fmt.Println()
	}
	for _, key := range sortedMapKeys(res.Outputs[0]) {
		fmt.Println(viz.Plot(res.OutputSeries(key), "output "+key, plotHeight))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("no data to export")
	}

	if svgPath != "" {
		svg := export.EventStatesSVG(res, sortedMapKeys(res.EventStates[0]), 800, 400)
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
		return nil
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	uKeys := sortedMapKeys(res.Inputs[0])
	xKeys := sortedMapKeys(res.States[0])
	zKeys := sortedMapKeys(res.Outputs[0])
	esKeys := sortedMapKeys(res.EventStates[0])

	header := []string{"time"}
	for _, k := range uKeys {
		header = append(header, "u."+k)
	}
	for _, k := range xKeys {
		header = append(header, "x."+k)
	}
	for _, k := range zKeys {
		header = append(header, "z."+k)
	}
	for _, k := range esKeys {
		header = append(header, "es."+k)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range res.Times {
		row := []string{strconv.FormatFloat(res.Times[i], 'g', -1, 64)}
		for _, k := range uKeys {
			row = append(row, strconv.FormatFloat(res.Inputs[i][k], 'g', -1, 64))
		}
		for _, k := range xKeys {
			row = append(row, strconv.FormatFloat(res.States[i][k], 'g', -1, 64))
		}
		for _, k := range zKeys {
			row = append(row, strconv.FormatFloat(res.Outputs[i][k], 'g', -1, 64))
		}
		for _, k := range esKeys {
			row = append(row, strconv.FormatFloat(res.EventStates[i][k], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func predictToE(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	model, err := registry.GetModel(cfg.Model)
	if err != nil {
		return err
	}
	if _, err := registry.GetIntegrator(cfg.Integrator); err != nil {
		return err
	}
	load, err := registry.GetLoader(cfg.Loader)
	if err != nil {
		return err
	}

	// each prediction sample runs on its own integrator instance
	mc := predictors.NewMonteCarlo(model, func() prog.Integrator {
		integ, _ := registry.GetIntegrator(cfg.Integrator)
		return integ
	})
	if len(noiseStd) > 0 {
		std, err := parsePairs(noiseStd)
		if err != nil {
			return err
		}
		n, err := prog.NewNoise(std, prog.DistNormal, seed)
		if err != nil {
			return err
		}
		mc.SetProcessNoise(n)
	}

	opts := predictors.DefaultMonteCarloOptions()
	opts.NumSamples = numSamples
	opts.Seed = seed
	opts.Sim.Dt = cfg.Dt
	opts.Sim.Horizon = cfg.Horizon
	opts.Sim.SaveFreq = cfg.SaveFreq
	opts.Sim.Events = cfg.Events

	fmt.Printf("predicting %s with %d samples...\n", cfg.Model, numSamples)
	start := time.Now()
	pred, err := mc.Predict(context.Background(), uncertainty.NewScalar(model.InitialState()), load, opts)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	summary := metrics.SummarizeToE(pred.ToE)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tMEAN\tMEDIAN\tP25\tP75\tP05\tP95\tREACHED")
	for _, e := range sortedMapKeys(summary) {
		s := summary[e]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			e, fmtTime(s.Mean), fmtTime(s.Median),
			fmtTime(s.P25), fmtTime(s.P75), fmtTime(s.P05), fmtTime(s.P95),
			s.NumReached, s.NumSamples)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if atTime > 0 {
		fmt.Printf("\nprobability of surviving past t=%.1f:\n", atTime)
		for e, p := range metrics.ProbSuccess(pred.ToE, atTime) {
			fmt.Printf("  %s: %.2f\n", e, p)
		}
	}
	return nil
}

func fmtTime(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	fmt.Printf("comparing integrators for %s (dt=%.4f)\n\n", cfg.Model, cfg.Dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tEVENT\tEND\tSTEPS\tTIME_MS")

	for _, name := range args[1:] {
		c := *cfg
		c.Integrator = name

		exp, err := experiment.New(registry, &c)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\n", name, err)
			continue
		}
		start := time.Now()
		res, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\n", name, err)
			continue
		}

		event := res.Event
		if event == "" {
			event = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%.2f\n",
			name, event, res.EndTime, res.StepsTaken,
			float64(elapsed.Microseconds())/1000)
	}
	return w.Flush()
}

func benchModel(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	dts := []float64{cfg.Dt / 10, cfg.Dt, cfg.Dt * 10}

	fmt.Printf("benchmarking %s\n\n", cfg.Model)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, d := range dts {
		c := *cfg
		c.Dt = d
		c.SaveFreq = c.Horizon // record as little as possible

		exp, err := experiment.New(registry, &c)
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.4g\t%d\t%v\t%.0f\n",
			d, res.StepsTaken, elapsed,
			float64(res.StepsTaken)/elapsed.Seconds())
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	model, err := registry.GetModel(cfg.Model)
	if err != nil {
		return err
	}
	integ, err := registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}
	load, err := registry.GetLoader(cfg.Loader)
	if err != nil {
		return err
	}
	return viz.Run(model, integ, load, cfg.Dt)
}

func runSurrogate(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	model, err := registry.GetModel(cfg.Model)
	if err != nil {
		return err
	}
	integ, err := registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}
	load, err := registry.GetLoader(cfg.Loader)
	if err != nil {
		return err
	}

	trainOpts := surrogate.TrainOptions{Dt: cfg.SaveFreq, Horizon: cfg.Horizon}
	if trainOpts.Dt <= 0 {
		trainOpts.Dt = cfg.Dt
	}

	fmt.Printf("training DMD surrogate for %s...\n", cfg.Model)
	start := time.Now()
	dmd, err := surrogate.Train(context.Background(), model, integ, []prog.Loader{load}, trainOpts)
	if err != nil {
		return err
	}
	fmt.Printf("trained in %v\n\n", time.Since(start))

	full, fullTime, err := timeToEvent(sim.New(model, integ), load, cfg.Dt, cfg.Horizon)
	if err != nil {
		return err
	}
	surr, surrTime, err := timeToEvent(sim.New(dmd, nil), load, dmd.Dt(), cfg.Horizon)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tEVENT\tTOE\tWALL")
	fmt.Fprintf(w, "full\t%s\t%.3f\t%v\n", full.Event, full.EndTime, fullTime)
	fmt.Fprintf(w, "surrogate\t%s\t%.3f\t%v\n", surr.Event, surr.EndTime, surrTime)
	if err := w.Flush(); err != nil {
		return err
	}
	if full.EndTime > 0 {
		fmt.Printf("\ntime of event error: %.2f%%\n",
			100*math.Abs(surr.EndTime-full.EndTime)/full.EndTime)
	}
	return nil
}

func timeToEvent(s *sim.Simulator, load prog.Loader, dt, horizon float64) (*sim.Result, time.Duration, error) {
	opts := sim.DefaultOptions()
	opts.Dt = dt
	opts.Horizon = horizon
	opts.SaveFreq = horizon

	start := time.Now()
	res, err := s.SimulateToThreshold(context.Background(), load, opts)
	elapsed := time.Since(start)
	if err != nil && res == nil {
		return nil, elapsed, err
	}
	if res.Event == "" {
		res.Event = "-"
	}
	return res, elapsed, nil
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
