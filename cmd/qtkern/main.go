package main

import (
	"context"
	"errors"
	"fmt"
	"math/cmplx"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/qtkern/internal/approach"
	"github.com/san-kum/qtkern/internal/config"
	"github.com/san-kum/qtkern/internal/grid"
	"github.com/san-kum/qtkern/internal/models"
	"github.com/san-kum/qtkern/internal/storage"
	"github.com/san-kum/qtkern/internal/sweep"
	"github.com/san-kum/qtkern/internal/viz"
)

var (
	dataDir string
	preset  string
	dim     int
	// Grid overrides
	kpnt     int
	dband    float64
	energies []float64
	// Sweep parameters
	biasFrom float64
	biasTo   float64
	points   int
	eps      float64
	gamma    float64
	temp     float64
	parallel bool
	workers  int
	runName  string
)

var errInconsistent = errors.New("configuration is inconsistent")

func main() {
	rootCmd := &cobra.Command{
		Use:          "qtkern",
		Short:        "transport kernel configuration and solve toolkit",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qtkern", "data directory")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset instead of the defaults")

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "print the default settings (or a preset) as yaml",
		Args:  cobra.NoArgs,
		RunE:  printDefaults,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [config]",
		Short: "check settings for consistency against a state vector size",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkSettings,
	}
	checkCmd.Flags().IntVar(&dim, "dim", 2, "state vector dimension")

	gridCmd := &cobra.Command{
		Use:   "grid [config]",
		Short: "build the extended 2vN energy grid and Hilbert kernel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  buildGrid,
	}
	gridCmd.Flags().IntVar(&kpnt, "kpnt", 0, "grid points (overrides settings)")
	gridCmd.Flags().Float64Var(&dband, "dband", 0, "bandwidth (overrides settings)")
	gridCmd.Flags().Float64SliceVar(&energies, "energies", []float64{0}, "many-body energies")

	sweepCmd := &cobra.Command{
		Use:   "sweep [config]",
		Short: "bias sweep of a single-level Pauli kernel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&biasFrom, "from", -4, "first bias")
	sweepCmd.Flags().Float64Var(&biasTo, "to", 4, "last bias")
	sweepCmd.Flags().IntVar(&points, "points", 41, "number of bias points")
	sweepCmd.Flags().Float64Var(&eps, "eps", 0, "level energy")
	sweepCmd.Flags().Float64Var(&gamma, "gamma", 0.5, "coupling to each lead")
	sweepCmd.Flags().Float64Var(&temp, "temp", 1, "lead temperature")
	sweepCmd.Flags().BoolVar(&parallel, "parallel", false, "solve points in parallel, one session each")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0: one per point)")
	sweepCmd.Flags().StringVar(&runName, "name", "bias", "run name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored sweeps",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	rootCmd.AddCommand(defaultsCmd, presetsCmd, checkCmd, gridCmd, sweepCmd, listCmd, showCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings returns the preset (or the defaults); a config file, when
// given, is loaded on top of the defaults instead.
func loadSettings(args []string, fallback string) (*config.Settings, error) {
	name := preset
	if name == "" {
		name = fallback
	}
	s := config.DefaultSettings()
	if name != "" {
		s = config.GetPreset(name)
		if s == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}
	if len(args) == 0 {
		return s, nil
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newSession(s *config.Settings) *config.Properties {
	p := config.New(s)
	p.SetOutput(viz.NewDiagWriter(os.Stdout))
	return p
}

func printDefaults(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(nil, "")
	if err != nil {
		return err
	}
	data, err := config.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func checkSettings(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args, "")
	if err != nil {
		return err
	}
	p := newSession(s)

	if err := approach.Check(p, dim); err != nil {
		p.ReportError(err)
		return errInconsistent
	}

	fmt.Println(viz.Label("kerntype", p.KernType))
	fmt.Println(viz.Label("solmethod", p.SolMethod.Resolve(p.Symq)))
	fmt.Println(viz.Label("itype", p.IType))
	fmt.Println(viz.Label("status", viz.Status(true)))
	return nil
}

func buildGrid(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args, "2vN")
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("kpnt") {
		s.Kpnt = config.IntPtr(kpnt)
	}
	if cmd.Flags().Changed("dband") {
		s.DBand = config.FloatPtr(dband)
	}
	p := newSession(s)

	ek, err := grid.Base(p)
	if err != nil {
		return err
	}
	ext, err := grid.Extend(p, ek, energies)
	if err != nil {
		return err
	}
	ker, err := grid.HilbertKernel(p, len(ext))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DMIN\tDMAX\tEMIN\tEMAX\tLEFT\tRIGHT\tPOINTS")
	fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\t%d\t%d\t%d\n",
		p.Dmin, p.Dmax, p.Emin, p.Emax, p.KpntLeft, p.KpntRight, len(ext))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	spectrum := make([]float64, len(ker)/2)
	for i := range spectrum {
		spectrum[i] = cmplx.Abs(ker[i])
	}
	graph := asciigraph.Plot(spectrum,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("|ht_ker| (positive frequencies)"),
	)
	fmt.Println(graph)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args, "pauli-wideband")
	if err != nil {
		return err
	}

	level := models.NewSingleLevel()
	level.Eps, level.GammaL, level.GammaR, level.Temp = eps, gamma, gamma, temp
	build := func(v float64) (approach.Kernel, error) {
		return level.WithBias(v), nil
	}
	current := func(k approach.Kernel, phi0 []float64) float64 {
		return k.(*models.SingleLevel).Current(phi0)
	}

	sw := sweep.New(sweep.Linspace(biasFrom, biasTo, points), build).
		WithObservable(current).
		WithWorkers(workers)

	ctx := context.Background()
	var results []sweep.Result
	if parallel {
		results, err = sw.Parallel(ctx, func() *config.Properties { return newSession(s) })
	} else {
		results, err = sw.Sequential(ctx, newSession(s))
	}
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(runName, s, results)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	fmt.Println(viz.Label("run", runID))
	fmt.Println(viz.Label("solved", fmt.Sprintf("%d/%d", sweep.Succeeded(results), len(results))))
	plotCurrent(results)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tKERNTYPE\tSOLMETHOD\tSOLVED\tERR")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%v\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.KernType,
			run.SolMethod,
			run.Succeeded,
			run.Points,
			run.Diag.SuppressErr,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	results, err := st.LoadPoints(runID)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Println(viz.Label("kerntype", meta.KernType))
	fmt.Println(viz.Label("solmethod", meta.SolMethod))
	fmt.Println(viz.Label("solved", fmt.Sprintf("%d/%d", meta.Succeeded, meta.Points)))
	fmt.Println(viz.Label("error reported", meta.Diag.SuppressErr))
	fmt.Println(viz.Separator(40))

	if len(results) == 0 {
		return fmt.Errorf("no data to plot")
	}
	plotCurrent(results)
	return nil
}

func plotCurrent(results []sweep.Result) {
	data := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Success {
			data = append(data, r.Observable)
		}
	}
	if len(data) == 0 {
		fmt.Println(viz.StatusWarn.Render("no successful points to plot"))
		return
	}

	fmt.Println(viz.SparklineChart(data, 40))
	fmt.Println()
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("current vs bias"),
	)
	fmt.Println(graph)
}
