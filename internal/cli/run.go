package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshsim/meshsim/internal/driver"
	"github.com/meshsim/meshsim/internal/logging"
	"github.com/meshsim/meshsim/internal/metricsexport"
	"github.com/meshsim/meshsim/internal/scenario"
	"github.com/meshsim/meshsim/internal/tui"
)

var (
	durationOverride time.Duration
	timeScaleFlag    float64
	outputDir        string
	interactive      bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yml>",
	Short: "Run a simulation scenario",
	Long: `Run a discrete-event mesh simulation described by a scenario file.

The scenario declares the node population, topology, per-link network
conditions, and a timeline of events (node churn, partitions, chaos
injections, message injections). Metrics are exported in the formats
the scenario's metrics.export list names.

Use --interactive or -i to watch the simulation with a live dashboard.`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&durationOverride, "duration", 0, "override the scenario's simulation.duration_s")
	runCmd.Flags().Float64Var(&timeScaleFlag, "time-scale", -1, "override the scenario's simulation.time_scale (0 runs as fast as possible)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", ".", "directory metrics exports are written under")
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "run with an interactive dashboard")
}

func runScenario(_ *cobra.Command, args []string) error {
	logCfg := logging.Config{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	}
	if interactive {
		logCfg.Format = "text"
		logCfg.Level = "error"
	}
	if err := logging.Initialize(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	doc, err := scenario.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	scenario.Expand(doc)
	if err := scenario.Validate(doc); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	if durationOverride > 0 {
		doc.Simulation.DurationS = uint64(durationOverride.Seconds())
	}
	if timeScaleFlag >= 0 {
		doc.Simulation.TimeScale = timeScaleFlag
	}

	world, durationMs, err := scenario.Build(doc, scenario.NewFirmwareRegistry())
	if err != nil {
		return fmt.Errorf("failed to build scenario: %w", err)
	}

	if len(doc.Metrics.Export) > 0 {
		prefix := outputDir + "/" + doc.Simulation.Name
		exporters, err := metricsexport.NewAll(doc.Metrics.Export, prefix)
		if err != nil {
			return fmt.Errorf("failed to configure metrics export: %w", err)
		}
		collector := metricsexport.NewCollector(exporters, func(err error, name string) {
			logging.Error("metrics export failed", zap.String("exporter", name), zap.Error(err))
		})
		scenario.ScheduleMetricsSnapshot(world, doc.Metrics.IntervalS, collector)
		defer func() {
			for _, e := range exporters {
				_ = e.Close()
			}
		}()
	}

	drv := driver.New(world, driver.Config{
		TimeScale:  doc.Simulation.TimeScale,
		DurationMs: durationMs,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if interactive {
		if err := tui.Run(world, drv, ctx); err != nil {
			logging.Error("TUI error", zap.Error(err))
		}
		return nil
	}

	logging.Info("Simulation running. Press Ctrl+C to stop early.")
	if err := drv.Run(ctx); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	logging.Info("Simulation finished")
	return nil
}
