package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slicersynthseg/internal/models"
	"slicersynthseg/pkg/batch"
	"slicersynthseg/pkg/config"
	"slicersynthseg/pkg/scene"
	"slicersynthseg/pkg/synthseg"
	"slicersynthseg/pkg/visualization"
)

var rootCmd = &cobra.Command{
	Use:           "slicersynthseg",
	Short:         "Brain MRI segmentation via the external SynthSeg tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Segment one MRI image and import the results",
	RunE:  runRun,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured tool installation",
	RunE:  runValidate,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE:  runInit,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and installation state",
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan a directory on a schedule and segment new images",
	RunE:  runWatch,
}

var (
	configFlag    string
	inputFlag     string
	outputDirFlag string
	cpuFlag       bool
	fastFlag      bool
	cropFlag      int
	threadsFlag   int
	v1Flag        bool
	previewFlag   bool
	timeoutFlag   int
	inputDirFlag  string
	scheduleFlag  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path (default ~/.slicersynthseg/config.yaml)")

	runCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Input MRI image (.nii or .nii.gz)")
	runCmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Directory for output files (default: input's directory)")
	runCmd.Flags().BoolVar(&cpuFlag, "cpu", false, "Force inference on the CPU")
	runCmd.Flags().BoolVar(&fastFlag, "fast", false, "Faster, lower-accuracy mode")
	runCmd.Flags().IntVar(&cropFlag, "crop", 0, "Crop size for inference (ignored with --fast)")
	runCmd.Flags().IntVar(&threadsFlag, "threads", 0, "Thread count for the tool")
	runCmd.Flags().BoolVar(&v1Flag, "v1", false, "Use the version-1 model variant")
	runCmd.Flags().BoolVar(&previewFlag, "preview", false, "Save preview slices after a successful run")
	runCmd.Flags().IntVar(&timeoutFlag, "timeout", 0, "Run timeout in minutes (0 = none)")

	watchCmd.Flags().StringVar(&inputDirFlag, "input-dir", "", "Directory to scan for images")
	watchCmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Directory for output files (default: input directory)")
	watchCmd.Flags().StringVar(&scheduleFlag, "schedule", "", "Cron schedule for scans (e.g. \"@every 10m\")")

	rootCmd.AddCommand(runCmd, validateCmd, initCmd, statusCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.ConfigPath()
}

// loadRunConfig loads the config file and applies any run flags the user set.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("output-dir") {
		cfg.Run.OutputDir = outputDirFlag
	}
	if cmd.Flags().Changed("cpu") {
		cfg.Run.UseCPU = cpuFlag
	}
	if cmd.Flags().Changed("fast") {
		cfg.Run.Fast = fastFlag
	}
	if cmd.Flags().Changed("crop") {
		cfg.Run.Crop = cropFlag
	}
	if cmd.Flags().Changed("threads") {
		cfg.Run.Threads = threadsFlag
	}
	if cmd.Flags().Changed("v1") {
		cfg.Run.V1 = v1Flag
	}
	if cmd.Flags().Changed("preview") {
		cfg.Output.SavePreview = previewFlag
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Run.TimeoutMinutes = timeoutFlag
	}
	return cfg, nil
}

// buildRequest assembles the invocation request for one input image.
func buildRequest(cfg *config.Config, inputPath string) synthseg.Request {
	outputDir := cfg.Run.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	segPath, volPath := synthseg.DefaultOutputPaths(inputPath, outputDir)
	return synthseg.Request{
		InputPath: inputPath,
		SegPath:   segPath,
		VolPath:   volPath,
		UseCPU:    cfg.Run.UseCPU,
		Fast:      cfg.Run.Fast,
		Crop:      cfg.Run.Crop,
		Threads:   cfg.Run.Threads,
		V1:        cfg.Run.V1,
	}
}

// segmentOne drives a full workflow run for one image and reports the results.
func segmentOne(cfg *config.Config, inputPath string) error {
	req := buildRequest(cfg, inputPath)

	sc := scene.NewScene()
	wf := synthseg.NewWorkflow(cfg.Environment(), scene.NewImporter(sc))
	wf.Sink = func(line string) { fmt.Println(line) }
	wf.Timeout = time.Duration(cfg.Run.TimeoutMinutes) * time.Minute
	if cfg.Output.Verbose {
		wf.OnState = func(s synthseg.State) { fmt.Printf("[%s]\n", s) }
	}

	fmt.Println("================================")
	fmt.Println("SYNTHSEG BRAIN MRI SEGMENTATION")
	fmt.Println("================================")
	fmt.Printf("Input:  %s\n", req.InputPath)
	fmt.Printf("Output: %s\n", req.SegPath)
	fmt.Println("Running segmentation (this may take several minutes on CPU)...")

	report, err := wf.Run(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Printf("\nSegmentation completed successfully in %.2f seconds!\n", report.Elapsed.Seconds())
	fmt.Printf("Structures found: %d\n", report.Summary.StructureCount)
	fmt.Printf("Total brain volume: %.1f mm3\n", report.Summary.TotalVolumeMM3)

	// The tool's label set is fixed; anything outside it usually means the
	// wrong model file was picked up.
	if vols := sc.LabelVolumes(); len(vols) > 0 {
		for _, label := range vols[0].Labels() {
			if !models.KnownLabel(label) {
				log.Printf("Warning: unexpected %s in segmentation output", models.StructureName(label))
			}
		}
	}

	if tables := sc.Tables(); len(tables) > 0 {
		fmt.Println("\nLargest structures:")
		for _, e := range tables[0].Largest(5) {
			fmt.Printf("  %-35s %12.1f mm3\n", e.Name, e.VolumeMM3)
		}
	}

	if cfg.Output.SavePreview {
		if vols := sc.LabelVolumes(); len(vols) > 0 {
			previewDir := cfg.Output.PreviewDir
			if previewDir == "" {
				previewDir = filepath.Join(filepath.Dir(req.SegPath), "preview")
			}
			viewer := visualization.NewViewer(vols[0])
			saved, err := viewer.SaveMidSlices(previewDir)
			if err != nil {
				log.Printf("Warning: failed to save preview slices: %v", err)
			} else {
				fmt.Println("\nPreview slices saved:")
				for _, path := range saved {
					fmt.Printf("  %s\n", path)
				}
			}
		}
	}

	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	if inputFlag == "" {
		return fmt.Errorf("--input is required")
	}
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	return segmentOne(cfg, inputFlag)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	env := cfg.Environment()
	fmt.Printf("Tool root:   %s\n", env.ToolRoot)
	fmt.Printf("Interpreter: %s\n", env.Interpreter)
	fmt.Printf("Entry script: %s\n", env.EntryScript())
	fmt.Printf("Model file:   %s\n", env.ModelFile())

	result := env.Validate()
	if !result.Valid() {
		return fmt.Errorf("validation failed (%s): %s", result.Status, result.Detail)
	}
	fmt.Println("\nInstallation is valid.")
	fmt.Println("Note: this checks files only; the first run is the real test of the interpreter's packages.")
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	fmt.Printf("Created config: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set synthseg.toolRoot to your SynthSeg checkout")
	fmt.Println("  2. Set synthseg.interpreter to the Python of its environment")
	fmt.Println("  3. Run 'slicersynthseg validate' to check the installation")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", configPath())
	fmt.Printf("Tool root: %s\n", orUnset(cfg.SynthSeg.ToolRoot))
	fmt.Printf("Interpreter: %s\n", orUnset(cfg.SynthSeg.Interpreter))

	result := cfg.Environment().Validate()
	fmt.Printf("Installation: %s\n", result.Status)
	if !result.Valid() {
		fmt.Printf("  %s\n", result.Detail)
	}

	fmt.Printf("CPU mode: %v\n", cfg.Run.UseCPU)
	fmt.Printf("Fast mode: %v\n", cfg.Run.Fast)
	fmt.Printf("Model variant: %s\n", modelVariant(cfg.Run.V1))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	inputDir := cfg.Watch.InputDir
	if cmd.Flags().Changed("input-dir") {
		inputDir = inputDirFlag
	}
	if inputDir == "" {
		return fmt.Errorf("--input-dir is required (or set watch.inputDir in the config)")
	}
	outputDir := cfg.Run.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir = outputDirFlag
	}
	if outputDir == "" {
		outputDir = inputDir
	}
	schedule := cfg.Watch.Schedule
	if cmd.Flags().Changed("schedule") {
		schedule = scheduleFlag
	}

	runCfg := *cfg
	runCfg.Run.OutputDir = outputDir
	watcher := batch.NewWatcher(inputDir, outputDir, schedule, func(inputPath string) error {
		return segmentOne(&runCfg, inputPath)
	})

	fmt.Printf("Watching %s (schedule %q), writing results to %s\n", inputDir, schedule, outputDir)
	if n, err := watcher.ScanOnce(); err != nil {
		return err
	} else if n > 0 {
		fmt.Printf("Initial scan segmented %d image(s)\n", n)
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	fmt.Println("\nStopping watcher...")
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func modelVariant(v1 bool) string {
	if v1 {
		return "v1"
	}
	return "default"
}
