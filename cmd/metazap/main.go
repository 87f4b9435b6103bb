package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fibnas/metazap/internal/config"
	"github.com/fibnas/metazap/internal/inspect"
	"github.com/fibnas/metazap/internal/logger"
	"github.com/fibnas/metazap/internal/optimizer"
	"github.com/fibnas/metazap/internal/pipeline"
	"github.com/fibnas/metazap/internal/report"
	"github.com/fibnas/metazap/internal/stripper"
	"github.com/fibnas/metazap/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	inputDir  string
	outputDir string
	recursive bool
	dryRun    bool
	optimize  bool
	backup    bool
	verbose   bool
	quiet     bool
	port      int
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "metazap [directory]",
	Short: "Zap metadata from PNG/JPEG images in a directory",
	Long: `Metazap recursively scans a directory for PNG and JPEG images and
strips embedded metadata (EXIF, XMP, IPTC, comments, text chunks)
while leaving the pixel data untouched.

Features:
- Removes PNG ancillary chunks and JPEG APPn/COM segments
- In-place rewriting or mirroring into a separate output tree
- Optional .bak backups before in-place overwrites
- Optional external lossless PNG recompression after stripping
- Dry-run mode that reports the full plan without touching disk`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrip(cmd, args)
	},
}

// scanCmd discovers and classifies files without modifying anything.
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Scan a directory and show what would be processed",
	Long: `Scan the specified directory (or current directory) and display the
planned source-to-destination mapping and file type breakdown without
stripping anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args)
	},
}

// inspectCmd prints the metadata fields of a single file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show metadata fields of a single image file",
	Long: `Prints the metadata fields of one PNG or JPEG file. Uses the external
exiftool binary when installed and falls back to the built-in EXIF
reader for JPEGs. Useful for checking what a strip run would remove.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

// serveCmd starts the web interface server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start web interface server",
	Long: `Starts a web server with a graphical interface for Metazap.
The web interface allows you to:
- Scan directories and preview the strip plan
- Run strip operations with backup/optimize options
- Monitor progress in real-time over a websocket

Access the interface at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&inputDir, "input", "", "input directory containing images (default: current directory)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "output directory for stripped files (default: overwrite in place)")
	rootCmd.Flags().BoolVar(&recursive, "recursive", true, "recurse into subdirectories")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	rootCmd.Flags().BoolVar(&optimize, "optimize", false, "run the external PNG recompressor after stripping")
	rootCmd.Flags().BoolVar(&backup, "backup", false, "write a .bak copy before overwriting in place")

	scanCmd.Flags().BoolVar(&recursive, "recursive", true, "recurse into subdirectories")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.metazap")
		viper.AddConfigPath("/etc/metazap")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runStrip executes the main strip pipeline.
func runStrip(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)
	rep := report.New()
	rc := optimizer.NewExecRecompressor(cfg.Optimizer.Command, cfg.Optimizer.ExtraArgs, cfg.OptimizerTimeout())
	p := pipeline.New(cfg, log, rep, stripper.NewChunkStripper(), rc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("strip run failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n" + rep.Summary())
		if rep.GetFilesFailed() > 0 {
			fmt.Println("\n" + rep.ErrorSummary())
		}
	}

	if rep.HasFailures() {
		return fmt.Errorf("%d file(s) failed to process", rep.GetFilesFailed())
	}
	return nil
}

// runScan plans a run and prints it without touching the filesystem.
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Scanning directory: %s\n", cfg.InputDirectory)

	log := setupLogger(cfg)
	rep := report.New()
	rc := optimizer.NewExecRecompressor(cfg.Optimizer.Command, cfg.Optimizer.ExtraArgs, cfg.OptimizerTimeout())
	p := pipeline.New(cfg, log, rep, stripper.NewChunkStripper(), rc)

	entries, err := p.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if !quiet {
		for _, e := range entries {
			fmt.Printf("%s: %s -> %s\n", e.Type, e.SourcePath, e.DestPath)
		}
		fmt.Println("\n==================================================")
		fmt.Println("SCAN RESULTS")
		fmt.Println("==================================================")
		fmt.Printf("\n%s\n", rep.FileTypeBreakdown())
		fmt.Printf("Supported files: %d, skipped (unsupported): %d\n", len(entries), rep.GetFilesSkipped())
	}

	return nil
}

// runInspect prints the metadata fields of a single file.
func runInspect(filePath string) error {
	fmt.Printf("Inspecting metadata for: %s\n", filePath)

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	fields, err := inspect.NewInspector(log).Inspect(filePath)
	if err != nil {
		fmt.Printf("Error reading metadata: %v\n", err)
		return nil
	}

	if len(fields) == 0 {
		fmt.Println("No metadata found")
		return nil
	}

	for _, f := range fields {
		fmt.Printf("  %s: %s\n", f.Key, f.Value)
	}
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
		cfg.Processing.DryRun = true
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("Metazap web interface started on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop the server")

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if inputDir != "" {
		cfg.InputDirectory = inputDir
	}
	if len(args) > 0 {
		cfg.InputDirectory = args[0]
	}
	if cfg.InputDirectory == "" {
		cfg.InputDirectory = "."
	}

	if outputDir != "" {
		cfg.OutputDirectory = &outputDir
	}

	if cmd != nil && cmd.Flags().Changed("recursive") {
		cfg.Recursive = recursive
	}
	if dryRun {
		cfg.Processing.DryRun = true
	}
	if backup {
		cfg.Processing.CreateBackups = true
	}
	if optimize {
		cfg.Optimizer.Enabled = true
	}

	if err := cfg.ValidateInput(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.DefaultConfig()
	loggerCfg.Level = cfg.Logging.Level
	loggerCfg.FilePath = cfg.Logging.FilePath
	loggerCfg.MaxSize = cfg.Logging.MaxSize
	loggerCfg.MaxBackups = cfg.Logging.MaxBackups
	loggerCfg.MaxAge = cfg.Logging.MaxAge
	loggerCfg.Compress = cfg.Logging.Compress
	loggerCfg.Console = !quiet

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
