package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/rm-rfp/internal/app"
	"github.com/fenilsonani/rm-rfp/internal/cleaner"
	"github.com/fenilsonani/rm-rfp/internal/config"
	"github.com/fenilsonani/rm-rfp/internal/exitcodes"
	"github.com/fenilsonani/rm-rfp/internal/logger"
	"github.com/fenilsonani/rm-rfp/internal/metrics"
	"github.com/fenilsonani/rm-rfp/internal/reporter"
	"github.com/fenilsonani/rm-rfp/internal/ui"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath     string
	verbose        bool
	dryRun         bool
	interactive    bool
	noPreserveRoot bool
	logFile        string
	outputFmt      string
	displayMode    string
	metricsFile    string
	manifestFile   string
	initConfig     bool
)

// stdoutIsTerminal decides whether the auto report is printed
var stdoutIsTerminal = func() bool {
	return ui.IsTerminal(os.Stdout)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(os.Stderr, "rm-rfp: %s\n", line)
		}
	}
	os.Exit(exitcodes.FromError(err))
}

var rootCmd = &cobra.Command{
	Use:   "rm-rfp [options] <path>...",
	Short: "Recursively delete files and directories with progress",
	Long: `rm-rfp removes each path and everything below it, like rm -rf, while
showing how many entries were deleted, how many bytes were freed and, once
a background count has finished, how far along the run is.

Interactive mode (-i) asks before each removal:
  y  delete it               n  keep it (default)
  a  delete everything       q  quit
  d  delete the rest of the directory
  s  keep the rest of the directory`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if initConfig {
			return nil
		}
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return &exitcodes.UsageError{Err: err}
		}
		return nil
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file path (default ~/.config/rm-rfp/config.yaml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "walk and count without deleting anything")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "ask before each removal")
	rootCmd.Flags().BoolVar(&noPreserveRoot, "no-preserve-root", false, `allow deleting "/", mount points and protected paths`)
	rootCmd.Flags().StringVar(&outputFmt, "output", "auto", "end-of-run report (auto, summary, json, yaml, none); auto prints the summary only to a terminal")
	rootCmd.Flags().StringVar(&displayMode, "display", "auto", "progress display (auto, tui, plain, none)")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	rootCmd.Flags().StringVar(&manifestFile, "manifest", "", "write the list of deleted paths here")
	rootCmd.Flags().BoolVar(&initConfig, "init-config", false, "create the default config file and exit")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &exitcodes.UsageError{Err: err}
	})
}

func run(cmd *cobra.Command, args []string) error {
	if initConfig {
		path, err := config.EnsureConfigExists()
		if err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", path)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return &exitcodes.UsageError{Err: fmt.Errorf("failed to load config: %w", err)}
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return &exitcodes.UsageError{Err: fmt.Errorf("invalid configuration: %w", err)}
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Verbose: verbose,
	})
	if err != nil {
		return &exitcodes.UsageError{Err: err}
	}
	defer closeLog()

	var manifest *cleaner.DeletionManifest
	if cfg.ManifestFile != "" {
		manifest = cleaner.NewDeletionManifest(cfg.DryRun)
	}

	// Built only once the roots pass validation, so a refusal leaves the
	// terminal alone
	newDisplay := func() (ui.Display, error) {
		d, err := ui.New(ui.Mode(cfg.Progress.Display), os.Stderr)
		if err != nil {
			return nil, &exitcodes.UsageError{Err: err}
		}
		return d, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, runErr := app.Run(ctx, app.Options{
		Roots:          args,
		PreserveRoot:   cfg.PreserveRoot,
		ProtectedPaths: cfg.ProtectedPaths,
		Interactive:    cfg.Interactive,
		DryRun:         cfg.DryRun,
		CountAhead:     cfg.Counter.Enabled,
		Workers:        cfg.Counter.Workers,
		SortThreshold:  cfg.Listing.SortThreshold,
		BatchSize:      cfg.Listing.BatchSize,
		RetryDelays:    cfg.Delete.RetryDelays,
		Interval:       cfg.Progress.Interval,
		RateWindow:     cfg.Progress.RateWindow,
		NewDisplay:     newDisplay,
		In:             os.Stdin,
		Out:            os.Stdout,
		EchoNewline:    !ui.IsTerminal(os.Stdin),
		Manifest:       manifest,
		Logger:         &log,
	})
	if out == nil {
		// Refused before anything was touched
		return runErr
	}

	finished := time.Now()
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}

	format := reporter.Resolve(reporter.OutputFormat(cfg.Output), stdoutIsTerminal())
	rep := reporter.New(cmd.OutOrStdout(), format)
	if err := rep.Report(reporter.Report{
		Roots:    args,
		Result:   out.Result,
		Counted:  out.Counted,
		Finished: finished,
	}); err != nil {
		log.Error().Err(err).Msg("failed to write report")
	}

	if manifest != nil {
		if err := manifest.Save(cfg.ManifestFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to save manifest: %w", err))
		}
	}

	if cfg.MetricsFile != "" {
		if err := writeMetrics(cfg.MetricsFile, out, finished); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("interactive") {
		cfg.Interactive = interactive
	}
	if flags.Changed("no-preserve-root") {
		cfg.PreserveRoot = !noPreserveRoot
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = logFile
	}
	if flags.Changed("output") {
		cfg.Output = outputFmt
	}
	if flags.Changed("display") {
		cfg.Progress.Display = displayMode
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if flags.Changed("manifest") {
		cfg.ManifestFile = manifestFile
	}
}

func writeMetrics(path string, out *app.Outcome, finished time.Time) error {
	res := out.Result
	errs := make(map[string]int)
	for reason, list := range cleaner.GroupErrors(res.Errors) {
		errs[reason.String()] = len(list)
	}

	rec := metrics.NewRecorder()
	rec.Observe(metrics.Run{
		Deleted:  res.Deleted,
		Dirs:     res.Dirs,
		Bytes:    res.Bytes,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
		Vanished: res.Vanished,
		Counted:  out.Counted,
		Duration: res.Duration,
		DryRun:   res.DryRun,
		Quit:     res.Quit,
		Errors:   errs,
	}, finished)
	return rec.WriteTextfile(path)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, err
		}
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return config.GetDefault(), nil
	}

	return config.Load(cfgPath)
}
