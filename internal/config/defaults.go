package config

import "time"

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		PreserveRoot: true,
		Interactive:  false,
		DryRun:       false,
		// Refused as deletion roots unless --no-preserve-root is given.
		// Their contents may still be deleted.
		ProtectedPaths: []string{
			"/System",
			"/Applications",
			"/Library",
			"/Users",
			"/bin",
			"/sbin",
			"/usr",
			"/etc",
			"/var",
			"/dev",
			"/boot",
			"/home",
			"/lib",
			"/lib64",
			"/opt",
			"/proc",
			"/root",
			"/run",
			"/srv",
			"/sys",
		},
		Progress: ProgressConfig{
			Interval:   100 * time.Millisecond,
			RateWindow: 5 * time.Second,
			Display:    "auto",
		},
		Counter: CounterConfig{
			Enabled: true,
			Workers: 16,
		},
		Listing: ListingConfig{
			SortThreshold: 5000,
			BatchSize:     256,
		},
		Delete: DeleteConfig{
			RetryDelays: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond},
		},
		Logging: LoggingConfig{
			Level: "error",
		},
		Output: "auto",
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# rm-rfp Configuration File
# Location: ~/.config/rm-rfp/config.yaml
# Command line flags override the values below.

# Refuse to delete "/", mount points and protected_paths
# (--no-preserve-root turns this off)
preserve_root: true

# Ask before every removal (y/N/a/q/d/s/?)
interactive: false

# Walk and count everything but delete nothing
dry_run: false

# Extra roots that are refused while preserve_root is on.
# Only the exact path is refused, not its contents.
protected_paths:
  - "/usr"
  - "/etc"
  - "/var"
  - "/home"

progress:
  interval: 100ms      # Minimum time between two status redraws
  rate_window: 5s      # Trailing window used to smooth the deletion rate
  display: auto        # auto, tui, plain, none

counter:
  enabled: true        # Count entries ahead of the deleter to show a percentage and ETA
  workers: 16          # Concurrent directory listings

listing:
  sort_threshold: 5000 # Directories up to this size are processed in name order
  batch_size: 256      # Entries read per directory read call

delete:
  retry_delays:        # Waits before retrying a removal that failed with EBUSY
    - 100ms
    - 500ms

logging:
  level: error         # trace, debug, info, warn, error
  file: ""             # Log to this file instead of stderr

# End-of-run report: auto, summary, json, yaml, none
# auto prints the summary only when stdout is a terminal
output: auto

# Write the list of deleted paths here
manifest_file: ""

# Write Prometheus textfile metrics here at the end of the run
metrics_file: ""
`
}
