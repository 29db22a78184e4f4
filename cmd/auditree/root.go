package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// pipelineFlags collects every flag the root command's pipeline run
// accepts. Subcommands (keys, version, completion) do not use these.
var pipelineFlags struct {
	fetch      bool
	check      string
	evidence   string
	fix        string
	configPath string
	credsPath  string
	notify     string
	force      []string
	include    string
	exclude    string
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "auditree",
	Short: "Continuous-compliance evidence pipeline",
	Long: `auditree is a continuous-compliance evidence pipeline.

It fetches raw evidence from external systems, checks it against
registered controls, optionally repairs failing controls, builds
human-readable reports, and notifies configured sinks. Every run is
staged through a git-backed evidence locker, giving the result a
verifiable, signed chain of custody.

Running auditree with no subcommand executes the pipeline itself:
fetch and/or check phases, selected by --fetch and --check.

For more information, visit: https://github.com/auditree/auditree-go`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runPipeline,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug-level) logging")

	rootCmd.Flags().BoolVar(&pipelineFlags.fetch, "fetch", false, "enable the fetch phase")
	rootCmd.Flags().StringVar(&pipelineFlags.check, "check", "", "enable the check phase for these accreditations (comma separated)")
	rootCmd.Flags().StringVar(&pipelineFlags.evidence, "evidence", "no-push", "locker evidence mode: local, no-push, or full-remote")
	rootCmd.Flags().StringVar(&pipelineFlags.fix, "fix", "off", "fixer mode: off, on, or dry-run (valid only with --check)")
	rootCmd.Flags().StringVarP(&pipelineFlags.configPath, "compliance-config", "C", "", "path to the compliance config file (YAML or JSON)")
	rootCmd.Flags().StringVar(&pipelineFlags.credsPath, "creds-path", "", "path to the credentials file (default ~/.credentials)")
	rootCmd.Flags().StringVar(&pipelineFlags.notify, "notify", "stdout", "comma-separated notifiers to run (stdout,slack,gh_issues,pagerduty,locker,findings); stdout always runs")
	rootCmd.Flags().StringArrayVar(&pipelineFlags.force, "force", nil, "evidence path to treat as stale, ignoring its TTL (repeatable)")
	rootCmd.Flags().StringVar(&pipelineFlags.include, "include", "", "JSON file listing fetcher names to include (fetch phase only)")
	rootCmd.Flags().StringVar(&pipelineFlags.exclude, "exclude", "", "JSON file listing fetcher names to exclude (fetch phase only)")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
