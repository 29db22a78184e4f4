package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/auditree/auditree-go/pkg/agent"
	"github.com/auditree/auditree-go/pkg/cli"
	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/controls"
	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/fixer"
	"github.com/auditree/auditree-go/pkg/locker"
	"github.com/auditree/auditree-go/pkg/notify"
	"github.com/auditree/auditree-go/pkg/obslog"
	"github.com/auditree/auditree-go/pkg/report"
	"github.com/auditree/auditree-go/pkg/runner"
	"github.com/auditree/auditree-go/pkg/telemetry/metrics"
)

// runPipeline is rootCmd's RunE: it drives one fetch-and/or-check run
// end to end. A nil return means the run passed; setup failures and a
// run that did not pass (fail/error results, unresolved dependencies, a
// push error) return a non-nil error, which makes Execute print the
// error and exit 1.
func runPipeline(cmd *cobra.Command, extraArgs []string) error {
	if err := validatePipelineFlags(); err != nil {
		return err
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := obslog.New(obslog.Config{Level: level})
	if err != nil {
		return cli.NewConfigError("verbose", err.Error())
	}

	cfg, err := config.Load(pipelineFlags.configPath)
	if err != nil {
		return cli.NewCommandError("config", err)
	}

	credsPath := pipelineFlags.credsPath
	if credsPath == "" {
		credsPath = credentials.DefaultPath()
	}
	creds, err := credentials.Load(credsPath)
	if err != nil {
		return cli.NewCommandError("credentials", err)
	}

	ag, err := agent.FromConfig(cfg)
	if err != nil {
		return cli.NewCommandError("agent", err)
	}

	lk, err := buildLocker(cfg, creds, ag)
	if err != nil {
		return cli.NewCommandError("locker", err)
	}

	ctx := cli.SetupSignalHandler()

	if err := lk.Init(ctx); err != nil {
		return cli.NewCommandError("locker", err)
	}
	defer lk.Close()

	ag.LoadPublicKeyFromLocker(lk, cfg)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.Observe(lk.Metrics())

	manifest, err := loadControlsManifest(lk, logger)
	if err != nil {
		return cli.NewCommandError("controls", err)
	}

	include, err := loadFetcherList(pipelineFlags.include)
	if err != nil {
		return cli.NewCommandError("include", err)
	}
	include = append(include, extraArgs...)
	exclude, err := loadFetcherList(pipelineFlags.exclude)
	if err != nil {
		return cli.NewCommandError("exclude", err)
	}

	fixMode, err := fixer.ParseMode(pipelineFlags.fix)
	if err != nil {
		return cli.NewConfigError("fix", err.Error())
	}

	rn := runner.New(lk, cfg, creds, manifest, logger, reg)

	opts := runner.Options{
		Fetch: pipelineFlags.fetch,
		Check: pipelineFlags.check != "",
		FetchOptions: runner.FetchOptions{
			Include: include,
			Exclude: exclude,
		},
		CheckOptions: runner.CheckOptions{
			Accreditations: splitComma(pipelineFlags.check),
		},
		FixFn: func(ctx context.Context, rc *runner.RunContext, results map[string]*runner.CheckResult) (int, error) {
			outcomes := fixer.Run(ctx, fixMode, os.Stdout, rc, creds, results, logger)
			fixed, firstErr := 0, error(nil)
			for _, o := range outcomes {
				if o.Err != nil && firstErr == nil {
					firstErr = o.Err
				}
				if o.Fixed {
					fixed++
				}
			}
			return fixed, firstErr
		},
		ReportFn: func(ctx context.Context, results map[string]*runner.CheckResult) error {
			if err := report.Build(lk, cfg, ag, results, nil); err != nil {
				return err
			}
			if err := report.BuildTOC(lk); err != nil {
				return err
			}
			return report.WriteResults(lk, results, nil)
		},
		NotifyFn: func(ctx context.Context, results map[string]*runner.CheckResult, pushErr error) error {
			notifiers := buildNotifiers(pipelineFlags.notify, cfg, creds, lk, logger)
			if errs := notify.Dispatch(ctx, notifiers, results, pushErr, logger); len(errs) > 0 {
				return fmt.Errorf("%d notifier(s) failed", len(errs))
			}
			return nil
		},
	}

	result, err := rn.Run(ctx, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	collector.Observe(lk.Metrics())

	for _, d := range result.Diagnostics {
		logger.Warn(d)
	}

	if !result.Success() {
		return fmt.Errorf("run did not pass: %d fetch case(s), %d check class(es), push error: %v",
			len(result.FetchResults), len(result.CheckResults), result.PushError)
	}
	return nil
}

// validatePipelineFlags enforces the flag-combination rules every
// invocation must satisfy, independent of cobra's own parsing.
func validatePipelineFlags() error {
	if !pipelineFlags.fetch && pipelineFlags.check == "" {
		return cli.NewConfigError("fetch/check", "--fetch or --check is required")
	}
	if !pipelineFlags.fetch && (pipelineFlags.include != "" || pipelineFlags.exclude != "") {
		return cli.NewConfigError("include/exclude", "only valid with --fetch")
	}
	if pipelineFlags.check == "" && pipelineFlags.fix != "off" && pipelineFlags.fix != "" {
		return cli.NewConfigError("fix", "only valid with --check")
	}
	switch pipelineFlags.evidence {
	case "local", "no-push", "full-remote":
	default:
		return cli.NewConfigError("evidence", "must be one of: local, no-push, full-remote")
	}
	return nil
}

// buildLocker constructs the Options for this run's locker per the
// --evidence mode: "local" never touches a remote; "no-push" clones or
// opens the configured remote but never pushes; "full-remote" pushes
// after every commit.
func buildLocker(cfg *config.Config, creds *credentials.Bag, ag *agent.Agent) (*locker.Locker, error) {
	opts := locker.Options{
		Name:               cfg.GetString("locker.dirname", "evidence-locker"),
		Branch:             cfg.GetString("locker.branch", ""),
		DefaultBranch:      cfg.GetString("locker.default_branch", "master"),
		LocalPath:          cfg.GetString("locker.local_path", ""),
		TTLTolerance:       cfg.GetDuration("locker.ttl_tolerance", 0),
		Depth:              cfg.GetInt("locker.depth", 0),
		ShallowDays:        cfg.GetInt("locker.shallow_days", 0),
		IgnoreSignatures:   cfg.GetBool("locker.ignore_signatures", false),
		LargeFileThreshold: int64(cfg.GetInt("locker.large_file_threshold", 0)),
		ForcedEvidence:     pipelineFlags.force,
		Config:             cfg,
		Agent:              ag,
	}
	for k, v := range cfg.GetStringMap("locker.gitconfig") {
		if s, ok := v.(string); ok {
			if opts.GitConfig == nil {
				opts.GitConfig = map[string]string{}
			}
			opts.GitConfig[k] = s
		}
	}

	if pipelineFlags.evidence == "local" {
		return locker.New(opts)
	}

	repoURL := cfg.GetString("locker.repo_url", "")
	if repoURL == "" {
		return nil, fmt.Errorf("evidence mode %q requires locker.repo_url", pipelineFlags.evidence)
	}
	opts.RepoURL = repoURL
	opts.Push = pipelineFlags.evidence == "full-remote"
	token, _ := creds.Get("locker", "token")
	opts.Credentials = locker.Credentials{Token: token}
	return locker.New(opts)
}

// loadControlsManifest reads controls.json out of the locker working
// tree. Its absence is tolerated (logged, not fatal): a fetch-only run
// against a brand-new locker has nothing to check yet.
func loadControlsManifest(lk *locker.Locker, logger *slog.Logger) (*controls.Manifest, error) {
	data, err := lk.ReadContentFromLocker("controls.json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("controls.json not found in locker; check phase will have nothing to run")
			return nil, nil
		}
		return nil, err
	}
	return controls.Parse("controls.json", data)
}

// loadFetcherList reads a JSON array of fetcher names from path. An
// empty path yields a nil list and no error.
func loadFetcherList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return names, nil
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
