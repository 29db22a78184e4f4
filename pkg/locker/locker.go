package locker

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/auditree/auditree-go/pkg/agent"
	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/evidence"
)

// indexMu is a process-wide mutex guarding index read-modify-write
// cycles and commit history walks, matching the single-process-owns-
// the-locker invariant: concurrent Lockers in the same process must
// not race on the same working tree regardless of which instance they
// touch.
var indexMu sync.Mutex

const isoLayout = "2006-01-02T15:04:05Z"

// Options configures a Locker.
type Options struct {
	Name          string
	RepoURL       string
	Branch        string
	DefaultBranch string
	LocalPath     string
	Credentials   Credentials
	Push          bool
	TTLTolerance  time.Duration
	Depth         int
	ShallowDays   int
	GitConfig     map[string]string
	ForcedEvidence []string
	IgnoreSignatures   bool
	LargeFileThreshold int64
	Extra              []*Locker

	// CachePath, when set, enables the SQLite secondary index at that
	// file path. Rebuilt from the working tree on Init.
	CachePath string

	Config *config.Config
	Agent  *agent.Agent
}

// Locker owns a local working directory and, optionally, a remote.
type Locker struct {
	name          string
	repoURL       string
	branch        string
	defaultBranch string
	localPath     string
	creds         Credentials
	push          bool
	ttlTolerance  time.Duration
	depth         int
	shallowDays   int
	gitconfig     map[string]string
	ignoreSignatures   bool
	largeFileThreshold int64
	forcedEvidence     map[string]bool
	extra              []*Locker

	cfg   *config.Config
	agent *agent.Agent

	repo      *gogit.Repository
	newBranch bool
	runTime   time.Time

	mu           sync.Mutex
	touchedFiles map[string]bool
	removedFiles map[string]bool
	pushErr      error

	cachePath string
	cache     *QueryCache

	metrics Metrics
}

// New validates opts and constructs a Locker. Init must be called
// before use.
func New(opts Options) (*Locker, error) {
	if opts.Config == nil {
		return nil, evidence.NewMisconfigurationError("locker.config", fmt.Errorf("Config is required"))
	}

	branch := opts.Branch
	defaultBranch := opts.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = "master"
	}
	if branch == "" {
		branch = defaultBranch
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "auditree-locker-"+safeName(opts.Name))
	}

	forced := map[string]bool{}
	for _, p := range opts.ForcedEvidence {
		forced[p] = true
	}

	largeFileThreshold := opts.LargeFileThreshold
	if largeFileThreshold <= 0 {
		largeFileThreshold = 5 * 1024 * 1024
	}

	return &Locker{
		name:               opts.Name,
		repoURL:            opts.RepoURL,
		branch:             branch,
		defaultBranch:      defaultBranch,
		localPath:          localPath,
		creds:              opts.Credentials,
		push:               opts.Push,
		ttlTolerance:       opts.TTLTolerance,
		depth:              opts.Depth,
		shallowDays:        opts.ShallowDays,
		gitconfig:          opts.GitConfig,
		ignoreSignatures:   opts.IgnoreSignatures,
		largeFileThreshold: largeFileThreshold,
		forcedEvidence:     forced,
		extra:              opts.Extra,
		cfg:                opts.Config,
		agent:              opts.Agent,
		touchedFiles:       map[string]bool{},
		removedFiles:       map[string]bool{},
		cachePath:          opts.CachePath,
	}, nil
}

func safeName(name string) string {
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' {
			return '-'
		}
		return r
	}, name)
}

// Init clones the remote (or opens the existing working tree), applies
// gitconfig overrides, and checks out the configured branch, creating
// it from the default branch if absent.
func (l *Locker) Init(ctx context.Context) error {
	start := time.Now()
	defer func() { l.metrics.InitDuration = time.Since(start) }()

	l.runTime = time.Now().UTC()

	gitDir := filepath.Join(l.localPath, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		repo, err := gogit.PlainOpen(l.localPath)
		if err != nil {
			return fmt.Errorf("open existing locker working tree: %w", err)
		}
		l.repo = repo
		if err := l.checkoutBranch(); err != nil {
			return err
		}
		return l.openCache()
	}

	if err := os.MkdirAll(l.localPath, 0o755); err != nil {
		return fmt.Errorf("create locker directory: %w", err)
	}

	if l.repoURL == "" {
		repo, err := gogit.PlainInit(l.localPath, false)
		if err != nil {
			return fmt.Errorf("init local-only locker: %w", err)
		}
		l.repo = repo
		if err := l.checkoutBranch(); err != nil {
			return err
		}
		return l.openCache()
	}

	cloneURL, err := SpliceToken(l.repoURL, l.creds.Token)
	if err != nil {
		return err
	}

	cloneOpts := &gogit.CloneOptions{
		URL:          cloneURL,
		SingleBranch: true,
	}
	if ref, err := remoteBranchRef(l.repoURL, l.branch, l.defaultBranch); err == nil {
		cloneOpts.ReferenceName = ref
	}
	if l.depth > 0 {
		cloneOpts.Depth = l.depth
	}
	if l.shallowDays > 0 {
		cloneOpts.ShallowSince = time.Now().AddDate(0, 0, -l.shallowDays)
	}

	auth, err := NewAuthProvider(l.creds)
	if err != nil {
		return fmt.Errorf("build auth provider: %w", err)
	}
	if cloneOpts.Auth, err = auth.GetAuth(); err != nil {
		return fmt.Errorf("get auth: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, l.localPath, false, cloneOpts)
	if err != nil {
		return fmt.Errorf("clone locker remote %s: %w", l.repoURL, err)
	}
	l.repo = repo

	if err := l.applyGitConfig(); err != nil {
		return err
	}

	if err := l.checkoutBranch(); err != nil {
		return err
	}
	return l.openCache()
}

// openCache opens the SQLite secondary index (if configured) and
// rebuilds it from the working tree's current index.json files.
func (l *Locker) openCache() error {
	if l.cachePath == "" {
		return nil
	}
	cache, err := OpenQueryCache(l.cachePath)
	if err != nil {
		return fmt.Errorf("open query cache: %w", err)
	}
	indexes, err := l.walkIndexes()
	if err != nil {
		cache.Close()
		return fmt.Errorf("walk indexes for query cache rebuild: %w", err)
	}
	if err := cache.Rebuild(indexes); err != nil {
		cache.Close()
		return fmt.Errorf("rebuild query cache: %w", err)
	}
	l.cache = cache
	return nil
}

// Close releases resources held by the Locker, including the SQLite
// query cache if one was opened.
func (l *Locker) Close() error {
	if l.cache != nil {
		return l.cache.Close()
	}
	return nil
}

// remoteBranchRef is a hook point kept distinct from checkoutBranch so
// a future "list remote branches before cloning" step can slot in
// without touching clone option assembly.
func remoteBranchRef(repoURL, branch, defaultBranch string) (plumbing.ReferenceName, error) {
	if branch == "" {
		branch = defaultBranch
	}
	return plumbing.NewBranchReferenceName(branch), nil
}

func (l *Locker) applyGitConfig() error {
	if len(l.gitconfig) == 0 {
		return nil
	}
	cfg, err := l.repo.Config()
	if err != nil {
		return fmt.Errorf("read repo config: %w", err)
	}
	for key, value := range l.gitconfig {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		cfg.Raw.Section(parts[0]).SetOption(parts[1], value)
	}
	if err := l.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("apply gitconfig: %w", err)
	}
	return nil
}

func (l *Locker) checkoutBranch() error {
	wt, err := l.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(l.branch)
	err = wt.Checkout(&gogit.CheckoutOptions{Branch: ref})
	if err == nil {
		return nil
	}

	// Branch absent locally: create it from whatever HEAD currently is
	// (the default branch on a fresh clone/init).
	l.newBranch = true
	return wt.Checkout(&gogit.CheckoutOptions{Branch: ref, Create: true})
}

// worktree returns the underlying go-git worktree.
func (l *Locker) worktree() (*gogit.Worktree, error) {
	return l.repo.Worktree()
}

// CurrentCommit returns metadata about the checked-out branch's HEAD.
func (l *Locker) CurrentCommit() (*CommitInfo, error) {
	ref, err := l.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	commit, err := l.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}
	return &CommitInfo{
		SHA: commit.Hash.String(), Author: commit.Author.Name, Email: commit.Author.Email,
		Timestamp: commit.Author.When, Message: commit.Message,
		Branch: l.branch, Repository: l.repoURL,
	}, nil
}

// touch marks path as changed in this run, for the eventual checkin
// commit message.
func (l *Locker) touch(relPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.removedFiles, relPath)
	l.touchedFiles[relPath] = true
}

// touchRemoved marks path as deleted in this run: the file is already
// gone from disk, and the next Checkin must stage its removal instead
// of trying to add it.
func (l *Locker) touchRemoved(relPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.touchedFiles, relPath)
	l.removedFiles[relPath] = true
}

// Checkin stages and commits every file touched this run with a
// message listing them, then pushes if a remote and push are
// configured. A rejected push is returned as *evidence.PushError and
// recorded on the locker so callers (the runner, the fixer stage) can
// react without retrying.
func (l *Locker) Checkin(ctx context.Context) error {
	start := time.Now()
	defer func() { l.metrics.CheckinDuration = time.Since(start) }()

	l.mu.Lock()
	files := make([]string, 0, len(l.touchedFiles))
	for f := range l.touchedFiles {
		files = append(files, f)
	}
	removed := make([]string, 0, len(l.removedFiles))
	for f := range l.removedFiles {
		removed = append(removed, f)
	}
	l.mu.Unlock()

	if len(files) == 0 && len(removed) == 0 {
		return nil
	}

	wt, err := l.worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	for _, f := range files {
		if _, err := wt.Add(f); err != nil {
			return fmt.Errorf("stage %s: %w", f, err)
		}
	}
	for _, f := range removed {
		if _, err := wt.Remove(f); err != nil {
			return fmt.Errorf("stage removal of %s: %w", f, err)
		}
	}

	all := append(append([]string{}, files...), removed...)
	msg := fmt.Sprintf("Evidence update: %s", strings.Join(sortedStrings(all), ", "))
	if _, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: l.committerName(), When: l.runTime},
	}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if l.repoURL == "" || !l.push {
		return nil
	}

	auth, err := NewAuthProvider(l.creds)
	if err != nil {
		return fmt.Errorf("build auth provider: %w", err)
	}
	authMethod, err := auth.GetAuth()
	if err != nil {
		return fmt.Errorf("get auth: %w", err)
	}

	err = l.repo.PushContext(ctx, &gogit.PushOptions{Auth: authMethod})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		l.metrics.PushFailures++
		pushErr := evidence.NewPushError(l.repoURL, l.branch, err)
		l.pushErr = pushErr
		return pushErr
	}
	l.metrics.PushSuccesses++
	return nil
}

// PushError returns the push error recorded by the most recent Checkin,
// or nil. Used by the runner to set the notifier pipeline's
// push_error flag.
func (l *Locker) PushError() error { return l.pushErr }

// Metrics returns a snapshot of this locker's lifecycle timings and
// push counters, for export via pkg/telemetry/metrics.
func (l *Locker) Metrics() Metrics { return l.metrics }

func (l *Locker) committerName() string {
	if l.agent != nil && l.agent.Name() != "" {
		return l.agent.Name()
	}
	return "auditree"
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// pathParts splits a locker path into its kind/category/name trailing
// components, stripping an optional agents/<agent> prefix.
func pathParts(p string) (agentName string, kind evidence.Kind, category, name string, err error) {
	clean := path.Clean(p)
	parts := strings.Split(clean, "/")
	if len(parts) >= 2 && parts[0] == "agents" {
		if len(parts) < 5 {
			return "", "", "", "", fmt.Errorf("invalid agent-scoped evidence path: %s", p)
		}
		agentName = parts[1]
		parts = parts[2:]
	}
	if len(parts) != 3 {
		return "", "", "", "", fmt.Errorf("evidence path must have exactly 3 trailing components (kind/category/name): %s", p)
	}
	return agentName, evidence.Kind(parts[0]), parts[1], parts[2], nil
}

func dirFor(agentName string, kind evidence.Kind, category string) string {
	if agentName != "" {
		return path.Join("agents", agentName, string(kind), category)
	}
	return path.Join(string(kind), category)
}

func localDir(l *Locker, dirPath string) string {
	return filepath.Join(l.localPath, filepath.FromSlash(dirPath))
}
