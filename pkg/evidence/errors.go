package evidence

import "fmt"

// NotFoundError is raised when a path does not resolve to any entry in a
// locker's index, or the index entry itself is malformed.
type NotFoundError struct {
	Path  string
	Cause error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evidence not found: %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("evidence not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(path string, cause error) *NotFoundError {
	return &NotFoundError{Path: path, Cause: cause}
}

// HistoricalNotFoundError is raised when no commit touching a path exists
// at or before a requested historical date.
type HistoricalNotFoundError struct {
	Path  string
	Until string
}

func (e *HistoricalNotFoundError) Error() string {
	return fmt.Sprintf("no historical evidence for %s at or before %s", e.Path, e.Until)
}

// NewHistoricalNotFoundError creates a new HistoricalNotFoundError.
func NewHistoricalNotFoundError(path, until string) *HistoricalNotFoundError {
	return &HistoricalNotFoundError{Path: path, Until: until}
}

// StaleError is raised when evidence's TTL has expired (or it is on the
// forced-evidence list) and a caller requested a non-ignoring read.
type StaleError struct {
	Path       string
	LastUpdate string
	TTL        int
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("evidence %s is stale: last updated %s, ttl %ds", e.Path, e.LastUpdate, e.TTL)
}

// NewStaleError creates a new StaleError.
func NewStaleError(path, lastUpdate string, ttl int) *StaleError {
	return &StaleError{Path: path, LastUpdate: lastUpdate, TTL: ttl}
}

// DependencyUnavailableError is raised by a fetcher's evidence-dependency
// lookup when the dependency is absent from both the in-memory cache and
// the locker. The runner catches this to queue the caller for a rerun.
type DependencyUnavailableError struct {
	Path string
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("evidence dependency unavailable: %s", e.Path)
}

// NewDependencyUnavailableError creates a new DependencyUnavailableError.
func NewDependencyUnavailableError(path string) *DependencyUnavailableError {
	return &DependencyUnavailableError{Path: path}
}

// DependencyFetcherNotFoundError is raised when the runner's rerun loop
// cannot identify which fetcher owns a still-unresolved dependency.
type DependencyFetcherNotFoundError struct {
	Path string
}

func (e *DependencyFetcherNotFoundError) Error() string {
	return fmt.Sprintf("no fetcher registered to produce evidence dependency: %s", e.Path)
}

// NewDependencyFetcherNotFoundError creates a new DependencyFetcherNotFoundError.
func NewDependencyFetcherNotFoundError(path string) *DependencyFetcherNotFoundError {
	return &DependencyFetcherNotFoundError{Path: path}
}

// UnverifiedError is raised when evidence carries a signature that fails
// verification against the agent's public key.
type UnverifiedError struct {
	Path  string
	Agent string
}

func (e *UnverifiedError) Error() string {
	return fmt.Sprintf("evidence %s failed signature verification for agent %s", e.Path, e.Agent)
}

// NewUnverifiedError creates a new UnverifiedError.
func NewUnverifiedError(path, agent string) *UnverifiedError {
	return &UnverifiedError{Path: path, Agent: agent}
}

// PushError is raised when a locker's remote rejects a push at checkin.
type PushError struct {
	Remote string
	Branch string
	Cause  error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push to %s (branch %s) rejected: %v", e.Remote, e.Branch, e.Cause)
}

func (e *PushError) Unwrap() error { return e.Cause }

// NewPushError creates a new PushError.
func NewPushError(remote, branch string, cause error) *PushError {
	return &PushError{Remote: remote, Branch: branch, Cause: cause}
}

// MisconfigurationError is raised for startup problems: a missing
// credentials file, an invalid locker mode, an empty check set, and
// similar operator-fixable mistakes.
type MisconfigurationError struct {
	Field string
	Cause error
}

func (e *MisconfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("misconfiguration [%s]: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("misconfiguration [%s]", e.Field)
}

func (e *MisconfigurationError) Unwrap() error { return e.Cause }

// NewMisconfigurationError creates a new MisconfigurationError.
func NewMisconfigurationError(field string, cause error) *MisconfigurationError {
	return &MisconfigurationError{Field: field, Cause: cause}
}
