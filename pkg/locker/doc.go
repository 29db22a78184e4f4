// Package locker implements the git-backed evidence store: clone/open a
// working tree, stage and commit evidence writes, push at checkin, and
// answer index-driven queries (stale/abandoned/empty/large-file/report
// lookups) against the locker's index.json files.
//
// # Basic usage
//
//	l, err := locker.New(locker.Options{
//		RepoURL: "https://github.com/acme/evidence-locker.git",
//		Branch:  "main",
//		Config:  cfg,
//		Agent:   signingAgent,
//	})
//	if err := l.Init(ctx); err != nil { ... }
//	defer l.Checkin(ctx)
//
//	if err := l.AddEvidence(ev, nil, nil); err != nil { ... }
//	found, err := l.GetEvidence("raw/github/users.json", false)
//
// # Remote URL rewriting
//
// When credentials are configured, Init splices a host-specific token
// into the remote URL (scheme://<token>@host/...) before cloning, for
// github.com, github enterprise hosts, bitbucket, and gitlab hosts.
//
// # Multi-locker fallback
//
// A Locker may carry Extra lockers. A GetEvidence miss (not found)
// retries against each extra locker in order before the original miss
// is returned; GetHistoricalEvidence retries the same way on any error,
// including no commit at the requested date.
package locker
