package locker

import "time"

// CommitInfo describes a single commit touching locker content.
type CommitInfo struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Branch     string    `json:"branch"`
	Repository string    `json:"repository"`
}

// Metrics tracks locker lifecycle timings, exposed to pkg/telemetry/metrics.
type Metrics struct {
	InitDuration    time.Duration
	CheckinDuration time.Duration
	PushFailures    int64
	PushSuccesses   int64
}
