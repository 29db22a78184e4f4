package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/auditree/auditree-go/pkg/locker"
)

// LockerNotifier writes a markdown alerts summary into the locker at
// notifications/alerts_summary.md and commits+pushes it. Per spec,
// this notifier runs even when pushErr is set: it is itself the
// mechanism reporting the degraded state, so it cannot also require a
// successful push to have already happened.
type LockerNotifier struct {
	Locker *locker.Locker
}

func (n *LockerNotifier) Name() string { return "locker" }

func (n *LockerNotifier) Notify(ctx context.Context, buckets []Bucket, pushErr error) error {
	if n.Locker == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("# Alerts summary\n\n")
	if pushErr != nil {
		fmt.Fprintf(&b, "> Check-phase push failed: %v\n\n", pushErr)
	}

	for _, bucket := range buckets {
		label := bucket.Accreditation
		if label == "" {
			label = "(unaccredited)"
		}
		fmt.Fprintf(&b, "## %s\n\n", label)
		fmt.Fprintf(&b, "- pass: %d\n- warn: %d\n- fail: %d\n- error: %d\n\n", len(bucket.Pass), len(bucket.Warn), len(bucket.Fail), len(bucket.Error))
		for _, o := range bucket.Fail {
			fmt.Fprintf(&b, "- **FAIL** `%s.%s`\n", o.Check, o.Method)
		}
		for _, o := range bucket.Error {
			fmt.Fprintf(&b, "- **ERROR** `%s.%s`\n", o.Check, o.Method)
		}
	}

	if err := n.Locker.AddContentToLocker("notifications/alerts_summary.md", []byte(b.String())); err != nil {
		return fmt.Errorf("notify/locker: write alerts summary: %w", err)
	}
	if err := n.Locker.Checkin(ctx); err != nil {
		return fmt.Errorf("notify/locker: checkin: %w", err)
	}
	return n.Locker.PushError()
}
