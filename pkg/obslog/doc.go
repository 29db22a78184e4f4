// Package obslog configures the pipeline's single structured logger:
// a thin wrapper around log/slog with a level, an output format
// (text or json), and component-scoped children.
//
//	logger, err := obslog.New(obslog.Config{Level: "info", Format: "text"})
//	lockerLog := logger.With("component", "locker")
//	lockerLog.Info("clone complete", "remote", url, "duration", d)
//
// The runner logs one structured line per fetch or check case and
// notifier dispatch logs one line per notifier, never per-item spam;
// pkg/locker does no logging of its own.
package obslog
