// Package paging triggers and resolves PagerDuty-shape alerts keyed by
// check id, deduping on identical open alert bodies.
package paging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/auditree/auditree-go/pkg/notify"
	"github.com/auditree/auditree-go/pkg/runner"
)

// Config is one paging notifier's configuration section.
type Config struct {
	// EventsURL is the PagerDuty-shape Events API v2 endpoint.
	EventsURL  string
	RoutingKey string

	HTTPClient *http.Client
}

// Notifier triggers one alert per failing/erroring check and resolves
// alerts for checks that have returned to pass/warn, deduping retriggers
// of an alert whose body is unchanged since it was last opened.
type Notifier struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]string // dedup key -> last body digest
}

func New(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{cfg: cfg, logger: logger, open: map[string]string{}}
}

func (n *Notifier) Name() string { return "paging" }

type pagerEvent struct {
	RoutingKey  string     `json:"routing_key"`
	EventAction string     `json:"event_action"`
	DedupKey    string     `json:"dedup_key"`
	Payload     *pagerBody `json:"payload,omitempty"`
}

type pagerBody struct {
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
}

func (n *Notifier) Notify(ctx context.Context, buckets []notify.Bucket, pushErr error) error {
	if n.cfg.EventsURL == "" || n.cfg.RoutingKey == "" {
		if n.logger != nil {
			n.logger.Warn("paging notifier has no routing key configured, skipping")
		}
		return nil
	}

	seen := map[string]bool{}
	var errs []error

	for _, b := range buckets {
		for _, o := range append(append([]notify.TestOutcome{}, b.Fail...), b.Error...) {
			key := dedupKey(o.Check, o.Method)
			seen[key] = true
			if err := n.trigger(ctx, key, o); err != nil {
				errs = append(errs, err)
			}
		}
		for _, o := range append(append([]notify.TestOutcome{}, b.Pass...), b.Warn...) {
			key := dedupKey(o.Check, o.Method)
			if err := n.resolve(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}

	n.mu.Lock()
	for key := range n.open {
		if !seen[key] {
			delete(n.open, key)
		}
	}
	n.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("paging: %d event(s) failed: %v", len(errs), errs[0])
	}
	return nil
}

func dedupKey(check, method string) string {
	return check + "." + method
}

func (n *Notifier) trigger(ctx context.Context, key string, o notify.TestOutcome) error {
	body := fmt.Sprintf("%s: %v", o.Status, o.Detail)
	digest := bodyDigest(body)

	n.mu.Lock()
	last, ok := n.open[key]
	n.mu.Unlock()
	if ok {
		if last == digest {
			return nil
		}
		// The open alert's body changed: resolve it, then trigger anew.
		resolveEv := pagerEvent{RoutingKey: n.cfg.RoutingKey, EventAction: "resolve", DedupKey: key}
		if err := n.send(ctx, resolveEv); err != nil {
			return fmt.Errorf("resolve %s before retrigger: %w", key, err)
		}
	}

	ev := pagerEvent{
		RoutingKey:  n.cfg.RoutingKey,
		EventAction: "trigger",
		DedupKey:    key,
		Payload: &pagerBody{
			Summary:  fmt.Sprintf("%s.%s: %s", o.Check, o.Method, o.Status),
			Source:   o.Check,
			Severity: severityFor(o.Status),
		},
	}
	if err := n.send(ctx, ev); err != nil {
		return fmt.Errorf("trigger %s: %w", key, err)
	}

	n.mu.Lock()
	n.open[key] = digest
	n.mu.Unlock()
	return nil
}

func (n *Notifier) resolve(ctx context.Context, key string) error {
	n.mu.Lock()
	_, wasOpen := n.open[key]
	n.mu.Unlock()
	if !wasOpen {
		return nil
	}

	ev := pagerEvent{RoutingKey: n.cfg.RoutingKey, EventAction: "resolve", DedupKey: key}
	if err := n.send(ctx, ev); err != nil {
		return fmt.Errorf("resolve %s: %w", key, err)
	}

	n.mu.Lock()
	delete(n.open, key)
	n.mu.Unlock()
	return nil
}

func severityFor(status runner.Status) string {
	if status == runner.StatusError {
		return "critical"
	}
	return "error"
}

func bodyDigest(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func (n *Notifier) send(ctx context.Context, ev pagerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.EventsURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("events endpoint returned %d", resp.StatusCode)
	}
	return nil
}
