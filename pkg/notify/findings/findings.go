// Package findings posts one payload per failing/erroring occurrence
// to a per-accreditation findings-collector endpoint.
package findings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/auditree/auditree-go/pkg/notify"
)

// Endpoint maps an accreditation to the collector URL its occurrences
// post to.
type Endpoint struct {
	Accreditation string
	URL           string
}

// Config is one findings notifier's configuration section.
type Config struct {
	Endpoints  []Endpoint
	Token      string
	HTTPClient *http.Client
}

type Notifier struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{cfg: cfg, logger: logger}
}

func (n *Notifier) Name() string { return "findings" }

type occurrence struct {
	Accreditation string   `json:"accreditation"`
	Check         string   `json:"check"`
	Method        string   `json:"method"`
	Status        string   `json:"status"`
	Detail        []string `json:"detail,omitempty"`
}

func (n *Notifier) endpointFor(accreditation string) (string, bool) {
	for _, e := range n.cfg.Endpoints {
		if e.Accreditation == accreditation {
			return e.URL, true
		}
	}
	return "", false
}

func (n *Notifier) Notify(ctx context.Context, buckets []notify.Bucket, pushErr error) error {
	if len(n.cfg.Endpoints) == 0 {
		if n.logger != nil {
			n.logger.Warn("findings notifier has no endpoints configured, skipping")
		}
		return nil
	}

	var errs []error
	for _, b := range buckets {
		url, ok := n.endpointFor(b.Accreditation)
		if !ok {
			continue
		}
		for _, o := range append(append([]notify.TestOutcome{}, b.Fail...), b.Error...) {
			occ := occurrence{
				Accreditation: b.Accreditation,
				Check:         o.Check,
				Method:        o.Method,
				Status:        string(o.Status),
				Detail:        o.Detail,
			}
			if err := n.post(ctx, url, occ); err != nil {
				errs = append(errs, fmt.Errorf("findings: %s.%s: %w", o.Check, o.Method, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("findings: %d post(s) failed: %v", len(errs), errs[0])
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, url string, occ occurrence) error {
	data, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("marshal occurrence: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	}

	resp, err := n.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return nil
}
