// Package chat posts accreditation check summaries to a Slack-shape
// webhook, with a token-authenticated endpoint as fallback when no
// webhook URL is configured.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/auditree/auditree-go/pkg/notify"
)

// Route maps an accreditation name to the channel its alerts post to.
// An empty accreditation (the unaccredited bucket) may have its own
// route; absent a match, DefaultChannel is used.
type Route struct {
	Accreditation string
	Channel       string
}

// Config is one chat notifier's configuration section.
type Config struct {
	// WebhookURL, if set, receives an unauthenticated POST. Otherwise
	// APIURL+Token are used.
	WebhookURL string
	APIURL     string
	Token      string

	DefaultChannel string
	Routes         []Route

	// Compact drops the per-test detail lines, posting only counts.
	Compact bool

	// Assignees, if set, supply an on-call mention rotated by ISO week
	// number modulo len(Assignees), so the same person isn't paged every week.
	Assignees []string

	MaxRetries int
	HTTPClient *http.Client
}

// Notifier posts bucketed results as chat messages, one per
// accreditation bucket with any fail, error or warn outcome.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New builds a chat Notifier. now defaults to time.Now; tests may
// override it to pin the on-call rotation.
func New(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Notifier{cfg: cfg, logger: logger, now: time.Now}
}

func (n *Notifier) Name() string { return "chat" }

func (n *Notifier) channelFor(accreditation string) string {
	for _, r := range n.cfg.Routes {
		if r.Accreditation == accreditation {
			return r.Channel
		}
	}
	return n.cfg.DefaultChannel
}

func (n *Notifier) onCallAssignee() string {
	if len(n.cfg.Assignees) == 0 {
		return ""
	}
	_, week := n.now().ISOWeek()
	return n.cfg.Assignees[week%len(n.cfg.Assignees)]
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (n *Notifier) Notify(ctx context.Context, buckets []notify.Bucket, pushErr error) error {
	if n.cfg.WebhookURL == "" && (n.cfg.APIURL == "" || n.cfg.Token == "") {
		if n.logger != nil {
			n.logger.Warn("chat notifier has no destination configured, skipping")
		}
		return nil
	}

	var errs []error
	for _, b := range buckets {
		if b.Total() == 0 || (len(b.Fail) == 0 && len(b.Error) == 0 && len(b.Warn) == 0) {
			continue
		}
		msg := n.buildMessage(b, pushErr)
		if err := n.send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("chat: channel %s: %w", msg.Channel, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("chat: %d send(s) failed: %v", len(errs), errs[0])
	}
	return nil
}

func (n *Notifier) buildMessage(b notify.Bucket, pushErr error) slackMessage {
	label := b.Accreditation
	if label == "" {
		label = "(unaccredited)"
	}
	text := fmt.Sprintf("%s: %d fail, %d error, %d warn, %d pass", label, len(b.Fail), len(b.Error), len(b.Warn), len(b.Pass))
	if assignee := n.onCallAssignee(); assignee != "" {
		text = fmt.Sprintf("%s (on-call: %s)", text, assignee)
	}
	if pushErr != nil {
		text += fmt.Sprintf(" — push error: %v", pushErr)
	}

	msg := slackMessage{Channel: n.channelFor(b.Accreditation), Text: text}
	if n.cfg.Compact {
		return msg
	}

	addAttachment := func(color, title string, outcomes []notify.TestOutcome) {
		for _, o := range outcomes {
			body := fmt.Sprintf("%s.%s", o.Check, o.Method)
			for _, d := range o.Detail {
				body += "\n" + d
			}
			msg.Attachments = append(msg.Attachments, slackAttachment{Color: color, Title: title, Text: body})
		}
	}
	addAttachment("danger", "FAIL", b.Fail)
	addAttachment("danger", "ERROR", b.Error)
	addAttachment("warning", "WARN", b.Warn)
	return msg
}

func (n *Notifier) send(ctx context.Context, msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := n.cfg.WebhookURL
	if url == "" {
		url = n.cfg.APIURL
	}

	var lastErr error
	for attempt := 0; attempt <= n.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if n.logger != nil {
				n.logger.Debug("retrying chat post", "attempt", attempt)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if n.cfg.WebhookURL == "" && n.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
		}

		resp, err := n.cfg.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited, retry after %s", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return lastErr
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return time.Second
}
