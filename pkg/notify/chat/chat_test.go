package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auditree/auditree-go/pkg/notify"
)

func testBuckets() []notify.Bucket {
	return []notify.Bucket{
		{
			Accreditation: "soc2",
			Fail:          []notify.TestOutcome{{Check: "pkg.A", Method: "test_x", Detail: []string{"bad thing"}}},
		},
		{
			Accreditation: "",
			Pass:          []notify.TestOutcome{{Check: "pkg.B", Method: "test_y"}},
		},
	}
}

func TestNotifySkipsCleanBuckets(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL}, nil)
	if err := n.Notify(context.Background(), testBuckets(), nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if posts != 1 {
		t.Errorf("posts = %d, want 1 (only the failing bucket)", posts)
	}
}

func TestNotifyNoDestinationIsNoOp(t *testing.T) {
	n := New(Config{}, nil)
	if err := n.Notify(context.Background(), testBuckets(), nil); err != nil {
		t.Fatalf("Notify with no destination should no-op, got %v", err)
	}
}

func TestNotifyRoutesByAccreditation(t *testing.T) {
	var gotChannel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg slackMessage
		json.NewDecoder(r.Body).Decode(&msg)
		gotChannel = msg.Channel
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{
		WebhookURL:     srv.URL,
		DefaultChannel: "#general",
		Routes:         []Route{{Accreditation: "soc2", Channel: "#soc2-alerts"}},
	}, nil)
	if err := n.Notify(context.Background(), testBuckets(), nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotChannel != "#soc2-alerts" {
		t.Errorf("channel = %q, want #soc2-alerts", gotChannel)
	}
}

func TestNotifyRetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{WebhookURL: srv.URL, MaxRetries: 2}, nil)
	if err := n.Notify(context.Background(), testBuckets(), nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one 429 then success)", calls)
	}
}

func TestOnCallAssigneeRotatesByISOWeek(t *testing.T) {
	n := New(Config{WebhookURL: "http://unused", Assignees: []string{"alice", "bob", "carol"}}, nil)
	n.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }
	_, week := n.now().ISOWeek()
	want := n.cfg.Assignees[week%len(n.cfg.Assignees)]
	if got := n.onCallAssignee(); got != want {
		t.Errorf("onCallAssignee() = %q, want %q", got, want)
	}
}
