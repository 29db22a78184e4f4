package ticket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auditree/auditree-go/pkg/notify"
)

func newTestServer(t *testing.T, existing []issue) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/search/issues":
			json.NewEncoder(w).Encode(map[string]any{"items": existing})
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(issue{Number: 1})
		default:
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{})
		}
	}))
	return srv, &calls
}

func TestNotifyFilesNewIssueForFailure(t *testing.T) {
	srv, calls := newTestServer(t, nil)
	defer srv.Close()

	n := New(Config{APIBase: srv.URL, Owner: "acme", Repo: "compliance", Token: "tok"}, nil)
	buckets := []notify.Bucket{{
		Accreditation: "soc2",
		Fail:          []notify.TestOutcome{{Check: "pkg.A", Method: "test_x", Detail: []string{"bad"}}},
	}}
	if err := n.Notify(context.Background(), buckets, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(*calls) < 2 {
		t.Fatalf("calls = %v, want a search then a create", *calls)
	}
}

func TestNotifyUpdatesExistingIssue(t *testing.T) {
	title := "[auditree] pkg.A.test_x failing"
	srv, calls := newTestServer(t, []issue{{Number: 42, Title: title}})
	defer srv.Close()

	n := New(Config{APIBase: srv.URL, Owner: "acme", Repo: "compliance", Token: "tok"}, nil)
	buckets := []notify.Bucket{{
		Accreditation: "soc2",
		Fail:          []notify.TestOutcome{{Check: "pkg.A", Method: "test_x"}},
	}}
	if err := n.Notify(context.Background(), buckets, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	found := false
	for _, c := range *calls {
		if c == "POST /repos/acme/compliance/issues/42/comments" {
			found = true
		}
	}
	if !found {
		t.Errorf("calls = %v, want a comment on issue #42", *calls)
	}
}

func TestNotifyNoRepoIsNoOp(t *testing.T) {
	n := New(Config{}, nil)
	if err := n.Notify(context.Background(), nil, nil); err != nil {
		t.Fatalf("Notify with no repo should no-op, got %v", err)
	}
}

func TestSummaryKeyWeekly(t *testing.T) {
	n := New(Config{SummaryFrequency: FrequencyWeekly}, nil)
	suffix, key := n.summaryKey(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if suffix == "" || key == 0 {
		t.Errorf("summaryKey = (%q, %d), want non-empty suffix and nonzero key", suffix, key)
	}
}

func TestFileSummaryPostsIssue(t *testing.T) {
	srv, calls := newTestServer(t, nil)
	defer srv.Close()

	n := New(Config{APIBase: srv.URL, Owner: "acme", Repo: "compliance", Token: "tok", SummaryFrequency: FrequencyWeekly, Assignees: []string{"alice", "bob"}}, nil)
	if err := n.Notify(context.Background(), []notify.Bucket{{Accreditation: "soc2"}}, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	found := false
	for _, c := range *calls {
		if c == "POST /repos/acme/compliance/issues" {
			found = true
		}
	}
	if !found {
		t.Errorf("calls = %v, want a create issue call for the summary", *calls)
	}
}
