package runner

import (
	"context"
	"testing"

	"github.com/auditree/auditree-go/pkg/evidence"
)

type depConsumer struct{}

func (depConsumer) Name() string { return "aaaconsumer" }
func (depConsumer) Fetch(ctx context.Context, rc *RunContext) error {
	ev, err := rc.GetEvidenceDependency("raw/demo/y.json")
	if err != nil {
		return err
	}
	rc.Success("got %s", string(ev.Content))
	return nil
}

type depProducer struct{}

func (depProducer) Name() string { return "zzzproducer" }
func (depProducer) Fetch(ctx context.Context, rc *RunContext) error {
	ev := evidence.New(evidence.KindRaw, "demo", "y.json")
	ev.Content = []byte(`{"ok":true}`)
	return rc.CacheEvidence("raw/demo/y.json", ev, false)
}

func TestFetchPhaseResolvesDependencyAcrossReruns(t *testing.T) {
	resetRegistry()
	defer resetRegistry()
	RegisterFetcher(depConsumer{})
	RegisterFetcher(depProducer{})

	r := &Runner{}
	rc := newRunContext(nil, nil, nil)
	results, err := r.runFetchPhase(context.Background(), rc, FetchOptions{})
	if err != nil {
		t.Fatalf("unexpected unresolved dependency error: %v", err)
	}

	var consumer *CaseResult
	for i := range results {
		if results[i].ID.Class == "aaaconsumer" {
			consumer = &results[i]
		}
	}
	if consumer == nil {
		t.Fatal("missing consumer result")
	}
	if consumer.Status != StatusPass {
		t.Errorf("consumer status = %v, want pass", consumer.Status)
	}
}

func TestFetchPhaseReportsUnresolvedDependency(t *testing.T) {
	resetRegistry()
	defer resetRegistry()
	RegisterFetcher(depConsumer{})

	r := &Runner{}
	rc := newRunContext(nil, nil, nil)
	results, err := r.runFetchPhase(context.Background(), rc, FetchOptions{})
	if err == nil {
		t.Fatal("expected unresolved dependency error")
	}
	if len(results) != 1 || results[0].Status != StatusFail {
		t.Errorf("results = %+v, want single failed case", results)
	}
}

func TestFilterFetchersIncludeExclude(t *testing.T) {
	all := []Fetcher{stubFetcher{name: "a"}, stubFetcher{name: "b"}, stubFetcher{name: "c"}}

	included := filterFetchers(all, FetchOptions{Include: []string{"a", "b"}})
	if len(included) != 2 {
		t.Errorf("include filter: got %d fetchers, want 2", len(included))
	}

	excluded := filterFetchers(all, FetchOptions{Exclude: []string{"b"}})
	if len(excluded) != 2 {
		t.Errorf("exclude filter: got %d fetchers, want 2", len(excluded))
	}
	for _, f := range excluded {
		if f.Name() == "b" {
			t.Error("excluded fetcher b still present")
		}
	}
}
