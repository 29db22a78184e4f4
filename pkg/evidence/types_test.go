package evidence

import (
	"testing"

	"github.com/auditree/auditree-go/pkg/config"
)

type fakeSigner struct {
	name     string
	signable bool
}

func (f *fakeSigner) Name() string     { return f.name }
func (f *fakeSigner) Signable() bool   { return f.signable }
func (f *fakeSigner) HashAndSign(data []byte) (string, string, error) {
	return "deadbeef", "c2lnbmF0dXJl", nil
}

func TestEvidencePath(t *testing.T) {
	cfg := config.New()
	cfg.Set("org.name", "acme")

	tests := []struct {
		name string
		ev   *Evidence
		want string
	}{
		{
			name: "unscoped raw",
			ev:   New(KindRaw, "github", "users.json"),
			want: "raw/github/users.json",
		},
		{
			name: "agent scoped",
			ev:   &Evidence{Kind: KindReport, Category: "aws", NameTpl: "iam.json", Agent: "auditor"},
			want: "agents/auditor/reports/aws/iam.json",
		},
		{
			name: "templated name",
			ev:   New(KindExternal, "backups", "{{org.name}}-backups.json"),
			want: "external/backups/acme-backups.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Path(cfg); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvidenceDefaultTTL(t *testing.T) {
	if got := New(KindRaw, "c", "n.json").TTL; got != day {
		t.Errorf("raw TTL = %v, want %v", got, day)
	}
	if got := New(KindExternal, "c", "n.json").TTL; got != year {
		t.Errorf("external TTL = %v, want %v", got, year)
	}
}

func TestSetContentCanonicalizesJSON(t *testing.T) {
	cfg := config.New()
	ev := New(KindRaw, "github", "users.json")

	if err := ev.SetContent(cfg, []byte(`{"b":2,"a":1}`), false, nil); err != nil {
		t.Fatalf("SetContent: %v", err)
	}

	want := "{\n  \"a\": 1,\n  \"b\": 2\n}"
	if string(ev.Content) != want {
		t.Errorf("Content = %q, want %q", ev.Content, want)
	}
}

func TestSetContentSigns(t *testing.T) {
	cfg := config.New()
	ev := New(KindRaw, "github", "users.json")
	signer := &fakeSigner{name: "ci-bot", signable: true}

	if err := ev.SetContent(cfg, []byte(`{"a":1}`), true, signer); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if ev.Digest != "deadbeef" || ev.Signature != "c2lnbmF0dXJl" {
		t.Errorf("digest/signature not set: %+v", ev)
	}
	if ev.Agent != "ci-bot" {
		t.Errorf("Agent = %q, want ci-bot", ev.Agent)
	}
}

func TestSetContentNilNotSigned(t *testing.T) {
	cfg := config.New()
	ev := New(KindRaw, "github", "users.json")
	signer := &fakeSigner{name: "ci-bot", signable: true}

	if err := ev.SetContent(cfg, nil, true, signer); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if ev.Content != nil || ev.Digest != "" {
		t.Errorf("nil content should not be signed: %+v", ev)
	}
}

func TestIsEmpty(t *testing.T) {
	cfg := config.New()

	tests := []struct {
		name    string
		content []byte
		ext     string
		want    bool
	}{
		{name: "nil content", content: nil, ext: "json", want: true},
		{name: "whitespace", content: []byte("   \n"), ext: "txt", want: true},
		{name: "empty json object", content: []byte("{}"), ext: "json", want: true},
		{name: "empty json array", content: []byte("[]"), ext: "json", want: true},
		{name: "json zero is not empty", content: []byte("0"), ext: "json", want: false},
		{name: "non-empty json", content: []byte(`{"a":1}`), ext: "json", want: false},
		{name: "non-json text", content: []byte("hello"), ext: "txt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := New(KindRaw, "c", "n."+tt.ext)
			ev.Content = tt.content
			if got := ev.IsEmpty(cfg); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentAsJSONRejectsNonJSON(t *testing.T) {
	cfg := config.New()
	ev := New(KindRaw, "c", "n.txt")
	ev.Content = []byte("hello")

	if _, err := ev.ContentAsJSON(cfg); err == nil {
		t.Fatal("expected error for non-JSON extension")
	}
}

func TestClearSign(t *testing.T) {
	ev := New(KindRaw, "c", "n.json")
	ev.Agent = "ci-bot"
	ev.Content = []byte(`{"a":1}`)
	ev.Digest = "deadbeef"
	ev.Signature = "c2ln"

	got := ev.ClearSign()
	for _, marker := range []string{
		"-----BEGIN AGENT-----", "ci-bot", "-----END AGENT-----",
		"-----BEGIN CONTENT-----", `{"a":1}`, "-----END CONTENT-----",
		"-----BEGIN DIGEST-----", "deadbeef",
		"-----BEGIN SIGNATURE-----", "c2ln",
	} {
		if !contains(got, marker) {
			t.Errorf("ClearSign() missing %q in:\n%s", marker, got)
		}
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestPartitionKeysAndGetPartition(t *testing.T) {
	ev := New(KindRaw, "github", "repos.json")
	ev.PartitionFields = []string{"org", "name"}
	ev.Content = []byte(`[
		{"org":"acme","name":"widgets","stars":1},
		{"org":"acme","name":"gadgets","stars":2},
		{"org":"acme","name":"widgets","stars":3}
	]`)

	keys, err := ev.PartitionKeys()
	if err != nil {
		t.Fatalf("PartitionKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("PartitionKeys() = %v, want 2 distinct tuples", keys)
	}

	part, err := ev.GetPartition(keys[0])
	if err != nil {
		t.Fatalf("GetPartition: %v", err)
	}
	if len(part) == 0 {
		t.Error("GetPartition returned empty document")
	}
}

func TestPartitionHashStable(t *testing.T) {
	key := []interface{}{"acme", "widgets"}
	h1 := PartitionHash(key)
	h2 := PartitionHash(key)
	if h1 != h2 {
		t.Errorf("PartitionHash not stable: %q vs %q", h1, h2)
	}
	if len(h1) != 10 {
		t.Errorf("PartitionHash length = %d, want 10", len(h1))
	}
}
