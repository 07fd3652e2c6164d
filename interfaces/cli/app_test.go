package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/policykeeper/application"
	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/version"
	"github.com/felixgeelhaar/policykeeper/infrastructure/config"
)

// execute runs one policyctl invocation and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), args)
	return stdout.String(), err
}

// mustExecute runs one invocation against the SQLite database at db.
func mustExecute(t *testing.T, db string, args ...string) string {
	t.Helper()

	out, err := execute(t, append([]string{"--db", db}, args...)...)
	if err != nil {
		t.Fatalf("policyctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()

	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestApp_Version(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "policyctl version") {
		t.Errorf("version output missing 'policyctl version', got: %s", out)
	}
}

func TestApp_Help(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"approval chains", "policy", "approval", "policy-version", "audit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_MemoryDriver(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "policy", "create", "--title", "Travel", "--content", "Economy only")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out, "DRAFT, version 1.0") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestApp_ApprovalFlow(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "gov.db")

	mustExecute(t, db, "user", "add", "alice", "--name", "Alice")
	mustExecute(t, db, "user", "add", "bob")

	p := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "create",
		"--title", "Travel", "--content", "Economy only", "--author", "alice"))
	if p.Status != policy.StatusDraft || p.Version != "1.0" || p.VersionNumber != 1 {
		t.Fatalf("created policy = %+v", p)
	}

	out := mustExecute(t, db, "--actor", "alice", "policy", "submit", p.ID)
	if !strings.Contains(out, "is now IN_REVIEW") {
		t.Errorf("submit output = %q", out)
	}

	requests := decode[[]approval.Request](t, mustExecute(t, db, "--json", "approval", "request", p.ID, "alice", "bob"))
	if len(requests) != 2 {
		t.Fatalf("requested %d approvals, want 2", len(requests))
	}
	for i, r := range requests {
		if r.SequenceOrder != i+1 || r.Status != approval.StatusPending {
			t.Errorf("request %d = %+v", i, r)
		}
	}

	if _, err := execute(t, "--db", db, "policy", "finalize", p.ID); !errors.Is(err, policy.ErrApprovalsIncomplete) {
		t.Fatalf("finalize with pending chain: err = %v, want ErrApprovalsIncomplete", err)
	}

	if _, err := execute(t, "--db", db, "approval", "request", p.ID, "alice"); !errors.Is(err, approval.ErrDuplicateApproval) {
		t.Errorf("duplicate request: err = %v, want ErrDuplicateApproval", err)
	}

	mustExecute(t, db, "approval", "approve", requests[0].ID, "-m", "fine")
	mustExecute(t, db, "approval", "approve", requests[1].ID)

	progress := decode[approval.Progress](t, mustExecute(t, db, "--json", "approval", "progress", p.ID))
	if progress != (approval.Progress{Total: 2, Approved: 2}) {
		t.Errorf("progress = %+v", progress)
	}

	out = mustExecute(t, db, "policy", "finalize", p.ID)
	if !strings.Contains(out, "is now APPROVED") {
		t.Errorf("finalize output = %q", out)
	}
	out = mustExecute(t, db, "policy", "publish", p.ID)
	if !strings.Contains(out, "is now PUBLISHED") {
		t.Errorf("publish output = %q", out)
	}

	shown := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "show", p.ID))
	if shown.PublishedAt == nil {
		t.Error("published policy has no published_at")
	}

	events := decode[[]event.Event](t, mustExecute(t, db, "--json", "audit", p.ID))
	if len(events) == 0 {
		t.Fatal("audit trail is empty")
	}
	var statusChanges int
	for i, e := range events {
		if e.Sequence != uint64(i+1) {
			t.Errorf("event %d has sequence %d", i, e.Sequence)
		}
		if e.Type == event.TypePolicyStatusChanged {
			statusChanges++
		}
	}
	if statusChanges != 3 {
		t.Errorf("recorded %d status changes, want 3", statusChanges)
	}
}

func TestApp_RejectionReturnsToReview(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "gov.db")
	mustExecute(t, db, "user", "add", "carol")

	p := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "create", "--title", "Leave", "--content", "25 days"))
	r := decode[approval.Request](t, mustExecute(t, db, "--json", "approval", "add", p.ID, "carol", "--seq", "3"))
	if r.SequenceOrder != 3 {
		t.Errorf("sequence = %d, want 3", r.SequenceOrder)
	}

	rejected := decode[approval.Request](t, mustExecute(t, db, "--json", "approval", "reject", r.ID, "-m", "too generous"))
	if rejected.Status != approval.StatusRejected || rejected.Comments == nil || *rejected.Comments != "too generous" {
		t.Errorf("rejected = %+v", rejected)
	}

	shown := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "show", p.ID))
	if shown.Status != policy.StatusInReview {
		t.Errorf("status after rejection = %s, want IN_REVIEW", shown.Status)
	}

	out := mustExecute(t, db, "approval", "pending", "--approver", "carol")
	if !strings.Contains(out, "No approval requests.") {
		t.Errorf("pending output = %q", out)
	}
}

func TestApp_VersionHistory(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "gov.db")
	mustExecute(t, db, "user", "add", "alice")

	p := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "create", "--title", "Travel", "--content", "Economy only"))

	out := mustExecute(t, db, "pv", "next", p.ID, "--content", "Business allowed", "--summary", "relax", "--author", "alice")
	if !strings.Contains(out, "Created version 1.1 (#2)") {
		t.Errorf("next output = %q", out)
	}

	out = mustExecute(t, db, "--actor", "alice", "pv", "rollback", p.ID, "1")
	if !strings.Contains(out, "Created version 1.2 (#3)") {
		t.Errorf("rollback output = %q", out)
	}

	history := decode[[]version.HistoryEntry](t, mustExecute(t, db, "--json", "pv", "history", p.ID))
	if len(history) != 3 {
		t.Fatalf("history has %d entries, want 3", len(history))
	}
	if history[0].VersionNumber != 3 || history[0].ChangeSummary != "Rolled back to version 1" || history[0].CreatedBy != "alice" {
		t.Errorf("newest entry = %+v", history[0])
	}
	if history[2].CreatedBy != version.DefaultCreator || history[2].ChangeSummary != application.InitialSummary {
		t.Errorf("oldest entry = %+v", history[2])
	}

	latest := decode[version.PolicyVersion](t, mustExecute(t, db, "--json", "pv", "show", p.ID, "latest"))
	if latest.Content != "Economy only" || latest.VersionNumber != 3 {
		t.Errorf("latest = %+v", latest)
	}
	second := decode[version.PolicyVersion](t, mustExecute(t, db, "--json", "pv", "show", p.ID, "2"))

	cmp := decode[version.Comparison](t, mustExecute(t, db, "--json", "pv", "compare", second.ID, latest.ID))
	if len(cmp.Differences) != 2 {
		t.Errorf("differences = %v, want content and summary", cmp.Differences)
	}

	shown := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "show", p.ID))
	if shown.Version != "1.2" || shown.VersionNumber != 3 {
		t.Errorf("policy pointer = %s (#%d), want 1.2 (#3)", shown.Version, shown.VersionNumber)
	}

	mustExecute(t, db, "pv", "delete", second.ID)
	versions := decode[[]version.PolicyVersion](t, mustExecute(t, db, "--json", "pv", "list", p.ID))
	if len(versions) != 2 {
		t.Errorf("listed %d versions after delete, want 2", len(versions))
	}
}

func TestApp_ContentFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.md")
	if err := os.WriteFile(path, []byte("Remote work allowed\n\n"), 0o600); err != nil {
		t.Fatalf("write content: %v", err)
	}

	db := filepath.Join(dir, "gov.db")
	p := decode[policy.Policy](t, mustExecute(t, db, "--json", "policy", "create", "--title", "Remote", "--file", path))
	v := decode[version.PolicyVersion](t, mustExecute(t, db, "--json", "pv", "show", p.ID, "1"))
	if v.Content != "Remote work allowed" {
		t.Errorf("content = %q", v.Content)
	}
}

func TestApp_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown policy",
			args:    []string{"policy", "show", "missing"},
			wantErr: policy.ErrPolicyNotFound,
		},
		{
			name:    "unknown approval",
			args:    []string{"approval", "approve", "missing"},
			wantErr: approval.ErrApprovalNotFound,
		},
		{
			name:    "list without filter",
			args:    []string{"approval", "list"},
			wantMsg: "exactly one of --policy or --approver",
		},
		{
			name:    "create without number",
			args:    []string{"pv", "create", "p1", "--content", "x"},
			wantMsg: "number",
		},
		{
			name:    "content and file",
			args:    []string{"policy", "create", "--title", "x", "--content", "a", "--file", "b"},
			wantMsg: "either --content or --file",
		},
		{
			name:    "bad rollback target",
			args:    []string{"pv", "rollback", "p1", "first"},
			wantMsg: "invalid version number",
		},
		{
			name:    "unknown driver",
			args:    []string{"--driver", "cassandra", "policy", "show", "p1"},
			wantErr: config.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestApp_ForwardsEventsToWebhook(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []event.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var batch []event.Event
		if err := json.Unmarshal(body, &batch); err != nil {
			t.Errorf("webhook body: %v", err)
		}
		mu.Lock()
		received = append(received, batch...)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "policykeeper.yaml")
	cfg := fmt.Sprintf(`storage:
  driver: sqlite
  sqlite:
    path: %s
log:
  level: error
notify:
  batch_size: 1
  webhooks:
    - name: audit
      url: %s
      events: ["version.*"]
`, filepath.Join(dir, "gov.db"), srv.URL)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := execute(t, "-c", cfgPath, "policy", "create", "--title", "Travel", "--content", "Economy only"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Type != event.TypeVersionCreated {
		t.Errorf("webhook received %+v, want one version.created event", received)
	}
}
