package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tkingovr/xapictl/api"
)

func newStore(t *testing.T) (*JSONLStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewJSONLStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func TestJSONLStore_WriteAndQuery(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	record := &api.AuditRecord{
		Timestamp: time.Now(),
		Host:      "http://xen",
		User:      "root",
		Class:     "VM",
		Method:    "get_all",
		Verdict:   api.VerdictAllow,
		Outcome:   api.OutcomeSuccess,
	}
	if err := store.Write(ctx, record); err != nil {
		t.Fatal(err)
	}
	if record.ID == "" {
		t.Error("expected generated ID")
	}

	results, err := store.Query(ctx, api.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Call() != "VM.get_all" {
		t.Errorf("expected call VM.get_all, got %s", results[0].Call())
	}
	if results[0].ID != record.ID {
		t.Errorf("expected ID %s, got %s", record.ID, results[0].ID)
	}
}

func TestJSONLStore_QueryFilter(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*api.AuditRecord{
		{Timestamp: base, Class: "VM", Method: "get_all", Verdict: api.VerdictAllow, Outcome: api.OutcomeSuccess},
		{Timestamp: base.Add(time.Minute), Class: "VM", Method: "destroy", Verdict: api.VerdictDeny, Outcome: api.OutcomeBlocked},
		{Timestamp: base.Add(2 * time.Minute), Class: "host", Method: "get_all", Verdict: api.VerdictAllow, Outcome: api.OutcomeFailure},
		{Timestamp: base.Add(48 * time.Hour), Class: "SR", Method: "scan", Verdict: api.VerdictLog, Outcome: api.OutcomeSuccess},
	}
	for _, r := range records {
		if err := store.Write(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter api.QueryFilter
		calls  []string
	}{
		{"all newest first", api.QueryFilter{}, []string{"SR.scan", "host.get_all", "VM.destroy", "VM.get_all"}},
		{"verdict", api.QueryFilter{Verdict: api.VerdictDeny}, []string{"VM.destroy"}},
		{"class", api.QueryFilter{Class: "VM"}, []string{"VM.destroy", "VM.get_all"}},
		{"method", api.QueryFilter{Method: "get_all"}, []string{"host.get_all", "VM.get_all"}},
		{"outcome", api.QueryFilter{Outcome: api.OutcomeFailure}, []string{"host.get_all"}},
		{"since", api.QueryFilter{Since: base.Add(time.Hour)}, []string{"SR.scan"}},
		{"until", api.QueryFilter{Until: base.Add(time.Minute)}, []string{"VM.destroy", "VM.get_all"}},
		{"limit", api.QueryFilter{Limit: 2}, []string{"SR.scan", "host.get_all"}},
		{"offset", api.QueryFilter{Offset: 3}, []string{"VM.get_all"}},
		{"offset past end", api.QueryFilter{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.calls) {
				t.Fatalf("expected %d results, got %d", len(tt.calls), len(results))
			}
			for i, r := range results {
				if r.Call() != tt.calls[i] {
					t.Errorf("result %d: expected %s, got %s", i, tt.calls[i], r.Call())
				}
			}
		})
	}
}

func TestJSONLStore_Stats(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	records := []*api.AuditRecord{
		{Timestamp: time.Now(), Class: "VM", Method: "get_all", Verdict: api.VerdictAllow, Outcome: api.OutcomeSuccess},
		{Timestamp: time.Now(), Class: "VM", Method: "destroy", Verdict: api.VerdictDeny, Outcome: api.OutcomeBlocked, ErrorKind: api.KindPolicyDenied},
		{Timestamp: time.Now(), Class: "VM", Method: "get_all", Verdict: api.VerdictAllow, Outcome: api.OutcomeFailure, ErrorKind: api.KindTransport},
		{Timestamp: time.Now(), Class: "VM", Method: "start", Verdict: api.VerdictAsk, Outcome: api.OutcomeSuccess},
	}
	for _, r := range records {
		if err := store.Write(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.Stats(ctx, api.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCalls != 4 {
		t.Errorf("expected 4 total, got %d", stats.TotalCalls)
	}
	if stats.AllowCount != 2 || stats.DenyCount != 1 || stats.AskCount != 1 {
		t.Errorf("unexpected verdict counts: %+v", stats)
	}
	if stats.SuccessCount != 2 || stats.FailureCount != 1 || stats.BlockedCount != 1 {
		t.Errorf("unexpected outcome counts: %+v", stats)
	}
	if stats.ByCall["VM.get_all"] != 2 {
		t.Errorf("expected 2 VM.get_all calls, got %d", stats.ByCall["VM.get_all"])
	}
	if stats.ByErrorKind["transport"] != 1 || stats.ByErrorKind["policy_denied"] != 1 {
		t.Errorf("unexpected error kinds: %v", stats.ByErrorKind)
	}

	filtered, err := store.Stats(ctx, api.QueryFilter{Method: "get_all"})
	if err != nil {
		t.Fatal(err)
	}
	if filtered.TotalCalls != 2 {
		t.Errorf("expected 2 filtered, got %d", filtered.TotalCalls)
	}
}

func TestJSONLStore_FileCreation(t *testing.T) {
	store, dir := newStore(t)

	now := time.Now()
	record := &api.AuditRecord{
		Timestamp: now,
		Class:     "VM",
		Method:    "get_all",
		Verdict:   api.VerdictAllow,
	}
	if err := store.Write(context.Background(), record); err != nil {
		t.Fatal(err)
	}
	store.Close()

	expectedFile := filepath.Join(dir, now.Format("2006-01-02")+".jsonl")
	if _, err := os.Stat(expectedFile); os.IsNotExist(err) {
		t.Errorf("expected audit log file %s to exist", expectedFile)
	}
}

func TestJSONLStore_HistoryAcrossStores(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	for _, method := range []string{"get_all", "get_record"} {
		store, err := NewJSONLStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Write(ctx, &api.AuditRecord{Class: "VM", Method: method, Verdict: api.VerdictAllow}); err != nil {
			t.Fatal(err)
		}
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}
	}

	reader, err := NewJSONLStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	results, err := reader.Query(ctx, api.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results from earlier stores, got %d", len(results))
	}
}

func TestJSONLStore_SkipsForeignAndTornLines(t *testing.T) {
	store, dir := newStore(t)

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	content := `{"id":"1","timestamp":"2026-03-01T09:00:00Z","class":"VM","method":"get_all","verdict":"allow","outcome":"success"}` + "\n" +
		`{"id":"2","timestamp":"2026-03-01T09:0`
	if err := os.WriteFile(filepath.Join(dir, day.Format("2006-01-02")+".jsonl"), []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.jsonl"), []byte("garbage\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	results, err := store.Query(context.Background(), api.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Fatalf("expected only the complete record, got %d", len(results))
	}
}
