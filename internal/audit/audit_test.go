package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/persist"
)

func TestMemorySinkCollects(t *testing.T) {
	s := NewMemorySink()
	s.Record(Record{OrgID: "org-1", Action: ActionModelLoad, Outcome: OutcomeSuccess})
	s.Record(Record{OrgID: "org-1", Action: ActionModelSwap, Outcome: OutcomeFailure, Detail: "boom"})

	recs := s.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[1].Detail != "boom" {
		t.Fatalf("unexpected record: %+v", recs[1])
	}
}

func TestNoopSinkDoesNothing(t *testing.T) {
	NewNoopSink().Record(Record{OrgID: "x"})
}

func TestStoreSinkWritesRows(t *testing.T) {
	db, err := persist.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	sink := NewStoreSink(db, zerolog.Nop())
	sink.Record(Record{
		OrgID:          "org-1",
		Action:         ActionModelLoad,
		Outcome:        OutcomeFailure,
		Detail:         "artifact not found",
		RequestingUser: "svc-train",
		Duration:       1500 * time.Millisecond,
	})
	sink.Close() // drains the buffer

	rows, err := db.RecentAudits(context.Background(), "org-1", 10)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.ID == "" || r.Action != ActionModelLoad || r.Outcome != OutcomeFailure {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.DurationMillis != 1500 || r.RequestingUser != "svc-train" {
		t.Fatalf("unexpected row detail: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Fatalf("timestamp not defaulted")
	}
}

func TestStoreSinkRecordAfterClose(t *testing.T) {
	db, err := persist.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	sink := NewStoreSink(db, zerolog.Nop())
	sink.Close()
	sink.Close() // idempotent

	// Dropped silently, no panic on the closed buffer.
	sink.Record(Record{OrgID: "late", Action: ActionModelLoad, Outcome: OutcomeSuccess})

	rows, err := db.RecentAudits(context.Background(), "late", 10)
	if err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows after close, got %d", len(rows))
	}
}
