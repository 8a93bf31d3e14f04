package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"empire_bot/internal/domain"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("failed to open test journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_Record(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	rec := &domain.TradeRecord{UserID: 1, DepositID: 7, MarketName: "AK", ValueCents: 1550, Outcome: domain.OutcomeSold}
	if err := j.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected timestamp")
	}

	records, err := j.ListByUser(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].DepositID != 7 || records[0].ValueCents != 1550 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestJournal_ListByUser(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		j.Record(ctx, &domain.TradeRecord{UserID: 1, DepositID: int64(i), Outcome: domain.OutcomeSold, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	j.Record(ctx, &domain.TradeRecord{UserID: 2, DepositID: 99, Outcome: domain.OutcomeSold})

	records, err := j.ListByUser(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].DepositID != 2 || records[1].DepositID != 1 {
		t.Errorf("expected newest first, got %d, %d", records[0].DepositID, records[1].DepositID)
	}
}

func TestJournal_CountByOutcome(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	for _, outcome := range []string{domain.OutcomeSold, domain.OutcomeSold, domain.OutcomeTimedOut, domain.OutcomeDelisted} {
		if err := j.Record(ctx, &domain.TradeRecord{UserID: 1, Outcome: outcome}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	counts, err := j.CountByOutcome(ctx, 1)
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[domain.OutcomeSold] != 2 || counts[domain.OutcomeTimedOut] != 1 || counts[domain.OutcomeDelisted] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if _, ok := counts[domain.OutcomeDelistFailed]; ok {
		t.Error("expected no delist_failed entry")
	}
}

func TestOpenJournal(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		j, err := OpenJournal(DriverSQLite, filepath.Join(t.TempDir(), "journal.db"))
		if err != nil {
			t.Fatalf("OpenJournal failed: %v", err)
		}
		j.Close()
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		if _, err := OpenJournal(DriverPostgres, ""); err == nil {
			t.Error("expected error for empty DSN")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, err := OpenJournal("mysql", "x"); err == nil {
			t.Error("expected error for unknown driver")
		}
	})
}
