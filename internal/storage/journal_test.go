package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
)

func testJournal(t *testing.T, session string) *Journal {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewJournal(dbPath, session)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_SaveAndLoad(t *testing.T) {
	j := testJournal(t, "sess-1")
	ctx := context.Background()

	ev1 := &event.OrderEvent{
		BaseEvent: event.BaseEvent{Seq: 1, Asset: domain.Rye},
		Trades: []domain.Trade{
			{BuyerID: 7, SellerID: 9, Price: 15, Volume: 3, OrderID: 42},
		},
	}
	ev2 := &event.CancelEvent{
		BaseEvent: event.BaseEvent{Seq: 2, Asset: domain.Rye},
		OrderID:   42,
	}
	ev3 := &event.ErrorEvent{
		BaseEvent: event.BaseEvent{Seq: 3, Asset: domain.Swiss},
		Message:   "insufficient buying power",
	}

	for _, ev := range []event.Event{ev1, ev2, ev3} {
		if err := j.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("Failed to save event %d: %v", ev.GetSeq(), err)
		}
	}

	loaded, err := j.LoadEvents(ctx, "sess-1", 1)
	if err != nil {
		t.Fatalf("Failed to load events: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(loaded))
	}

	oe, ok := loaded[0].(*event.OrderEvent)
	if !ok {
		t.Fatalf("Event 1 should be OrderEvent, got %T", loaded[0])
	}
	if len(oe.Trades) != 1 || oe.Trades[0].Price != 15 {
		t.Errorf("Event 1 trades mismatch: %+v", oe.Trades)
	}
	if oe.GetAsset() != domain.Rye {
		t.Errorf("Event 1 asset mismatch: got %v", oe.GetAsset())
	}

	ce, ok := loaded[1].(*event.CancelEvent)
	if !ok {
		t.Fatalf("Event 2 should be CancelEvent, got %T", loaded[1])
	}
	if ce.OrderID != 42 {
		t.Errorf("Event 2 order_id mismatch: got %d", ce.OrderID)
	}

	ee, ok := loaded[2].(*event.ErrorEvent)
	if !ok {
		t.Fatalf("Event 3 should be ErrorEvent, got %T", loaded[2])
	}
	if ee.Message != "insufficient buying power" {
		t.Errorf("Event 3 message mismatch: got %q", ee.Message)
	}
}

func TestJournal_SessionsAreIsolated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j1, err := NewJournal(dbPath, "sess-a")
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer j1.Close()

	ctx := context.Background()
	ev := &event.CancelEvent{
		BaseEvent: event.BaseEvent{Seq: 1, Asset: domain.Dressing},
		OrderID:   1,
	}
	if err := j1.SaveEvent(ctx, ev); err != nil {
		t.Fatalf("Failed to save event: %v", err)
	}

	loaded, err := j1.LoadEvents(ctx, "sess-b", 1)
	if err != nil {
		t.Fatalf("Failed to load events: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected no events for sess-b, got %d", len(loaded))
	}
}

func TestJournal_GetLastSeq(t *testing.T) {
	j := testJournal(t, "sess-1")
	ctx := context.Background()

	lastSeq, err := j.GetLastSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 0 {
		t.Errorf("Expected 0 for empty journal, got %d", lastSeq)
	}

	for _, seq := range []uint64{5, 10} {
		ev := &event.CancelEvent{
			BaseEvent: event.BaseEvent{Seq: seq, Asset: domain.Pastrami},
			OrderID:   domain.OrderID(seq),
		}
		if err := j.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("Failed to save event: %v", err)
		}
	}

	lastSeq, err = j.GetLastSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 10 {
		t.Errorf("Expected 10, got %d", lastSeq)
	}
}

func TestJournal_Metadata(t *testing.T) {
	j := testJournal(t, "sess-1")
	ctx := context.Background()

	if err := j.UpsertMetadata(ctx, "user_id", "7"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := j.UpsertMetadata(ctx, "user_id", "8"); err != nil {
		t.Fatalf("Upsert overwrite failed: %v", err)
	}

	v, err := j.GetMetadata(ctx, "user_id")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if v != "8" {
		t.Errorf("Expected 8, got %q", v)
	}

	v, err = j.GetMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if v != "" {
		t.Errorf("Expected empty for missing key, got %q", v)
	}
}

func TestJournal_SaveAndLoad_KeepsTempFilesOut(t *testing.T) {
	// Regression check: the WAL sidecar files must land next to the
	// database, not in the working directory.
	j := testJournal(t, "sess-1")
	ctx := context.Background()

	ev := &event.CancelEvent{
		BaseEvent: event.BaseEvent{Seq: 1, Asset: domain.Dressing},
		OrderID:   1,
	}
	if err := j.SaveEvent(ctx, ev); err != nil {
		t.Fatalf("Failed to save event: %v", err)
	}

	if _, err := os.Stat("journal.db"); !os.IsNotExist(err) {
		t.Error("journal.db leaked into the working directory")
	}
}
