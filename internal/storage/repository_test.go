package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "contahogar.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryActsAsSheet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	sheet, err := repo.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	first, err := sheet.FirstCell(ctx)
	if err != nil {
		t.Fatalf("first cell: %v", err)
	}
	if first != "" {
		t.Fatalf("expected empty sheet, got %q", first)
	}

	rows := [][]any{
		{"Persona", "Arriendo", "Total"},
		{"Daniel Berrio", int64(443000), int64(443000)},
	}
	if err := sheet.AppendRows(ctx, rows); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err = sheet.FirstCell(ctx)
	if err != nil {
		t.Fatalf("first cell: %v", err)
	}
	if first != "Persona" {
		t.Fatalf("expected Persona, got %q", first)
	}
}

func TestPendingRowsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.AppendRows(ctx, [][]any{
		{"Persona", "Total"},
		{"Oscar Berrio", int64(423000)},
		{"Henner Heredia", int64(376000)},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	pending, err := repo.PendingRows(ctx, 2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected limit to cap at 2 rows, got %d", len(pending))
	}
	if pending[0].ID >= pending[1].ID {
		t.Fatalf("expected oldest first, got ids %d, %d", pending[0].ID, pending[1].ID)
	}
	if got := pending[1].Cells; got[0] != "Oscar Berrio" || got[1] != int64(423000) {
		t.Fatalf("unexpected cells %#v", got)
	}

	if err := repo.MarkSynced(ctx, pending[0].ID, pending[1].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	pending, err = repo.PendingRows(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Cells[0] != "Henner Heredia" {
		t.Fatalf("expected only the last row pending, got %+v", pending)
	}

	if err := repo.MarkSyncError(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	tests := []struct {
		status string
		want   int
	}{
		{StatusPending, 0},
		{StatusSynced, 2},
		{StatusError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			n, err := repo.CountByStatus(ctx, tt.status)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, n)
			}
		})
	}
}

func TestRequeueErrored(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.AppendRows(ctx, [][]any{{"Persona"}, {"Daniel Hurtado"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	pending, err := repo.PendingRows(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if err := repo.MarkSynced(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, pending[1].ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	n, err := repo.RequeueErrored(ctx)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if n != 1 {
		t.Fatalf("requeued %d rows, want 1", n)
	}
	pending, err = repo.PendingRows(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Cells[0] != "Daniel Hurtado" {
		t.Fatalf("expected the parked row back in the queue, got %+v", pending)
	}

	if n, err := repo.RequeueErrored(ctx); err != nil || n != 0 {
		t.Fatalf("second requeue = %d, %v", n, err)
	}
}

func TestMarkSyncedNoIDs(t *testing.T) {
	if err := newTestRepo(t).MarkSynced(context.Background()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contahogar.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AppendRows(ctx, [][]any{{"Persona"}}); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	// Migrations must be idempotent on an existing database.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	if n, err := repo.CountByStatus(ctx, StatusPending); err != nil || n != 1 {
		t.Fatalf("expected 1 pending row after reopen, got %d (%v)", n, err)
	}
}

func TestDecodeCells(t *testing.T) {
	cells, err := decodeCells(`["a", 12, 1.5, null]`)
	if err != nil {
		t.Fatal(err)
	}
	if cells[0] != "a" || cells[1] != int64(12) || cells[2] != 1.5 || cells[3] != nil {
		t.Fatalf("unexpected cells %#v", cells)
	}
	if _, err := decodeCells(`{`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
