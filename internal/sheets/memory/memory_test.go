package memory

import (
	"context"
	"errors"
	"testing"
)

func TestMemorySheetAppendAndFirstCell(t *testing.T) {
	s := New()
	ctx := context.Background()

	sh, err := s.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	first, err := sh.FirstCell(ctx)
	if err != nil || first != "" {
		t.Fatalf("expected empty first cell, got %q err=%v", first, err)
	}

	if err := sh.AppendRows(ctx, [][]any{{"Persona", "Total"}, {"A", int64(1)}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	first, _ = sh.FirstCell(ctx)
	if first != "Persona" {
		t.Fatalf("expected Persona, got %q", first)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", s.Len())
	}

	// Returned rows are copies.
	rows := s.Rows()
	rows[1][0] = "mutated"
	if s.Rows()[1][0] != "A" {
		t.Fatalf("Rows() leaked internal state")
	}
}

func TestMemorySheetInjectedFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	s := New()
	s.FailConnect(boom)
	if _, err := s.Connect(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected connect failure, got %v", err)
	}
	s.FailConnect(nil)

	s.FailWritesAfter(1, boom)
	err := s.AppendRows(ctx, [][]any{{"a"}, {"b"}, {"c"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected partial write of 1 row, got %d", s.Len())
	}
}
