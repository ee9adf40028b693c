package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stepamak/pump-tracker/internal/domain"
	"github.com/stepamak/pump-tracker/internal/storage"
)

func TestDevListStore_AddAndList(t *testing.T) {
	store := NewDevListStore()
	ctx := context.Background()

	entries := []*domain.DevListEntry{
		{Kind: domain.ListAllow, Address: "DevB", AddedAt: 2000},
		{Kind: domain.ListAllow, Address: "DevA", AddedAt: 1000},
		{Kind: domain.ListDeny, Address: "DevC", AddedAt: 500},
		{Kind: domain.ListAllow, Address: "DevD", AddedAt: 2000},
	}
	for _, e := range entries {
		if err := store.Add(ctx, e); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	got, err := store.List(ctx, domain.ListAllow)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"DevA", "DevB", "DevD"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, addr := range want {
		if got[i].Address != addr {
			t.Errorf("entry %d: got %s, want %s", i, got[i].Address, addr)
		}
	}

	deny, _ := store.List(ctx, domain.ListDeny)
	if len(deny) != 1 || deny[0].Address != "DevC" {
		t.Errorf("unexpected deny entries: %+v", deny)
	}
}

func TestDevListStore_DuplicateKey(t *testing.T) {
	store := NewDevListStore()
	ctx := context.Background()

	e := &domain.DevListEntry{Kind: domain.ListDeny, Address: "Dev1"}
	if err := store.Add(ctx, e); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := store.Add(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// same address on the other list is a different key
	if err := store.Add(ctx, &domain.DevListEntry{Kind: domain.ListAllow, Address: "Dev1"}); err != nil {
		t.Errorf("Add to other list failed: %v", err)
	}
}

func TestDevListStore_InvalidInput(t *testing.T) {
	store := NewDevListStore()
	ctx := context.Background()

	for _, e := range []*domain.DevListEntry{
		nil,
		{Kind: domain.ListAllow},
		{Kind: "grey", Address: "Dev1"},
	} {
		if err := store.Add(ctx, e); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Add(%+v): expected ErrInvalidInput, got %v", e, err)
		}
	}
}

func TestDevListStore_Remove(t *testing.T) {
	store := NewDevListStore()
	ctx := context.Background()

	_ = store.Add(ctx, &domain.DevListEntry{Kind: domain.ListAllow, Address: "Dev1"})

	if err := store.Remove(ctx, domain.ListAllow, "Dev1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, domain.ListAllow, "Dev1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, _ := store.List(ctx, domain.ListAllow)
	if len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

func TestDevListStore_ReturnsCopies(t *testing.T) {
	store := NewDevListStore()
	ctx := context.Background()

	e := &domain.DevListEntry{Kind: domain.ListAllow, Address: "Dev1", Note: "orig"}
	_ = store.Add(ctx, e)
	e.Note = "mutated"

	got, _ := store.List(ctx, domain.ListAllow)
	got[0].Note = "changed"

	again, _ := store.List(ctx, domain.ListAllow)
	if again[0].Note != "orig" {
		t.Errorf("store leaked mutation: %q", again[0].Note)
	}
}
