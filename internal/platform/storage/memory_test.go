package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "recetas/abc.pdf", "application/pdf", []byte("%PDF-1.4 data")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := store.Get(ctx, "recetas/abc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "%PDF-1.4 data" {
		t.Errorf("unexpected content: %s", data)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "recetas/nope.pdf")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "recetas/abc.pdf", "application/pdf", []byte("data"))
	if err := store.Delete(ctx, "recetas/abc.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d objects", store.Len())
	}

	if err := store.Delete(ctx, "recetas/abc.pdf"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStore_SignedURL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "recetas/abc.pdf", "application/pdf", []byte("data"))
	url, err := store.SignedURL(ctx, "recetas/abc.pdf", 5*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "recetas/abc.pdf") {
		t.Errorf("expected key in url, got %s", url)
	}

	if _, err := store.SignedURL(ctx, "recetas/missing.pdf", 5*time.Minute); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStore_PutCopiesContent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("original")
	store.Put(ctx, "k", "application/pdf", buf)
	buf[0] = 'X'

	data, _ := store.Get(ctx, "k")
	if string(data) != "original" {
		t.Errorf("store should not alias caller buffer, got %s", data)
	}
}
