package storage_test

import (
	"testing"
	"time"

	"github.com/mvndaai/filemeta/record"
	"github.com/mvndaai/filemeta/storage"
)

func sampleRecord(path, owner string) record.Record {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	return record.Record{
		System: record.NewSystem(path, path, "", 1, now, now, now),
		User:   record.Map{"owner": record.String(owner)},
	}
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := storage.NewMemoryBackend()
	if err := b.Save("/a", sampleRecord("/a", "alice")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := b.Load("/a")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.User["owner"].Str != "alice" {
		t.Fatalf("expected owner alice, got %+v", got.User)
	}
}

func TestMemoryBackendDeleteIsIdempotent(t *testing.T) {
	b := storage.NewMemoryBackend()
	if err := b.Delete("/missing"); err != nil {
		t.Fatalf("expected no error deleting missing path, got %v", err)
	}
}

func TestMemoryBackendLoadAllIsIndependentCopy(t *testing.T) {
	b := storage.NewMemoryBackend()
	_ = b.Save("/a", sampleRecord("/a", "alice"))

	for _, rec := range b.LoadAll() {
		rec.User["owner"] = record.String("mutated")
	}

	got, _, _ := b.Load("/a")
	if got.User["owner"].Str != "alice" {
		t.Fatal("LoadAll leaked a reference into backend storage")
	}
}
