package store

import (
	"testing"
)

func newTestDocs(t *testing.T) *SQLiteDocs {
	t.Helper()
	d, err := OpenMemoryDocs()
	if err != nil {
		t.Fatalf("OpenMemoryDocs: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDocsPutGet(t *testing.T) {
	d := newTestDocs(t)

	if _, ok, err := d.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := d.Put("k", "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := d.Get("k")
	if err != nil || !ok || v != "v1" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want v1", v, ok, err)
	}

	// Put replaces.
	if err := d.Put("k", "v2"); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	v, _, _ = d.Get("k")
	if v != "v2" {
		t.Fatalf("Get after replace = %q, want v2", v)
	}
}

func TestDocsDelete(t *testing.T) {
	d := newTestDocs(t)

	if err := d.Put("k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := d.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := d.Get("k"); ok {
		t.Fatalf("Get after Delete: still present")
	}

	// Deleting an absent key is fine.
	if err := d.Delete("never-existed"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
