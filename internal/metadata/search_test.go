package metadata_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"fileslink/internal/metadata"
)

func populated(t *testing.T, n int) *metadata.Store {
	t.Helper()
	store := metadata.New(filepath.Join(t.TempDir(), "m.json"))
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("id%06d", i)
		if err := store.Put(sampleArtifact(id, fmt.Sprintf("Report %02d.PDF", i), int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestSearchIsCaseInsensitiveNewestFirst(t *testing.T) {
	store := populated(t, 15)
	matches := store.Search("report", 10)
	if len(matches) != 10 {
		t.Fatalf("expected 10 matches, got %d", len(matches))
	}
	if matches[0].UniqueID != "id000015" {
		t.Fatalf("expected newest first, got %s", matches[0].UniqueID)
	}
	if got := store.Search("REPORT 03", 10); len(got) != 1 || got[0].UniqueID != "id000003" {
		t.Fatalf("unexpected single match %#v", got)
	}
	if got := store.Search("   ", 10); got != nil {
		t.Fatalf("expected nil for blank query, got %#v", got)
	}
}

func TestPaginateClampsPageNumber(t *testing.T) {
	store := populated(t, 23)

	page := store.Paginate(1, 10)
	if page.TotalPages != 3 || page.Total != 23 || len(page.Items) != 10 {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Items[0].UniqueID != "id000023" {
		t.Fatalf("expected newest first, got %s", page.Items[0].UniqueID)
	}

	last := store.Paginate(99, 10)
	if last.Number != 3 || len(last.Items) != 3 || last.Items[2].UniqueID != "id000001" {
		t.Fatalf("unexpected clamped last page %+v", last)
	}

	empty := metadata.New(filepath.Join(t.TempDir(), "e.json")).Paginate(0, 10)
	if empty.Number != 1 || empty.TotalPages != 1 || len(empty.Items) != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}
