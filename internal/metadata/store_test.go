package metadata_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"fileslink/internal/metadata"
	"fileslink/internal/services"
)

func sampleArtifact(id, name string, uploadedAt int64) metadata.Artifact {
	return metadata.Artifact{
		UniqueID:       id,
		TelegramFileID: "BQACAgIAAx0-" + id,
		FileName:       name,
		MimeType:       "application/pdf",
		FileSize:       2048,
		UploadedAt:     uploadedAt,
		MessageID:      77,
	}
}

func TestPutThenReloadReturnsEqualRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mappings.json")
	store := metadata.New(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load on fresh start: %v", err)
	}

	want := sampleArtifact("ZvOWMhv1", "My File Name.pdf", 1700000000)
	if err := store.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reloaded := metadata.New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := reloaded.Get(want.UniqueID)
	if !ok {
		t.Fatal("expected record after reload")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded record mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestMirrorDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mappings.json")
	store := metadata.New(path)
	legacy := sampleArtifact("abcdefgh", "old.bin", 1)
	legacy.MessageID = 0
	legacy.MimeType = ""
	if err := store.Put(legacy); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	var doc map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode mirror: %v", err)
	}
	record, ok := doc["files"]["abcdefgh"]
	if !ok {
		t.Fatalf("expected files.abcdefgh in %s", data)
	}
	if _, present := record["message_id"]; present {
		t.Fatalf("expected message_id to be omitted for legacy record: %s", data)
	}
	if record["telegram_file_id"] != "BQACAgIAAx0-abcdefgh" {
		t.Fatalf("unexpected telegram_file_id: %v", record["telegram_file_id"])
	}
}

func TestLoadAcceptsLegacyNullMimeType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mappings.json")
	legacy := `{
  "files": {
    "Ab3_x-9Q": {
      "unique_id": "Ab3_x-9Q",
      "telegram_file_id": "AgAD",
      "file_name": "photo_Ab3_x-9Q.jpg",
      "mime_type": null,
      "file_size": 512,
      "uploaded_at": 1690000000
    }
  }
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	store := metadata.New(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := store.Get("Ab3_x-9Q")
	if !ok {
		t.Fatal("expected legacy record")
	}
	if got.MimeType != "" || got.HasProxyCoordinates() {
		t.Fatalf("unexpected legacy decode: %#v", got)
	}
}

func TestLoadRejectsCorruptMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_mappings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := metadata.New(path).Load()
	if !errors.Is(err, services.ErrStorageCommit) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file_mappings.json")
	store := metadata.New(path)
	first := sampleArtifact("11111111", "first.txt", 10)
	if err := store.Put(first); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Replace the mirror with a non-empty directory so the rename fails.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := store.Put(sampleArtifact("22222222", "second.txt", 20))
	if !errors.Is(err, services.ErrStorageCommit) {
		t.Fatalf("expected storage commit error, got %v", err)
	}
	if _, ok := store.Get("22222222"); ok {
		t.Fatal("failed put must not be visible")
	}
	if err := store.Delete("11111111"); !errors.Is(err, services.ErrStorageCommit) {
		t.Fatalf("expected storage commit error on delete, got %v", err)
	}
	if _, ok := store.Get("11111111"); !ok {
		t.Fatal("failed delete must keep the record")
	}
	if _, err := store.Rename("11111111", "renamed.txt"); err == nil {
		t.Fatal("expected rename to fail")
	}
	if got, _ := store.Get("11111111"); got.FileName != "first.txt" {
		t.Fatalf("failed rename must keep the name, got %q", got.FileName)
	}
}

func TestRenameAndDelete(t *testing.T) {
	store := metadata.New(filepath.Join(t.TempDir(), "m.json"))
	if err := store.Put(sampleArtifact("aaaaaaaa", "a.txt", 1)); err != nil {
		t.Fatal(err)
	}

	updated, err := store.Rename("aaaaaaaa", "  b.txt ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if updated.FileName != "b.txt" || updated.FileSize != 2048 || updated.TelegramFileID != "BQACAgIAAx0-aaaaaaaa" {
		t.Fatalf("rename must only change the name: %#v", updated)
	}
	if _, err := store.Rename("missing1", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Rename("aaaaaaaa", " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := store.Delete("aaaaaaaa"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
	if err := store.Delete("aaaaaaaa"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListOrderedByUploadTime(t *testing.T) {
	store := metadata.New(filepath.Join(t.TempDir(), "m.json"))
	for _, a := range []metadata.Artifact{
		sampleArtifact("cccccccc", "c", 30),
		sampleArtifact("aaaaaaaa", "a", 10),
		sampleArtifact("bbbbbbbb", "b", 20),
	} {
		if err := store.Put(a); err != nil {
			t.Fatal(err)
		}
	}
	var ids []string
	for _, a := range store.List() {
		ids = append(ids, a.UniqueID)
	}
	if !reflect.DeepEqual(ids, []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}) {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	store := metadata.New(filepath.Join(t.TempDir(), "m.json"))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i)) + "0000000"
			if err := store.Put(sampleArtifact(id, id, int64(i))); err != nil {
				t.Errorf("Put %s: %v", id, err)
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.List()
			_, _ = store.Get("a0000000")
		}()
	}
	wg.Wait()
	if store.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", store.Len())
	}
}
