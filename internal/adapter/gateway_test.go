package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/adapter/memory"
)

func TestListDocuments_ExcludesBookkeepingFiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryAdapter()
	store.CreateFile(ctx, "f1", "Anna_CV.pdf", []byte("a"), adapter.PDFMimeType)
	store.CreateFile(ctx, "f1", "scores.pdf", []byte("x"), adapter.PDFMimeType)
	store.CreateFile(ctx, "f1", "notes.txt", []byte("n"), "text/plain")

	docs, err := adapter.ListDocuments(ctx, store, "f1", "scores.pdf")
	if err != nil {
		t.Fatalf("ListDocuments returned error: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "Anna_CV.pdf" {
		t.Errorf("Unexpected documents: %+v", docs)
	}
	if docs[0].WebViewLink == "" {
		t.Error("Expected web view link to be carried over")
	}
}

func TestUploadOrReplace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryAdapter()

	created, err := adapter.UploadOrReplace(ctx, store, "f1", "queue.txt", []byte("[]"), "text/plain", "")
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	replaced, err := adapter.UploadOrReplace(ctx, store, "f1", "queue.txt", []byte(`["a"]`), "text/plain", "")
	if err != nil {
		t.Fatalf("replace returned error: %v", err)
	}
	if replaced.ID != created.ID {
		t.Errorf("Expected same file to be replaced, got %s and %s", created.ID, replaced.ID)
	}

	files, _ := store.ListFiles(ctx, "f1", "")
	if len(files) != 1 {
		t.Errorf("Expected one file, got %d", len(files))
	}

	t.Run("stale version refused", func(t *testing.T) {
		_, err := adapter.UploadOrReplace(ctx, store, "f1", "queue.txt", []byte("[]"), "text/plain", created.ETag)
		if !errors.Is(err, adapter.ErrPreconditionFailed) {
			t.Errorf("Expected ErrPreconditionFailed, got %v", err)
		}
	})

	t.Run("current version accepted", func(t *testing.T) {
		if _, err := adapter.UploadOrReplace(ctx, store, "f1", "queue.txt", []byte("[]"), "text/plain", replaced.ETag); err != nil {
			t.Errorf("Expected success, got %v", err)
		}
	})

	t.Run("version against missing file", func(t *testing.T) {
		_, err := adapter.UploadOrReplace(ctx, store, "f1", "scores.csv", []byte(""), "text/csv", "abc")
		if !errors.Is(err, adapter.ErrPreconditionFailed) {
			t.Errorf("Expected ErrPreconditionFailed, got %v", err)
		}
	})
}

func TestCheckConflict(t *testing.T) {
	if adapter.CheckConflict("a", "a") {
		t.Error("Expected no conflict for equal versions")
	}
	if !adapter.CheckConflict("a", "b") {
		t.Error("Expected conflict for different versions")
	}
}
