package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/internal/storage"
)

func testStore(t *testing.T) *storage.LocalStore {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return store
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		blob     string
		expected docModel.DocType
	}{
		{"report.pdf", docModel.PDF},
		{"REPORT.PDF", docModel.PDF},
		{"notes.docx", docModel.DOCX},
		{"old.doc", docModel.DOCX},
		{"memo.rtf", docModel.DOCX},
		{"readme.txt", docModel.TXT},
		{"readme.md", docModel.TXT},
		{"data.csv", docModel.TXT},
		{"payload.json", docModel.JSON},
		{"image.png", docModel.ERR},
		{"noextension", docModel.ERR},
	}

	for _, tt := range tests {
		if got := DetectType(tt.blob); got != tt.expected {
			t.Errorf("DetectType(%s) = %v; want %v", tt.blob, got, tt.expected)
		}
	}
}

func TestPageAware(t *testing.T) {
	if !PageAware(docModel.PDF) || !PageAware(docModel.DOCX) {
		t.Error("PDF and DOCX carry page boundaries")
	}
	if PageAware(docModel.TXT) || PageAware(docModel.JSON) {
		t.Error("TXT and JSON have no pages")
	}
}

func TestExtractPlainText(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	ref := docModel.SourceReference{Container: "documents", Blob: "notes.txt"}

	if err := store.Put(ctx, ref, []byte("hello from a text file")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewFileExtractor(store, 0)
	doc, err := e.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if doc.FullText != "hello from a text file" {
		t.Errorf("Wrong text: %q", doc.FullText)
	}
	if doc.ContentType != docModel.TXT {
		t.Errorf("Wrong type: %v", doc.ContentType)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("Plain text has no pages, got %d", len(doc.Pages))
	}
}

func TestExtractJSONIsIndented(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	ref := docModel.SourceReference{Container: "documents", Blob: "payload.json"}

	if err := store.Put(ctx, ref, []byte(`{"name":"widget","qty":3}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewFileExtractor(store, 0)
	doc, err := e.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(doc.FullText, "\n") {
		t.Errorf("Expected indented JSON, got %q", doc.FullText)
	}
	if !strings.Contains(doc.FullText, `"name"`) {
		t.Errorf("Content lost during rendering: %q", doc.FullText)
	}
}

func TestExtractInvalidJSONFallsBackToRaw(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	ref := docModel.SourceReference{Container: "documents", Blob: "broken.json"}

	raw := `{"unterminated": `
	if err := store.Put(ctx, ref, []byte(raw)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewFileExtractor(store, 0)
	doc, err := e.Extract(ctx, ref)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if doc.FullText != raw {
		t.Errorf("Expected the raw bytes back, got %q", doc.FullText)
	}
}

func TestExtractMissingSource(t *testing.T) {
	store := testStore(t)

	e := NewFileExtractor(store, 0)
	_, err := e.Extract(context.Background(), docModel.SourceReference{Container: "documents", Blob: "ghost.txt"})

	if !errors.Is(err, docModel.ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
}

func TestExtractUnsupportedTypeIsSkipped(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	ref := docModel.SourceReference{Container: "documents", Blob: "image.png"}

	if err := store.Put(ctx, ref, []byte{0x89, 0x50, 0x4e, 0x47}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewFileExtractor(store, 0)
	_, err := e.Extract(ctx, ref)

	if !docModel.IsSkip(err) {
		t.Errorf("Expected a skip error, got %v", err)
	}
}

func TestExtractOversizedFileIsSkipped(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	ref := docModel.SourceReference{Container: "documents", Blob: "big.txt"}

	if err := store.Put(ctx, ref, []byte(strings.Repeat("x", 64))); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e := NewFileExtractor(store, 32)
	_, err := e.Extract(ctx, ref)

	if !docModel.IsSkip(err) {
		t.Errorf("Expected a skip error for an oversized file, got %v", err)
	}
}
