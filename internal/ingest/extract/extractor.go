package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/internal/storage"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

// Extractor turns a source reference into text. Everything downstream works
// on the result; the raw bytes never leave this package.
type Extractor interface {
	Extract(ctx context.Context, ref docModel.SourceReference) (docModel.ExtractedDocument, error)
}

type FileExtractor struct {
	store        storage.ObjectStore
	maxFileBytes int64
	logger       *logger_i.Logger
}

func NewFileExtractor(store storage.ObjectStore, maxFileBytes int64) *FileExtractor {
	return &FileExtractor{
		store:        store,
		maxFileBytes: maxFileBytes,
		logger:       logger_i.NewLogger("FileExtractor"),
	}
}

func (e *FileExtractor) Extract(ctx context.Context, ref docModel.SourceReference) (docModel.ExtractedDocument, error) {
	var doc docModel.ExtractedDocument

	path, size, err := e.store.Fetch(ctx, ref)
	if err != nil {
		return doc, err
	}
	if e.maxFileBytes > 0 && size > e.maxFileBytes {
		return doc, docModel.Skipf("file too large: %s (%dMB over %dMB limit)", ref, size>>20, e.maxFileBytes>>20)
	}

	doc.ContentType = DetectType(ref.Blob)
	e.logger.Debug("Extracting source", "ref", ref.String(), "type", doc.ContentType, "size", size)

	switch doc.ContentType {
	case docModel.PDF:
		pages, err := extractPDF(path)
		if err != nil {
			return doc, fmt.Errorf("pdf extraction: %w", err)
		}
		doc.Pages = pages
		doc.FullText = strings.Join(pages, "\n\n")

	case docModel.DOCX:
		pages, err := extractDocxTxtRtf(path)
		if err != nil {
			return doc, fmt.Errorf("docx extraction: %w", err)
		}
		doc.Pages = pages
		doc.FullText = strings.Join(pages, "\n\n")

	case docModel.TXT:
		raw, err := os.ReadFile(path)
		if err != nil {
			return doc, err
		}
		doc.FullText = string(raw)

	case docModel.JSON:
		text, err := renderJSON(path)
		if err != nil {
			return doc, fmt.Errorf("json extraction: %w", err)
		}
		doc.FullText = text

	default:
		return doc, docModel.Skipf("unsupported content type for %s", ref)
	}

	return doc, nil
}

// DetectType maps a blob name to its extraction strategy.
func DetectType(blobName string) docModel.DocType {
	switch strings.ToLower(filepath.Ext(blobName)) {
	case ".pdf":
		return docModel.PDF
	case ".docx", ".doc", ".rtf", ".odt":
		return docModel.DOCX
	case ".txt", ".md", ".csv":
		return docModel.TXT
	case ".json":
		return docModel.JSON
	default:
		return docModel.ERR
	}
}

// PageAware reports whether a type carries real page boundaries worth
// preserving during chunking.
func PageAware(t docModel.DocType) bool {
	return t == docModel.PDF || t == docModel.DOCX
}

// renderJSON re-renders a JSON blob as indented text so the chunker sees
// readable structure instead of a single minified line.
func renderJSON(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// not valid JSON - index the raw text rather than dropping the blob
		return string(raw), nil
	}
	return buf.String(), nil
}
