package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/core/ports"
)

// Extractor pulls plain text out of stored source documents. Format is
// picked by file extension: PDF and XLSX get dedicated readers, everything
// else must be valid UTF-8 text.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return extractPDF(raw)
	case ".xlsx":
		return extractXLSX(raw)
	default:
		return extractPlaintext(raw, doc.Filename)
	}
}

func extractPlaintext(raw []byte, filename string) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported binary format: %s", filename))
	}
	return strings.TrimSpace(string(raw)), nil
}
