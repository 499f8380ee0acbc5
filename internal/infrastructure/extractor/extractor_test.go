package extractor

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

type storageFake struct {
	files map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[key] = raw
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.files[key])), nil
}

func TestExtractPlaintext(t *testing.T) {
	storage := &storageFake{files: map[string][]byte{
		"doc-1_policy.txt": []byte("  remote work is allowed two days per week\n"),
	}}
	e := New(storage)

	text, err := e.Extract(context.Background(), &domain.Document{
		Filename:    "policy.txt",
		StoragePath: "doc-1_policy.txt",
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "remote work is allowed two days per week" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsBinaryAsPlaintext(t *testing.T) {
	storage := &storageFake{files: map[string][]byte{
		"doc-1_image.bin": {0xff, 0xfe, 0x00, 0x80},
	}}
	e := New(storage)

	_, err := e.Extract(context.Background(), &domain.Document{
		Filename:    "image.bin",
		StoragePath: "doc-1_image.bin",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractBrokenPDFFails(t *testing.T) {
	storage := &storageFake{files: map[string][]byte{
		"doc-1_broken.pdf": []byte("%PDF-1.4 truncated"),
	}}
	e := New(storage)

	_, err := e.Extract(context.Background(), &domain.Document{
		Filename:    "broken.pdf",
		StoragePath: "doc-1_broken.pdf",
	})
	if err == nil {
		t.Fatalf("expected error for broken pdf")
	}
}
