package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

type repoFake struct {
	created       []*domain.Document
	byID          map[string]*domain.Document
	statusUpdates []string
	chunkCounts   map[string]int
	createErr     error
	updateErr     error
}

func newRepoFake() *repoFake {
	return &repoFake{
		byID:        map[string]*domain.Document{},
		chunkCounts: map[string]int{},
	}
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.byID[doc.ID] = doc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statusUpdates = append(f.statusUpdates, string(status))
	if doc, ok := f.byID[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *repoFake) SetChunkCount(_ context.Context, id string, count int) error {
	f.chunkCounts[id] = count
	return nil
}

type storageFake struct {
	saved   map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func TestIngest_Upload(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}

	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "Leave Policy 2026.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if doc.Source != "Leave_Policy_2026.pdf" {
		t.Errorf("source = %q, want sanitized filename", doc.Source)
	}
	if doc.Type != "pdf" {
		t.Errorf("type = %q, want pdf", doc.Type)
	}
	if doc.Status != domain.StatusUploaded {
		t.Errorf("status = %q, want uploaded", doc.Status)
	}
	if len(storage.saved) != 1 {
		t.Errorf("saved objects = %d, want 1", len(storage.saved))
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Errorf("published = %v, want [%s]", queue.published, doc.ID)
	}
}

func TestIngest_StorageFailureAbortsBeforeRegistration(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	queue := &queueFake{}

	uc := NewIngestDocumentUseCase(repo, storage, queue)

	if _, err := uc.Upload(context.Background(), "a.txt", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected storage error")
	}
	if len(repo.created) != 0 {
		t.Errorf("document registered despite storage failure")
	}
	if len(queue.published) != 0 {
		t.Errorf("event published despite storage failure")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"policy handbook.pdf", "policy_handbook.pdf"},
		{"../../etc/passwd", "passwd"},
		{"résumé.txt", "r_sum_.txt"},
		{"", "document.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
