package document

import (
	"context"
	"errors"
)

// =============================================================================
// STORAGE - whole-document persistence consumed by the payroll core
// =============================================================================

// Storage downloads, overwrites and copies whole documents.
//
// There is no partial write and no locking: two callers that download the
// same document, mutate it and upload it race, and the last upload wins.
type Storage interface {
	// DownloadDocument fails with ErrDocumentNotFound or ErrStorageUnavailable.
	DownloadDocument(ctx context.Context, documentID string) (*Document, error)

	// UploadDocument overwrites the stored document.
	UploadDocument(ctx context.Context, documentID string, doc *Document) error

	// CopyDocument copies the persisted document under backupID.
	// Callers treat failures as non-fatal.
	CopyDocument(ctx context.Context, documentID, backupID string) error
}

// BlobStore is the raw byte-level backend (remote file host, database, memory).
type BlobStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Copy(ctx context.Context, srcID, dstID string) error
}

// BlobStorage adapts a BlobStore and a Codec to Storage.
type BlobStorage struct {
	Blobs BlobStore
	Codec Codec
}

// NewBlobStorage uses the XLSX codec.
func NewBlobStorage(blobs BlobStore) *BlobStorage {
	return &BlobStorage{Blobs: blobs, Codec: XLSX{}}
}

var _ Storage = (*BlobStorage)(nil)

func (s *BlobStorage) DownloadDocument(ctx context.Context, documentID string) (*Document, error) {
	data, err := s.Blobs.Get(ctx, documentID)
	if err != nil {
		return nil, classify("download", documentID, err)
	}
	return s.Codec.Decode(data)
}

func (s *BlobStorage) UploadDocument(ctx context.Context, documentID string, doc *Document) error {
	data, err := s.Codec.Encode(doc)
	if err != nil {
		return err
	}
	if err := s.Blobs.Put(ctx, documentID, data); err != nil {
		return classify("upload", documentID, err)
	}
	return nil
}

func (s *BlobStorage) CopyDocument(ctx context.Context, documentID, backupID string) error {
	if err := s.Blobs.Copy(ctx, documentID, backupID); err != nil {
		return classify("copy", documentID, err)
	}
	return nil
}

// classify keeps not-found and already-classified errors, and turns anything
// else into a StorageError.
func classify(op, id string, err error) error {
	if errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return &StorageError{Op: op, DocumentID: id, Err: err}
}
