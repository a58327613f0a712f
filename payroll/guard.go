/*
guard.go - Validate-before-write / backup / validate-after-write protocol

PURPOSE:
  Every mutation of a company document goes through Guard.Mutate. The
  guard prevents accidental destructive overwrites, such as uploading a
  document that lost its master table. It is NOT a transaction and does
  not prevent lost updates between concurrent writers.

PROTOCOL:
  1. Download the current document (always fresh, never cached).
  2. Pre-validate: master table exists and has >= 1 data row.
     Registration into the master table only needs the table to exist.
     Failure: ErrCorruptDocument, nothing written.
  3. Apply the mutation to a clone.
  4. Post-validate: master row count did not decrease; the target table
     exists and its row count moved by exactly Mutation.Delta.
     Failure: ErrIntegrityViolation, nothing written.
  5. Backup: copy the persisted document under a timestamped id.
     Best effort; a failed copy is logged and the write continues.
  6. Commit: upload the clone.

CONCURRENCY:
  Whole-document read-modify-write with no locking. Two writers racing on
  the same document: the last upload wins. If stronger guarantees are ever
  needed, the upgrade path is an expected-row-count token checked by the
  storage on upload, not a lock over the blob store.

SEE ALSO:
  - snapshot_store.go, ledger.go, registry.go: the only callers of Mutate
  - document/storage.go: Storage interface
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/document"
	"github.com/warp/payroll-engine/logctx"
	"go.uber.org/zap"
)

// Mutation is one table-level change to a document.
type Mutation struct {
	// Table is the table the mutation targets.
	Table string
	// Delta is the expected row-count change of Table (+1 append, -1 delete).
	Delta int
	// Apply mutates the document clone. It may create Table.
	Apply func(doc *document.Document) error
}

// Guard wraps a Storage with the integrity protocol.
type Guard struct {
	storage document.Storage
	logger  *zap.Logger
	now     func() time.Time
}

func NewGuard(storage document.Storage, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{storage: storage, logger: logger, now: time.Now}
}

// Load downloads the current document for a read-only operation.
func (g *Guard) Load(ctx context.Context, documentID string) (*document.Document, error) {
	return g.storage.DownloadDocument(ctx, documentID)
}

// Initialize creates an empty company document holding only the master
// table header. An existing document is left untouched.
func (g *Guard) Initialize(ctx context.Context, documentID string) (bool, error) {
	_, err := g.storage.DownloadDocument(ctx, documentID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, document.ErrDocumentNotFound) {
		return false, err
	}
	doc := document.New()
	doc.EnsureTable(MasterTable, MasterColumns)
	if err := g.storage.UploadDocument(ctx, documentID, doc); err != nil {
		return false, err
	}
	logctx.From(ctx, g.logger).Info("document initialized", zap.String("document", documentID))
	return true, nil
}

// Mutate runs the protocol and returns the committed document.
func (g *Guard) Mutate(ctx context.Context, documentID string, m Mutation) (*document.Document, error) {
	log := logctx.From(ctx, g.logger).With(
		zap.String("document", documentID),
		zap.String("table", m.Table),
	)

	current, err := g.storage.DownloadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := g.preValidate(documentID, current, m.Table == MasterTable); err != nil {
		log.Warn("write rejected before apply", zap.Error(err))
		return nil, err
	}

	masterBefore := current.RowCount(MasterTable)
	before := current.RowCount(m.Table)

	next := current.Clone()
	if err := m.Apply(next); err != nil {
		return nil, err
	}

	if err := g.postValidate(documentID, next, m, masterBefore, before); err != nil {
		log.Error("write aborted by post-validation", zap.Error(err))
		return nil, err
	}

	g.backup(ctx, log, documentID)

	if err := g.storage.UploadDocument(ctx, documentID, next); err != nil {
		log.Error("upload failed", zap.Error(err))
		return nil, err
	}
	log.Info("document committed", zap.Int("rows", next.RowCount(m.Table)))
	return next, nil
}

func (g *Guard) preValidate(documentID string, doc *document.Document, allowEmptyMaster bool) error {
	if !doc.HasTable(MasterTable) {
		return &IntegrityError{Phase: "pre", DocumentID: documentID, Table: MasterTable, Reason: "master table missing"}
	}
	if !allowEmptyMaster && doc.RowCount(MasterTable) < 1 {
		return &IntegrityError{Phase: "pre", DocumentID: documentID, Table: MasterTable, Reason: "master table has no data rows"}
	}
	return nil
}

func (g *Guard) postValidate(documentID string, doc *document.Document, m Mutation, masterBefore, before int) error {
	if !doc.HasTable(MasterTable) {
		return &IntegrityError{Phase: "post", DocumentID: documentID, Table: MasterTable,
			Reason: "master table dropped", Before: masterBefore}
	}
	if after := doc.RowCount(MasterTable); after < masterBefore {
		return &IntegrityError{Phase: "post", DocumentID: documentID, Table: MasterTable,
			Reason: "master rows lost", Before: masterBefore, After: after}
	}
	if !doc.HasTable(m.Table) {
		return &IntegrityError{Phase: "post", DocumentID: documentID, Table: m.Table,
			Reason: "target table missing", Before: before}
	}
	if after := doc.RowCount(m.Table); after != before+m.Delta {
		return &IntegrityError{Phase: "post", DocumentID: documentID, Table: m.Table,
			Reason: fmt.Sprintf("expected row delta %+d", m.Delta), Before: before, After: after}
	}
	return nil
}

func (g *Guard) backup(ctx context.Context, log *zap.Logger, documentID string) {
	backupID := BackupID(documentID, g.now())
	if err := g.storage.CopyDocument(ctx, documentID, backupID); err != nil {
		log.Warn("backup failed, continuing", zap.String("backup", backupID), zap.Error(err))
		return
	}
	log.Debug("backup written", zap.String("backup", backupID))
}

// BackupID names a backup copy: <document>.backup-<UTC timestamp>-<8 hex>.
// The random suffix keeps two backups taken in the same second apart.
func BackupID(documentID string, at time.Time) string {
	return fmt.Sprintf("%s.backup-%s-%s", documentID, at.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}
