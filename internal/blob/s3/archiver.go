package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/tradecouncil/internal/domain"
)

// archiveBatchSize bounds how many predictions one archive run pulls from
// the store per query.
const archiveBatchSize = 1000

// PredictionArchiveStore provides the read access the archiver needs. The
// Postgres prediction store satisfies it implicitly.
type PredictionArchiveStore interface {
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Prediction, error)
}

// ArchiveImpl implements domain.Archiver by querying resolved predictions
// older than the cutoff, serializing them to JSONL, and uploading the result
// to object storage.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here; the ledger is append-only and archives are a cold copy
// for analytics, not a purge.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	predictions PredictionArchiveStore
	audit       domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, predictions PredictionArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		predictions: predictions,
		audit:       audit,
	}
}

// ArchivePredictions queries resolved predictions before the cutoff,
// serializes them to JSONL, and uploads the file to
// archive/predictions/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchivePredictions(ctx context.Context, before time.Time) (int64, error) {
	batch, err := a.predictions.ListResolvedBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions query: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions marshal: %w", err)
	}

	path := archivePath("predictions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions upload: %w", err)
	}

	count := int64(len(batch))

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.predictions", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive predictions audit log: %w", err)
		}
	}

	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time:
//
//	archive/predictions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
