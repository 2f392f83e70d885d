package files

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// Reconciler sweeps the blob store for objects whose metadata record is
// gone. Delete removes the blob before the record, so a crash between the
// two steps only ever orphans blobs, never records.
type Reconciler struct {
	kv    storage.KVStore
	blobs storage.BlobStore
	log   *logrus.Logger
}

// NewReconciler creates a sweep over the given stores.
func NewReconciler(kv storage.KVStore, blobs storage.BlobStore, log *logrus.Logger) *Reconciler {
	return &Reconciler{kv: kv, blobs: blobs, log: log}
}

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	Scanned  int
	Orphaned int
	Deleted  int
	Errors   int
}

// Sweep lists every blob key, resolves its fileId from the key layout
// (org/company/user/fileId/name) and deletes blobs with no live record.
// Keys that do not match the layout are left alone.
func (r *Reconciler) Sweep(ctx context.Context) (*SweepReport, error) {
	keys, err := r.blobs.List(ctx, "")
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for _, key := range keys {
		report.Scanned++
		parts := strings.Split(key, "/")
		if len(parts) < 5 {
			continue
		}
		fileID := parts[3]

		item, err := r.kv.Get(ctx, models.FilePK(fileID), models.SKMeta)
		if err != nil {
			report.Errors++
			r.log.WithError(err).WithField("blobKey", key).Warn("record lookup failed, skipping")
			continue
		}
		if item != nil {
			continue
		}

		report.Orphaned++
		if err := r.blobs.Delete(ctx, key); err != nil {
			report.Errors++
			r.log.WithError(err).WithField("blobKey", key).Warn("orphan delete failed")
			continue
		}
		report.Deleted++
		r.log.WithFields(logrus.Fields{"blobKey": key, "fileId": fileID}).Info("deleted orphaned blob")
	}

	r.log.WithFields(logrus.Fields{
		"scanned":  report.Scanned,
		"orphaned": report.Orphaned,
		"deleted":  report.Deleted,
		"errors":   report.Errors,
	}).Info("blob sweep complete")
	return report, nil
}
