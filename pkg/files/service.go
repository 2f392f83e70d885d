// Package files owns blob storage, file metadata, extraction of indexable
// text, and the multi-scope visibility queries behind file listings.
package files

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// textCacheSize bounds the in-process extracted-text cache.
const textCacheSize = 256

// Service implements the upload pipeline and scoped file queries.
type Service struct {
	kv        storage.KVStore
	blobs     storage.BlobStore
	log       *logrus.Logger
	textCache *lru.Cache[string, string]
}

// NewService creates the file service over the given stores.
func NewService(kv storage.KVStore, blobs storage.BlobStore, log *logrus.Logger) *Service {
	cache, _ := lru.New[string, string](textCacheSize)
	return &Service{kv: kv, blobs: blobs, log: log, textCache: cache}
}

// UploadInput carries the decoded upload request.
type UploadInput struct {
	FileName    string
	FileType    string
	MimeType    string
	DataBase64  string
	Actor       models.Actor
	Visibility  models.Visibility
	Category    models.Category
	Description string
}

// UploadResult is the caller-visible outcome of an upload.
type UploadResult struct {
	FileID     string            `json:"fileId"`
	FileName   string            `json:"fileName"`
	Status     models.FileStatus `json:"status"`
	UploadedAt string            `json:"uploadedAt"`
}

// orDefault substitutes the literal "default" for missing scope parts so
// blob keys always have four path segments before the file name.
func orDefault(s string) string {
	if s == "" {
		return "default"
	}
	return s
}

// BlobKey composes the blob key for a file: org/company/user/fileId/name.
func BlobKey(scope models.Scope, userID, fileID, fileName string) string {
	return strings.Join([]string{
		orDefault(scope.OrganizationID),
		orDefault(scope.CompanyID),
		userID,
		fileID,
		fileName,
	}, "/")
}

// Upload validates, stores the blob, extracts indexable text inline and
// writes the metadata record with its index projections.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.FileName == "" {
		return nil, apperrors.Validation("fileName is required")
	}
	if !models.SupportedFileTypes[in.FileType] {
		return nil, apperrors.UnsupportedFileType(in.FileType)
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPrivate
	}
	if !models.VisibilityAllowed(in.Actor.Role, in.Visibility) {
		return nil, apperrors.ForbiddenVisibility(string(in.Visibility))
	}
	if in.Category == "" {
		in.Category = models.CategoryRAGSource
	}

	data, err := base64.StdEncoding.DecodeString(in.DataBase64)
	if err != nil {
		return nil, apperrors.Validation("fileData is not valid base64")
	}

	fileID := uuid.NewString()
	blobKey := BlobKey(in.Actor.Scope, in.Actor.UserID, fileID, in.FileName)
	if err := s.blobs.Put(ctx, blobKey, data, in.MimeType); err != nil {
		return nil, apperrors.Storage("blob put", err)
	}

	record := &models.FileRecord{
		FileID:        fileID,
		FileName:      in.FileName,
		FileType:      in.FileType,
		MimeType:      in.MimeType,
		BlobKey:       blobKey,
		UserID:        in.Actor.UserID,
		CreatedByRole: in.Actor.Role,
		Scope:         in.Actor.Scope,
		UploadedAt:    models.Now(),
		FileSize:      int64(len(data)),
		Status:        models.FileStatusReady,
		Visibility:    in.Visibility,
		Category:      in.Category,
		Description:   in.Description,
	}
	if record.Indexable() {
		record.ExtractedText = string(data)
	}

	item, err := record.Item()
	if err != nil {
		return nil, apperrors.Storage("record encode", err)
	}
	if err := s.kv.Put(ctx, item); err != nil {
		return nil, apperrors.Storage("record put", err)
	}

	s.log.WithFields(logrus.Fields{
		"fileId":     fileID,
		"fileType":   in.FileType,
		"visibility": record.Visibility,
		"size":       record.FileSize,
	}).Info("file uploaded")

	return &UploadResult{
		FileID:     fileID,
		FileName:   record.FileName,
		Status:     record.Status,
		UploadedAt: record.UploadedAt,
	}, nil
}

// List unions the owner, system, organization and company partitions,
// deduplicates by fileId, and applies the access predicate defensively
// before the optional category filter.
func (s *Service) List(ctx context.Context, actor models.Actor, category models.Category) ([]*models.FileRecord, error) {
	queries := []storage.QueryInput{
		{Index: models.IndexGSI1, PartitionKey: models.UserPK(actor.UserID), SortKeyPrefix: models.PrefixFile},
		{Index: models.IndexGSI2, PartitionKey: models.PartitionVisibilitySystem},
	}
	if actor.OrganizationID != "" {
		queries = append(queries, storage.QueryInput{
			Index: models.IndexGSI2, PartitionKey: models.OrgPartition(actor.OrganizationID),
		})
	}
	if actor.CompanyID != "" {
		queries = append(queries, storage.QueryInput{
			Index: models.IndexGSI2, PartitionKey: models.CompanyPartition(actor.CompanyID),
		})
	}

	seen := map[string]bool{}
	var out []*models.FileRecord
	for _, q := range queries {
		items, err := s.kv.Query(ctx, q)
		if err != nil {
			return nil, apperrors.Storage("file query", err)
		}
		for _, item := range items {
			record, err := models.FileFromItem(item)
			if err != nil {
				s.log.WithError(err).Warn("skipping undecodable file item")
				continue
			}
			if seen[record.FileID] {
				continue
			}
			seen[record.FileID] = true
			// Stale index entries and department-only files can leak
			// through the owner path; the predicate is authoritative.
			if !models.CanAccessFile(record, actor) {
				continue
			}
			if category != "" && record.Category != category {
				continue
			}
			out = append(out, record)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt > out[j].UploadedAt })
	return out, nil
}

// Get returns a file the actor can access; inaccessible files read as
// missing so private ids cannot be probed.
func (s *Service) Get(ctx context.Context, fileID string, actor models.Actor) (*models.FileRecord, error) {
	record, err := s.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !models.CanAccessFile(record, actor) {
		return nil, apperrors.NotFound("file", fileID)
	}
	return record, nil
}

// fetch reads the raw record without access control.
func (s *Service) fetch(ctx context.Context, fileID string) (*models.FileRecord, error) {
	item, err := s.kv.Get(ctx, models.FilePK(fileID), models.SKMeta)
	if err != nil {
		return nil, apperrors.Storage("file get", err)
	}
	if item == nil {
		return nil, apperrors.NotFound("file", fileID)
	}
	return models.FileFromItem(item)
}

// UpdateVisibility relabels a file and rewrites its GSI2 projection in the
// same single-item update, so the record atomically enters or leaves the
// tenant-wide listings.
func (s *Service) UpdateVisibility(ctx context.Context, fileID string, actor models.Actor, visibility models.Visibility) (*models.FileRecord, error) {
	record, err := s.fetch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !models.CanManageFile(record, actor) {
		return nil, apperrors.ForbiddenScope("only the owner or a system admin may change visibility")
	}
	if !models.VisibilityAllowed(actor.Role, visibility) {
		return nil, apperrors.ForbiddenVisibility(string(visibility))
	}

	update := storage.UpdateInput{
		PK:  models.FilePK(fileID),
		SK:  models.SKMeta,
		Set: map[string]interface{}{"visibility": string(visibility)},
	}
	if pk := models.FileGSI2Partition(visibility, record.Scope); pk != "" {
		update.Set[models.AttrGSI2PK] = pk
		update.Set[models.AttrGSI2SK] = models.PrefixFile + record.UploadedAt
	} else {
		update.Remove = []string{models.AttrGSI2PK, models.AttrGSI2SK}
	}
	if err := s.kv.Update(ctx, update); err != nil {
		return nil, apperrors.Storage("visibility update", err)
	}

	record.Visibility = visibility
	return record, nil
}

// Delete removes the blob first, then the record. A blob failure aborts
// and leaves the record; a record failure after blob success orphans the
// blob, which the reconciler sweep cleans up. An already-missing blob is
// treated as deleted so retries converge.
func (s *Service) Delete(ctx context.Context, fileID string, actor models.Actor) error {
	record, err := s.fetch(ctx, fileID)
	if err != nil {
		return err
	}
	if !models.CanManageFile(record, actor) {
		return apperrors.ForbiddenScope("only the owner or a system admin may delete")
	}
	if err := s.blobs.Delete(ctx, record.BlobKey); err != nil && !storage.IsNotFound(err) {
		return apperrors.Storage("blob delete", err)
	}
	if err := s.kv.BatchDelete(ctx, []storage.Key{{PK: models.FilePK(fileID), SK: models.SKMeta}}); err != nil {
		s.log.WithError(err).WithField("fileId", fileID).Error("record delete failed after blob delete; blob key is orphaned")
		return apperrors.Storage("record delete", err)
	}
	s.textCache.Remove(fileID)
	return nil
}

// Text returns the file's indexable content: the inline extraction when
// present, otherwise the blob bytes decoded as UTF-8. Results are cached.
func (s *Service) Text(ctx context.Context, record *models.FileRecord) (string, error) {
	if record.ExtractedText != "" {
		return record.ExtractedText, nil
	}
	if text, ok := s.textCache.Get(record.FileID); ok {
		return text, nil
	}
	data, err := s.blobs.Get(ctx, record.BlobKey)
	if err != nil {
		return "", apperrors.Storage("blob get", err)
	}
	text := string(data)
	s.textCache.Add(record.FileID, text)
	return text, nil
}

// TextForActor fetches a file's text iff the actor may read it.
func (s *Service) TextForActor(ctx context.Context, fileID string, actor models.Actor) (string, error) {
	record, err := s.Get(ctx, fileID, actor)
	if err != nil {
		return "", err
	}
	return s.Text(ctx, record)
}
