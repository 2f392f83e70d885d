package files

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T) (*Service, *storage.MemoryKV, *storage.MemoryBlob) {
	t.Helper()
	kv := storage.NewMemoryKV()
	blobs := storage.NewMemoryBlob()
	return NewService(kv, blobs, testLogger()), kv, blobs
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

var (
	companyAdmin = models.Actor{
		UserID: "admin-1",
		Role:   models.RoleCompanyAdmin,
		Scope:  models.Scope{OrganizationID: "org-1", CompanyID: "c-1"},
	}
	plainUser = models.Actor{
		UserID: "user-1",
		Role:   models.RoleUser,
		Scope:  models.Scope{OrganizationID: "org-1", CompanyID: "c-1", DepartmentID: "d-1"},
	}
	otherCompanyUser = models.Actor{
		UserID: "user-2",
		Role:   models.RoleUser,
		Scope:  models.Scope{OrganizationID: "org-1", CompanyID: "c-2"},
	}
)

func TestUploadTextFile(t *testing.T) {
	svc, _, blobs := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName:   "note.txt",
		FileType:   "txt",
		MimeType:   "text/plain",
		DataBase64: b64("hello world"),
		Actor:      plainUser,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, "note.txt", result.FileName)
	assert.Equal(t, models.FileStatusReady, result.Status)

	record, err := svc.Get(ctx, result.FileID, plainUser)
	require.NoError(t, err)
	assert.Equal(t, "hello world", record.ExtractedText)
	assert.Equal(t, models.VisibilityPrivate, record.Visibility)
	assert.Equal(t, models.CategoryRAGSource, record.Category)
	assert.Equal(t, int64(11), record.FileSize)
	assert.Equal(t, "org-1/c-1/user-1/"+result.FileID+"/note.txt", record.BlobKey)

	data, err := blobs.Get(ctx, record.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
}

func TestUploadBlobKeyDefaults(t *testing.T) {
	key := BlobKey(models.Scope{}, "u1", "f1", "a.pdf")
	assert.Equal(t, "default/default/u1/f1/a.pdf", key)
}

func TestUploadValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("unsupported type", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadInput{FileName: "x.exe", FileType: "exe", DataBase64: b64("x"), Actor: plainUser})
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnsupportedFileType))
	})

	t.Run("forbidden visibility for role", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadInput{
			FileName: "x.txt", FileType: "txt", DataBase64: b64("x"),
			Actor: plainUser, Visibility: models.VisibilityCompany,
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenVisibility))
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadInput{FileName: "x.txt", FileType: "txt", DataBase64: "!!not base64!!", Actor: plainUser})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadInput{FileType: "txt", DataBase64: b64("x"), Actor: plainUser})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})
}

func TestListVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	shared, err := svc.Upload(ctx, UploadInput{
		FileName: "shared.txt", FileType: "txt", DataBase64: b64("shared"),
		Actor: companyAdmin, Visibility: models.VisibilityCompany,
	})
	require.NoError(t, err)

	_, err = svc.Upload(ctx, UploadInput{
		FileName: "mine.txt", FileType: "txt", DataBase64: b64("mine"),
		Actor: plainUser,
	})
	require.NoError(t, err)

	t.Run("same company sees shared plus own", func(t *testing.T) {
		list, err := svc.List(ctx, plainUser, "")
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, f := range list {
			assert.True(t, models.CanAccessFile(f, plainUser))
		}
	})

	t.Run("other company sees nothing", func(t *testing.T) {
		list, err := svc.List(ctx, otherCompanyUser, "")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("owner listing deduplicates projected files", func(t *testing.T) {
		list, err := svc.List(ctx, companyAdmin, "")
		require.NoError(t, err)
		ids := map[string]int{}
		for _, f := range list {
			ids[f.FileID]++
		}
		assert.Equal(t, 1, ids[shared.FileID])
	})

	t.Run("category filter", func(t *testing.T) {
		list, err := svc.List(ctx, plainUser, models.CategoryKnowledgeBase)
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = svc.List(ctx, plainUser, models.CategoryRAGSource)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestGetHidesInaccessibleFiles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName: "secret.txt", FileType: "txt", DataBase64: b64("secret"), Actor: plainUser,
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, result.FileID, otherCompanyUser)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.Get(ctx, "no-such-file", plainUser)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestUpdateVisibility(t *testing.T) {
	svc, kv, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName: "doc.txt", FileType: "txt", DataBase64: b64("doc"),
		Actor: companyAdmin, Visibility: models.VisibilityCompany,
	})
	require.NoError(t, err)

	t.Run("non-owner cannot relabel", func(t *testing.T) {
		_, err := svc.UpdateVisibility(ctx, result.FileID, plainUser, models.VisibilityPrivate)
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenScope))
	})

	t.Run("target visibility must be allowed for role", func(t *testing.T) {
		_, err := svc.UpdateVisibility(ctx, result.FileID, companyAdmin, models.VisibilitySystem)
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenVisibility))
	})

	t.Run("relabel to private drops the tenant projection", func(t *testing.T) {
		record, err := svc.UpdateVisibility(ctx, result.FileID, companyAdmin, models.VisibilityPrivate)
		require.NoError(t, err)
		assert.Equal(t, models.VisibilityPrivate, record.Visibility)

		item, err := kv.Get(ctx, models.FilePK(result.FileID), models.SKMeta)
		require.NoError(t, err)
		_, hasGSI2 := item[models.AttrGSI2PK]
		assert.False(t, hasGSI2)

		list, err := svc.List(ctx, plainUser, "")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("relabel back restores the projection", func(t *testing.T) {
		_, err := svc.UpdateVisibility(ctx, result.FileID, companyAdmin, models.VisibilityCompany)
		require.NoError(t, err)

		item, err := kv.Get(ctx, models.FilePK(result.FileID), models.SKMeta)
		require.NoError(t, err)
		assert.Equal(t, "COMPANY#c-1", item[models.AttrGSI2PK])
	})
}

func TestDelete(t *testing.T) {
	svc, _, blobs := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName: "gone.txt", FileType: "txt", DataBase64: b64("gone"), Actor: plainUser,
	})
	require.NoError(t, err)

	t.Run("non-owner cannot delete", func(t *testing.T) {
		err := svc.Delete(ctx, result.FileID, otherCompanyUser)
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenScope))
	})

	t.Run("owner delete removes blob and record", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, result.FileID, plainUser))

		keys, err := blobs.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)

		_, err = svc.Get(ctx, result.FileID, plainUser)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("second delete is not found", func(t *testing.T) {
		err := svc.Delete(ctx, result.FileID, plainUser)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})
}

// goneBlobStore reports every blob as already deleted.
type goneBlobStore struct {
	*storage.MemoryBlob
}

func (g *goneBlobStore) Delete(context.Context, string) error {
	return errors.New("NoSuchKey: the specified key does not exist")
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	kv := storage.NewMemoryKV()
	blobs := &goneBlobStore{storage.NewMemoryBlob()}
	svc := NewService(kv, blobs, testLogger())
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName: "gone.txt", FileType: "txt", DataBase64: b64("gone"), Actor: plainUser,
	})
	require.NoError(t, err)

	// A blob that vanished out of band does not block the record delete.
	require.NoError(t, svc.Delete(ctx, result.FileID, plainUser))
	_, err = svc.Get(ctx, result.FileID, plainUser)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestText(t *testing.T) {
	svc, _, blobs := newTestService(t)
	ctx := context.Background()

	t.Run("round trip through extraction", func(t *testing.T) {
		body := "line one\nline two\n"
		result, err := svc.Upload(ctx, UploadInput{
			FileName: "r.txt", FileType: "txt", DataBase64: b64(body), Actor: plainUser,
		})
		require.NoError(t, err)

		text, err := svc.TextForActor(ctx, result.FileID, plainUser)
		require.NoError(t, err)
		assert.Equal(t, body, text)
	})

	t.Run("falls back to blob for non-indexed types", func(t *testing.T) {
		result, err := svc.Upload(ctx, UploadInput{
			FileName: "r.pdf", FileType: "pdf", DataBase64: b64("%PDF-1.4 raw"), Actor: plainUser,
		})
		require.NoError(t, err)

		record, err := svc.Get(ctx, result.FileID, plainUser)
		require.NoError(t, err)
		assert.Empty(t, record.ExtractedText)

		text, err := svc.Text(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 raw", text)

		// Second read is served from the cache even if the blob vanishes.
		require.NoError(t, blobs.Delete(ctx, record.BlobKey))
		text, err = svc.Text(ctx, record)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 raw", text)
	})
}

func TestQueryCSV(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, UploadInput{
		FileName: "facts.csv", FileType: "csv",
		DataBase64: b64("name,age\nAlice,30\nBob,40"),
		Actor:      plainUser,
	})
	require.NoError(t, err)

	answer, err := svc.Query(ctx, result.FileID, plainUser, "how many rows?")
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "2")
	assert.Contains(t, answer.Answer, "name")
	assert.Contains(t, answer.Answer, "age")
	assert.Equal(t, "name,age", answer.SourceData)
}

func TestQueryTextPreview(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("あ", 1500)
	result, err := svc.Upload(ctx, UploadInput{
		FileName: "big.txt", FileType: "txt", DataBase64: b64(long), Actor: plainUser,
	})
	require.NoError(t, err)

	answer, err := svc.Query(ctx, result.FileID, plainUser, "")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("あ", 1000), answer.SourceData)
}
