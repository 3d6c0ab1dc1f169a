package media

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/models"
	"github.com/dumeirei/agency-portal/internal/repository"
	"github.com/dumeirei/agency-portal/pkg/oss"
)

type uploadRecord struct {
	provider string
	ok       bool
	size     int64
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []uploadRecord
}

func (r *fakeRecorder) RecordMediaUpload(provider string, ok bool, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, uploadRecord{provider, ok, size})
}

func setupService(t *testing.T) (*Service, *oss.MockUploader, *fakeRecorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.MediaFile{}))

	store := oss.NewMockUploader()
	rec := &fakeRecorder{}
	svc := NewService(repository.NewMediaRepository(db), store, Options{
		MaxUploadSize:  1 << 20,
		AllowedFolders: []string{"images", "documents"},
		Recorder:       rec,
		Now:            func() time.Time { return day },
	})
	return svc, store, rec
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestService_UploadImage(t *testing.T) {
	svc, store, rec := setupService(t)
	ctx := context.Background()
	data := pngBytes(t, 64, 32)
	uploadID := "3f1c2a8e-0b5e-4c1d-9a55-6f1e2d3c4b5a"

	file, err := svc.Upload(ctx, UploadRequest{
		UploadID:   uploadID,
		Name:       "Hero.PNG",
		Size:       int64(len(data)),
		Folder:     "images",
		UploadedBy: "admin",
		Body:       bytes.NewReader(data),
	})
	require.NoError(t, err)

	assert.Equal(t, TypeImage, file.Type)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, int64(len(data)), file.Size)
	assert.True(t, strings.HasPrefix(file.ObjectKey, "images/2026/01/10/"))
	assert.True(t, store.Has(file.ObjectKey))
	assert.Equal(t, file.URL, file.ThumbnailURL)
	w, h, ok := file.Dimensions()
	require.True(t, ok)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)

	p, err := svc.Progress(uploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, p.Status)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, int64(len(data)), p.Received)
	assert.Equal(t, file.ID, p.FileID)

	res, err := svc.List(ctx, Query{Folder: "images"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, file.ID, res.Items[0].ID)

	require.Len(t, rec.records, 1)
	assert.Equal(t, uploadRecord{oss.ProviderMock, true, int64(len(data))}, rec.records[0])
}

func TestService_UploadValidation(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadRequest{Name: "a.pdf", Folder: "secret", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, errors.ErrMediaFolder))

	_, err = svc.Upload(ctx, UploadRequest{Name: "", Folder: "documents", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.Upload(ctx, UploadRequest{Name: "big.pdf", Size: 2 << 20, Folder: "documents", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, errors.ErrMediaTooLarge))

	// 声明大小不可信时按实际读取字节判断
	_, err = svc.Upload(ctx, UploadRequest{Name: "big.pdf", Size: 10, Folder: "documents", Body: bytes.NewReader(make([]byte, 2<<20))})
	assert.True(t, errors.Is(err, errors.ErrMediaTooLarge))
	assert.Empty(t, store.Files)
}

func TestService_UploadStorageFailure(t *testing.T) {
	svc, store, rec := setupService(t)
	store.FailUpload = stderrors.New("bucket unavailable")
	uploadID := "9d7e4b2a-1c3f-4e5d-8a6b-7c8d9e0f1a2b"

	_, err := svc.Upload(context.Background(), UploadRequest{
		UploadID: uploadID,
		Name:     "brief.pdf",
		Size:     4,
		Folder:   "documents",
		Body:     strings.NewReader("%PDF"),
	})
	assert.True(t, errors.Is(err, errors.ErrMediaUploadFail))

	p, err := svc.Progress(uploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
	assert.NotEmpty(t, p.Error)
	require.Len(t, rec.records, 1)
	assert.False(t, rec.records[0].ok)

	res, err := svc.List(context.Background(), Query{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestService_DeleteAndFolders(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	file, err := svc.Upload(ctx, UploadRequest{Name: "brief.pdf", Size: 4, Folder: "documents", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, TypeDocument, file.Type)
	assert.Empty(t, file.ThumbnailURL)

	folders, err := svc.Folders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Folder{{Name: "images"}, {Name: "documents", Count: 1, Size: 4}}, folders)

	require.NoError(t, svc.Delete(ctx, file.ID))
	assert.False(t, store.Has(file.ObjectKey))
	assert.True(t, errors.Is(svc.Delete(ctx, file.ID), errors.ErrMediaNotFound))
}

func TestService_ProgressUnknown(t *testing.T) {
	svc, _, _ := setupService(t)
	_, err := svc.Progress("nope")
	assert.True(t, errors.Is(err, errors.ErrUploadNotTracked))
}

func TestTracker_ProgressAndPurge(t *testing.T) {
	now := day
	tr := NewTracker(func() time.Time { return now })

	r := tr.Begin("u1", "a.bin", 10, strings.NewReader("0123456789"))
	buf := make([]byte, 4)
	_, err := r.Read(buf)
	require.NoError(t, err)

	p, ok := tr.Get("u1")
	require.True(t, ok)
	assert.Equal(t, int64(4), p.Received)
	assert.Equal(t, 40, p.Percent)
	assert.Equal(t, StatusUploading, p.Status)

	tr.Begin("u2", "b.bin", 1, strings.NewReader("x"))
	tr.Finish("u2", "file-2")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, tr.Purge(10*time.Minute))
	_, ok = tr.Get("u2")
	assert.False(t, ok)
	// 进行中的上传不会被清理
	_, ok = tr.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, 1, tr.Len())
}

func TestService_ReceiveCountsRequestBody(t *testing.T) {
	svc, _, _ := setupService(t)
	uploadID := "5b0e2c4d-6f7a-4b8c-9d0e-1f2a3b4c5d6e"

	raw := strings.NewReader("--boundary\r\n%PDF-1.4\r\n--boundary--")
	body := svc.Receive(uploadID, int64(raw.Len()), raw)
	buf := make([]byte, 10)
	_, err := body.Read(buf)
	require.NoError(t, err)

	p, err := svc.Progress(uploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusUploading, p.Status)
	assert.Equal(t, int64(10), p.Received)
	assert.Empty(t, p.Name)

	file, err := svc.Upload(context.Background(), UploadRequest{
		UploadID: uploadID,
		Name:     "brief.pdf",
		Folder:   "documents",
		Body:     strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)

	p, err = svc.Progress(uploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, p.Status)
	assert.Equal(t, "brief.pdf", p.Name)
	assert.Equal(t, int64(10), p.Received)
	assert.Equal(t, file.ID, p.FileID)

	// 非法 ID 不跟踪
	plain := strings.NewReader("x")
	assert.Same(t, plain, svc.Receive("not-a-uuid", 1, plain))
}

func TestService_RejectedUploadEndsTracking(t *testing.T) {
	svc, _, _ := setupService(t)
	uploadID := "7c1d3e5f-8a9b-4c0d-9e1f-2a3b4c5d6e7f"
	svc.Receive(uploadID, 100, strings.NewReader("x"))

	_, err := svc.Upload(context.Background(), UploadRequest{
		UploadID: uploadID, Name: "a.pdf", Folder: "secret", Body: strings.NewReader("x"),
	})
	assert.True(t, errors.Is(err, errors.ErrMediaFolder))

	p, err := svc.Progress(uploadID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
}
