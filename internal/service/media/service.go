package media

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/internal/common/logger"
	"github.com/dumeirei/agency-portal/internal/common/utils"
	"github.com/dumeirei/agency-portal/internal/models"
	"github.com/dumeirei/agency-portal/internal/repository"
	"github.com/dumeirei/agency-portal/pkg/oss"
)

// UploadRecorder 上传指标，*metrics.Metrics 满足该接口
type UploadRecorder interface {
	RecordMediaUpload(provider string, ok bool, size int64)
}

// Options 媒体服务参数
type Options struct {
	MaxUploadSize  int64
	AllowedFolders []string
	Logger         *zap.Logger
	Recorder       UploadRecorder
	Now            func() time.Time
}

// Service 媒体库服务
type Service struct {
	repo    *repository.MediaRepository
	store   oss.Uploader
	tracker *Tracker
	opts    Options
	log     *zap.Logger
}

// NewService 创建媒体库服务
func NewService(repo *repository.MediaRepository, store oss.Uploader, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 50 << 20
	}
	if len(opts.AllowedFolders) == 0 {
		opts.AllowedFolders = []string{"images", "videos", "documents"}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		store:   store,
		tracker: NewTracker(opts.Now),
		opts:    opts,
		log:     log,
	}
}

// Tracker 上传进度跟踪器
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// List 读取媒体目录后执行检索管线
func (s *Service) List(ctx context.Context, q Query) (*Result, error) {
	files, err := s.repo.ListAll(ctx, strings.TrimSpace(q.Folder))
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	res := Apply(files, q)
	return &res, nil
}

// Folder 目录信息
type Folder struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Size  int64  `json:"size"`
}

// Folders 列出允许的目录及文件数，空目录也会列出
func (s *Service) Folders(ctx context.Context) ([]Folder, error) {
	counts, err := s.repo.CountByFolder(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	byName := make(map[string]repository.FolderCount, len(counts))
	for _, c := range counts {
		byName[c.Folder] = c
	}

	out := make([]Folder, 0, len(s.opts.AllowedFolders))
	for _, name := range s.opts.AllowedFolders {
		c := byName[name]
		out = append(out, Folder{Name: name, Count: c.Count, Size: c.Size})
	}
	return out, nil
}

// UploadRequest 上传请求
type UploadRequest struct {
	// UploadID 由客户端预先生成以便轮询进度，为空时自动生成
	UploadID   string
	Name       string
	Size       int64
	Folder     string
	UploadedBy string
	Body       io.Reader
}

// Receive 在解析请求体之前登记上传，返回按实际读取字节计数的请求体
// uploadID 不是合法 UUID 时不跟踪
func (s *Service) Receive(uploadID string, total int64, body io.Reader) io.Reader {
	if _, err := uuid.Parse(uploadID); err != nil {
		return body
	}
	return s.tracker.Begin(uploadID, "", total, body)
}

// Abort 请求体中没有可用的文件时结束跟踪
func (s *Service) Abort(uploadID string, err error) {
	s.tracker.Fail(uploadID, err)
}

// Upload 保存文件到对象存储并写入目录
// 已通过 Receive 登记的上传沿用请求体计数，否则按文件内容计数
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.MediaFile, error) {
	id := req.UploadID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	name := strings.TrimSpace(req.Name)
	folder := strings.Trim(strings.TrimSpace(req.Folder), "/")
	var invalid error
	switch {
	case name == "" || req.Body == nil:
		invalid = errors.ErrValidation.WithMessage("缺少必填字段: file")
	case !utils.Contains(s.opts.AllowedFolders, folder):
		invalid = errors.ErrMediaFolder.WithMessage("无效的目录: " + folder)
	case req.Size > s.opts.MaxUploadSize:
		invalid = errors.ErrMediaTooLarge.WithMessage(fmt.Sprintf("文件大小不能超过 %dMB", s.opts.MaxUploadSize>>20))
	}
	if invalid != nil {
		if s.tracker.Active(id) {
			s.tracker.Fail(id, invalid)
		}
		return nil, invalid
	}

	contentType := oss.GetContentType(name)
	kind := oss.KindOf(contentType)
	key := oss.GenerateObjectKey(folder, name, s.opts.Now())

	// 多读 1 字节用于判断是否超出上限
	body := io.LimitReader(req.Body, s.opts.MaxUploadSize+1)
	if s.tracker.Active(id) {
		s.tracker.Rename(id, name)
	} else {
		body = s.tracker.Begin(id, name, req.Size, body)
	}
	file, err := s.put(ctx, key, name, folder, contentType, kind, body)
	if err != nil {
		s.tracker.Fail(id, err)
		s.record(false, req.Size)
		s.log.Warn("media upload failed",
			zap.String("upload_id", id), zap.String("folder", folder), zap.Error(err))
		return nil, err
	}
	file.UploadedBy = req.UploadedBy

	if err := s.repo.Create(ctx, file); err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), key)
		s.tracker.Fail(id, err)
		s.record(false, file.Size)
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	s.tracker.Finish(id, file.ID)
	s.record(true, file.Size)
	s.log.Info("media uploaded",
		zap.String("upload_id", id), logger.MediaID(file.ID), zap.Int64("size", file.Size))
	return file, nil
}

// put 读取上传内容写入对象存储，图片额外解析尺寸
func (s *Service) put(ctx context.Context, key, name, folder, contentType, kind string, body io.Reader) (*models.MediaFile, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.ErrMediaUploadFail.WithError(err)
	}
	if int64(len(data)) > s.opts.MaxUploadSize {
		return nil, errors.ErrMediaTooLarge.WithMessage(fmt.Sprintf("文件大小不能超过 %dMB", s.opts.MaxUploadSize>>20))
	}

	meta := datatypes.JSONMap{}
	if kind == oss.KindImage {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			meta[models.MetaWidth] = cfg.Width
			meta[models.MetaHeight] = cfg.Height
		}
	}

	url, err := s.store.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, errors.ErrMediaUploadFail.WithError(err)
	}

	file := &models.MediaFile{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        kind,
		ContentType: contentType,
		Size:        int64(len(data)),
		Folder:      folder,
		ObjectKey:   key,
		Provider:    s.store.Provider(),
		URL:         url,
		CreatedAt:   s.opts.Now(),
	}
	if kind == oss.KindImage {
		file.ThumbnailURL = thumbnailURL(file.Provider, url)
	}
	if len(meta) > 0 {
		file.Meta = meta
	}
	return file, nil
}

// thumbnailURL 阿里云使用图片处理参数生成缩略图，其余直接使用原图
func thumbnailURL(provider, url string) string {
	if provider == oss.ProviderAliyun {
		return url + "?x-oss-process=image/resize,w_320"
	}
	return url
}

// Progress 查询上传进度
func (s *Service) Progress(uploadID string) (Progress, error) {
	p, ok := s.tracker.Get(uploadID)
	if !ok {
		return Progress{}, errors.ErrUploadNotTracked
	}
	return p, nil
}

// Delete 删除对象与目录记录
func (s *Service) Delete(ctx context.Context, id string) error {
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrMediaNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if err := s.store.Delete(ctx, file.ObjectKey); err != nil {
		return errors.ErrMediaDeleteFail.WithError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	s.log.Info("media deleted", logger.MediaID(id), zap.String("object_key", file.ObjectKey))
	return nil
}

// PurgeTrackers 清理已结束的上传进度记录
func (s *Service) PurgeTrackers(ttl time.Duration) int {
	return s.tracker.Purge(ttl)
}

func (s *Service) record(ok bool, size int64) {
	if s.opts.Recorder != nil {
		s.opts.Recorder.RecordMediaUpload(s.store.Provider(), ok, size)
	}
}
